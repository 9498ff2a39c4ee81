package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asclepius-triage/internal/analyzer"
	"asclepius-triage/internal/config"
	"asclepius-triage/internal/database"
	httpapi "asclepius-triage/internal/http"
	"asclepius-triage/internal/logger"
	"asclepius-triage/internal/notifier"
	"asclepius-triage/internal/pipeline"
	"asclepius-triage/internal/repository"
	"asclepius-triage/internal/service"
	"asclepius-triage/internal/store"
	"asclepius-triage/internal/transcriber"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "asclepius-triage")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting asclepius-triage service")

	// 数据库连接
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	// Redis 连接（流水线运行锁）
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// 仓库层
	submissionsRepo := repository.NewSubmissionsRepository(db, log)
	reviewersRepo := repository.NewReviewersRepository(db, log)
	deliveriesRepo := repository.NewDeliveriesRepository(db, log)

	// 工件存储与运行锁
	artifacts, err := store.NewArtifactStore(cfg.Artifacts.Dir, cfg.Artifacts.MaxSizeMB*1024*1024)
	if err != nil {
		log.Fatal("Failed to initialize artifact store", zap.Error(err))
	}
	runLock := store.NewRunLock(redisClient, time.Duration(cfg.Pipeline.RunLockTTLSec)*time.Second)

	// 外部服务适配器
	stt := transcriber.NewTranscriber(
		cfg.Transcriber.BaseURL,
		cfg.Transcriber.APIKey,
		cfg.Transcriber.Model,
		time.Duration(cfg.Transcriber.TimeoutSec)*time.Second,
		log,
	)
	risk := analyzer.NewAnalyzer(
		cfg.Analyzer.BaseURL,
		cfg.Analyzer.APIKey,
		cfg.Analyzer.Model,
		time.Duration(cfg.Analyzer.TimeoutSec)*time.Second,
		log,
	)

	// 通知分发
	fanOut := notifier.NewFanOut(reviewersRepo, deliveriesRepo, submissionsRepo, log)
	smsClient := notifier.NewSMSClient(
		cfg.Notify.SMS.BaseURL,
		cfg.Notify.SMS.AccountSID,
		cfg.Notify.SMS.AuthToken,
		cfg.Notify.SMS.From,
		log,
	)
	emailClient := notifier.NewEmailClient(
		cfg.Notify.Email.BaseURL,
		cfg.Notify.Email.APIKey,
		cfg.Notify.Email.From,
		log,
	)
	dispatcher := notifier.NewDispatcher(smsClient, emailClient, deliveriesRepo, cfg.Notify.FrontendURL, log)

	// 流水线编排器
	runner := pipeline.NewRunner(submissionsRepo, stt, risk, fanOut, runLock, log)

	// 服务层
	submissionSvc := service.NewSubmissionService(submissionsRepo, artifacts, runner, log)
	reviewerSvc := service.NewReviewerService(reviewersRepo, deliveriesRepo, submissionsRepo, dispatcher, log)

	// HTTP 层
	router := httpapi.NewRouter(log)
	router.RegisterSubmissionRoutes(httpapi.NewSubmissionHandler(submissionSvc, reviewerSvc, cfg.Artifacts.MaxSizeMB*1024*1024, log))
	router.RegisterReviewerRoutes(httpapi.NewReviewerHandler(reviewerSvc, log))
	router.RegisterHealthRoute(httpapi.NewHealthHandler(db, redisClient, log).HealthCheck)

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}

	// 监听系统信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// 启动 HTTP 服务（在 goroutine 中）
	errChan := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// 等待信号或错误
	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		log.Error("HTTP server error", zap.Error(err))
	}

	// 停机：先关 HTTP 入口，再等在途流水线结束
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down HTTP server", zap.Error(err))
	}
	runner.Wait()

	log.Info("Service stopped")
}
