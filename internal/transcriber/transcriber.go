package transcriber

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Transcriber 语音转写适配器（OpenAI 兼容 audio/transcriptions 接口）
// 转写失败是硬失败：没有转写文本就无法合成有意义的风险叙述，
// 由编排器将提交置为 error，不做降级
type Transcriber struct {
	httpClient *resty.Client
	model      string
	logger     *zap.Logger
}

// NewTranscriber 创建转写适配器
func NewTranscriber(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *Transcriber {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &Transcriber{
		httpClient: client,
		model:      model,
		logger:     logger,
	}
}

// Transcribe 转写一个音频工件，返回纯文本
// 传输失败、非 2xx 响应、空转写结果都返回错误
func (t *Transcriber) Transcribe(ctx context.Context, artifactRef string) (string, error) {
	if artifactRef == "" {
		return "", fmt.Errorf("artifact_ref is required")
	}

	file, err := os.Open(artifactRef)
	if err != nil {
		return "", fmt.Errorf("failed to open audio artifact: %w", err)
	}
	defer file.Close()

	t.logger.Info("Calling transcription service",
		zap.String("artifact_ref", artifactRef),
		zap.String("model", t.model),
	)

	resp, err := t.httpClient.R().
		SetContext(ctx).
		SetFileReader("file", filepath.Base(artifactRef), file).
		SetFormData(map[string]string{
			"model":           t.model,
			"response_format": "text",
		}).
		Post("/v1/audio/transcriptions")

	if err != nil {
		t.logger.Error("Transcription service call failed",
			zap.String("artifact_ref", artifactRef),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to call transcription service: %w", err)
	}
	if resp.IsError() {
		t.logger.Error("Transcription service returned error status",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return "", fmt.Errorf("transcription service error: status %d", resp.StatusCode())
	}

	transcript := strings.TrimSpace(resp.String())
	if transcript == "" {
		return "", fmt.Errorf("transcription service returned empty transcript")
	}

	t.logger.Info("Transcription completed",
		zap.String("artifact_ref", artifactRef),
		zap.Int("transcript_len", len(transcript)),
	)

	return transcript, nil
}
