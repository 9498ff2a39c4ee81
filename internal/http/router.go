package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 基于 http.ServeMux 的路由器
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterSubmissionRoutes 注册提交记录路由（上传 + 查询）
func (r *Router) RegisterSubmissionRoutes(h *SubmissionHandler) {
	r.mux.Handle("/api/v1/submissions", h)
	r.mux.Handle("/api/v1/submissions/", h)
}

// RegisterReviewerRoutes 注册审阅人路由（可用状态 + 通知列表）
func (r *Router) RegisterReviewerRoutes(h *ReviewerHandler) {
	r.mux.Handle("/api/v1/reviewers/", h)
	r.mux.Handle("/api/v1/reviewers", h)
	r.mux.Handle("/api/v1/deliveries/", h)
	r.mux.Handle("/api/v1/deliveries", h)
}

// RegisterHealthRoute 注册健康检查路由
func (r *Router) RegisterHealthRoute(h http.HandlerFunc) {
	r.mux.HandleFunc("/health", h)
}
