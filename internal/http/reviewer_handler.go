package httpapi

import (
	"net/http"
	"strings"

	"asclepius-triage/internal/models"
	"asclepius-triage/internal/repository"
	"asclepius-triage/internal/service"

	"go.uber.org/zap"
)

// ReviewerHandler 审阅人侧 Handler
// 可用状态切换、通知列表、已读标记、按需重发
type ReviewerHandler struct {
	reviewers *service.ReviewerService
	logger    *zap.Logger
}

// NewReviewerHandler 创建审阅人 Handler
func NewReviewerHandler(reviewers *service.ReviewerService, logger *zap.Logger) *ReviewerHandler {
	return &ReviewerHandler{
		reviewers: reviewers,
		logger:    logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *ReviewerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由分发
	path := r.URL.Path
	switch {
	// ListAvailable
	case path == "/api/v1/reviewers/available" && r.Method == http.MethodGet:
		h.ListAvailable(w, r)
	// SetAvailability
	case strings.HasSuffix(path, "/availability") && r.Method == http.MethodPatch:
		id := strings.TrimSuffix(path, "/availability")
		id = strings.TrimPrefix(id, "/api/v1/reviewers/")
		if id != "" && !strings.Contains(id, "/") {
			h.SetAvailability(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	// ListDeliveries
	case strings.HasSuffix(path, "/deliveries") && r.Method == http.MethodGet:
		id := strings.TrimSuffix(path, "/deliveries")
		id = strings.TrimPrefix(id, "/api/v1/reviewers/")
		if id != "" && !strings.Contains(id, "/") {
			h.ListDeliveries(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	// MarkRead
	case strings.HasSuffix(path, "/read") && r.Method == http.MethodPatch:
		id := strings.TrimSuffix(path, "/read")
		id = strings.TrimPrefix(id, "/api/v1/deliveries/")
		if id != "" && !strings.Contains(id, "/") {
			h.MarkRead(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	// Resend
	case path == "/api/v1/deliveries/send" && r.Method == http.MethodPost:
		h.Resend(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListAvailable 查询当前可用的审阅人
func (h *ReviewerHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	reviewers, err := h.reviewers.ListAvailable(r.Context())
	if err != nil {
		h.logger.Error("Failed to list available reviewers", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server error listing reviewers")
		return
	}

	writeJSON(w, http.StatusOK, reviewers)
}

// availabilityRequest 可用状态切换请求体
type availabilityRequest struct {
	Available bool `json:"available"`
}

// SetAvailability 切换审阅人可用状态
func (h *ReviewerHandler) SetAvailability(w http.ResponseWriter, r *http.Request, reviewerID string) {
	var req availabilityRequest
	if err := readBodyJSON(r, 4*1024, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.reviewers.SetAvailability(r.Context(), reviewerID, req.Available); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "reviewer not found")
			return
		}
		h.logger.Error("Failed to update availability", zap.String("reviewer_id", reviewerID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server error updating availability")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "availability updated successfully",
		"available": req.Available,
	})
}

// ListDeliveries 查询审阅人的通知列表
// sort=newest|oldest|priority（priority 为分诊排序：风险分倒序、优先级正序、时间倒序）
func (h *ReviewerHandler) ListDeliveries(w http.ResponseWriter, r *http.Request, reviewerID string) {
	sort := repository.DeliverySort(r.URL.Query().Get("sort"))
	if sort == "" {
		sort = repository.SortNewest
	}

	deliveries, err := h.reviewers.ListDeliveries(r.Context(), reviewerID, sort)
	if err != nil {
		if strings.Contains(err.Error(), "invalid sort") {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to list deliveries", zap.String("reviewer_id", reviewerID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server error listing deliveries")
		return
	}

	writeJSON(w, http.StatusOK, deliveries)
}

// markReadRequest 已读标记请求体
type markReadRequest struct {
	ReviewerID string `json:"reviewer_id"`
}

// MarkRead 标记通知已读
func (h *ReviewerHandler) MarkRead(w http.ResponseWriter, r *http.Request, deliveryID string) {
	var req markReadRequest
	if err := readBodyJSON(r, 4*1024, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.reviewers.MarkRead(r.Context(), deliveryID, req.ReviewerID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "delivery not found")
			return
		}
		if strings.Contains(err.Error(), "required") {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to mark delivery as read", zap.String("delivery_id", deliveryID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server error marking delivery as read")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "delivery marked as read"})
}

// resendRequest 重发请求体
type resendRequest struct {
	SubmissionID string `json:"submission_id"`
	ReviewerID   string `json:"reviewer_id"`
	Channel      string `json:"channel"`
}

// Resend 按需通过 sms/email/both 重发一条通知
func (h *ReviewerHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := readBodyJSON(r, 4*1024, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	channel := models.Channel(req.Channel)
	if !channel.Valid() {
		writeError(w, http.StatusBadRequest, "channel must be sms, email or both")
		return
	}

	if err := h.reviewers.Resend(r.Context(), req.SubmissionID, req.ReviewerID, channel); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if strings.Contains(err.Error(), "required") {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to resend notification", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server error sending notification")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "notification sent successfully"})
}
