package httpapi

import (
	"net/http"
	"strings"

	"asclepius-triage/internal/service"

	"go.uber.org/zap"
)

// SubmissionHandler 提交记录 Handler
// 上传入口立即返回 pending 记录，流水线异步运行
type SubmissionHandler struct {
	submissions *service.SubmissionService
	reviewers   *service.ReviewerService
	maxUpload   int64
	logger      *zap.Logger
}

// NewSubmissionHandler 创建提交记录 Handler
func NewSubmissionHandler(
	submissions *service.SubmissionService,
	reviewers *service.ReviewerService,
	maxUploadBytes int64,
	logger *zap.Logger,
) *SubmissionHandler {
	return &SubmissionHandler{
		submissions: submissions,
		reviewers:   reviewers,
		maxUpload:   maxUploadBytes,
		logger:      logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *SubmissionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由分发
	path := r.URL.Path
	switch {
	// Ingest
	case path == "/api/v1/submissions" && r.Method == http.MethodPost:
		h.Ingest(w, r)
	// ListByResponder
	case path == "/api/v1/submissions" && r.Method == http.MethodGet:
		h.ListByResponder(w, r)
	// Respond
	case strings.HasSuffix(path, "/response") && r.Method == http.MethodPost:
		id := strings.TrimSuffix(path, "/response")
		id = strings.TrimPrefix(id, "/api/v1/submissions/")
		if id != "" && !strings.Contains(id, "/") {
			h.Respond(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	// GetSubmission
	case strings.HasPrefix(path, "/api/v1/submissions/") && r.Method == http.MethodGet:
		id := strings.TrimPrefix(path, "/api/v1/submissions/")
		if id != "" && !strings.Contains(id, "/") {
			h.GetSubmission(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Ingest 接收音频上传
// multipart 字段：audio（音频文件）、context（自由文本）、responder_id
func (h *SubmissionHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	responderID := r.FormValue("responder_id")
	contextText := r.FormValue("context")
	mimeType := header.Header.Get("Content-Type")

	submission, err := h.submissions.Ingest(r.Context(), responderID, contextText, file, header.Filename, mimeType)
	if err != nil {
		if strings.Contains(err.Error(), "only audio files") {
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
			return
		}
		if strings.Contains(err.Error(), "required") {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to ingest submission", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server error during upload")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "submission uploaded successfully",
		"submission": submission,
	})
}

// GetSubmission 按 id 查询提交记录
func (h *SubmissionHandler) GetSubmission(w http.ResponseWriter, r *http.Request, id string) {
	submission, err := h.submissions.GetSubmission(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "submission not found")
			return
		}
		h.logger.Error("Failed to get submission", zap.String("submission_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server error getting submission")
		return
	}

	writeJSON(w, http.StatusOK, submission)
}

// ListByResponder 查询某上报人的提交记录列表
func (h *SubmissionHandler) ListByResponder(w http.ResponseWriter, r *http.Request) {
	responderID := r.URL.Query().Get("responder_id")
	if responderID == "" {
		writeError(w, http.StatusBadRequest, "responder_id is required")
		return
	}

	submissions, err := h.submissions.ListByResponder(r.Context(), responderID)
	if err != nil {
		h.logger.Error("Failed to list submissions", zap.String("responder_id", responderID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server error listing submissions")
		return
	}

	writeJSON(w, http.StatusOK, submissions)
}

// respondRequest 审阅人回复请求体
type respondRequest struct {
	ReviewerID string `json:"reviewer_id"`
	Response   string `json:"response"`
}

// Respond 审阅人对某条提交写入回复
func (h *SubmissionHandler) Respond(w http.ResponseWriter, r *http.Request, submissionID string) {
	var req respondRequest
	if err := readBodyJSON(r, 64*1024, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.reviewers.Respond(r.Context(), submissionID, req.ReviewerID, req.Response); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if strings.Contains(err.Error(), "required") {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to record response", zap.String("submission_id", submissionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server error recording response")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "response recorded successfully"})
}
