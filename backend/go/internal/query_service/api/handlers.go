package api

import (
	"EnterpriseAgent/backend/go/internal/errs"
	"EnterpriseAgent/backend/go/internal/models"
	"EnterpriseAgent/backend/go/internal/query_service/service"
	"EnterpriseAgent/backend/go/pkg/logger"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler 封装了所有 API endpoint 的处理函数。
type Handler struct {
	service *service.Service
}

// NewHandler 创建一个新的 Handler 实例。
func NewHandler(s *service.Service) *Handler {
	return &Handler{service: s}
}

// --- Query Handlers ---

// SubmitQueryRequest 定义了提问请求的 JSON 结构。
type SubmitQueryRequest struct {
	Question string `json:"question" binding:"required"`
}

// SubmitQuery 处理提问请求，配额用完时返回 429。
func (h *Handler) SubmitQuery(c *gin.Context) {
	var req SubmitQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errs.E(errs.KindInvalidArgument, "api.SubmitQuery", err))
		return
	}

	res, err := h.service.Submit(c.Request.Context(), currentUserID(c), req.Question)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// QueryHistoryItem 是历史记录在 API 中的表示。
type QueryHistoryItem struct {
	ID             uint64    `json:"id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	ModelUsed      string    `json:"model_used,omitempty"`
	ResponseTimeMs *float64  `json:"response_time_ms,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListQueries 返回当前用户的历史记录，最新的在前。
func (h *Handler) ListQueries(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}

	records, err := h.service.History(c.Request.Context(), currentUserID(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]QueryHistoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, QueryHistoryItem{
			ID:             r.ID,
			Question:       r.InputText,
			Answer:         r.ResponseText,
			ModelUsed:      r.ModelUsed,
			ResponseTimeMs: r.ResponseTimeMs,
			CreatedAt:      r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"queries": items})
}

// Search 处理语义检索请求: GET /search?q=...&k=...
func (h *Handler) Search(c *gin.Context) {
	k, ok := intQuery(c, "k", 0)
	if !ok {
		return
	}

	hits, err := h.service.Search(c.Request.Context(), c.Query("q"), k)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": hits})
}

// Quota 返回当前用户今天剩余的提问次数。
func (h *Handler) Quota(c *gin.Context) {
	remaining, err := h.service.RemainingToday(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"remaining_today": remaining})
}

// --- Admin Handlers ---

// CreateUserRequest 定义了创建用户请求的 JSON 结构。
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
}

// CreateUser 创建一个用户，供网关同步账户使用。
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errs.E(errs.KindInvalidArgument, "api.CreateUser", err))
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), req.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user_id": user.ID, "username": user.Username})
}

// Stats 返回全局统计。
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.GlobalStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Dashboard 返回管理面板数据。
func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// writeError 按错误类别写出 {"error": kind, "message": ...}。
// 5xx 不暴露底层错误，只记录到日志。
func writeError(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	kind := errs.KindOf(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context(), serviceName).
			WithError(models.ErrorInfo{Message: err.Error(), Type: string(kind), StatusCode: status}).
			Error("请求处理失败")
		message = http.StatusText(status)
	}
	c.JSON(status, gin.H{"error": kind, "message": message})
}

// intQuery 读取可选的非负整数查询参数，非法时直接写出 400。
func intQuery(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		writeError(c, errs.E(errs.KindInvalidArgument, "api."+key, err))
		return 0, false
	}
	return v, true
}
