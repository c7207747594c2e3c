package api

import (
	"EnterpriseAgent/backend/go/internal/models"
	"EnterpriseAgent/backend/go/pkg/logger"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	serviceName = "query_service"

	// HeaderUserID 由上游网关在完成认证后设置。
	HeaderUserID = "X-User-ID"
	// HeaderRequestID 用于串联一次请求的日志。
	HeaderRequestID = "X-Request-ID"

	userIDKey = "userID"
)

// TraceMiddleware 为每个请求分配链路 ID，沿用调用方传入的 X-Request-ID，并在结束时记录一条访问日志。
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(HeaderRequestID)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Header(HeaderRequestID, traceID)
		c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), traceID))

		start := time.Now()
		c.Next()

		logger.FromContext(c.Request.Context(), serviceName).
			WithRequest(models.RequestInfo{
				Method:     c.Request.Method,
				Path:       c.FullPath(),
				RemoteAddr: c.ClientIP(),
				UserAgent:  c.Request.UserAgent(),
			}).
			WithPayload(map[string]interface{}{
				"status":     c.Writer.Status(),
				"latency_ms": float64(time.Since(start).Microseconds()) / 1000,
			}).
			Info("request completed")
	}
}

// IdentityMiddleware 从 X-User-ID 读取调用者身份。
// 凭证校验由网关完成，这里只接受正整数形式的用户 ID。
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderUserID)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "请求未包含用户标识"})
			return
		}
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "无效的用户标识"})
			return
		}

		c.Set(userIDKey, uint(id))
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), raw))
		c.Next()
	}
}

// currentUserID 返回 IdentityMiddleware 写入的用户 ID。
func currentUserID(c *gin.Context) uint {
	return c.GetUint(userIDKey)
}
