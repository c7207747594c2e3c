package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置和返回一个 Gin 引擎实例。
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	apiV1.Use(IdentityMiddleware())
	{
		queries := apiV1.Group("/queries")
		{
			queries.POST("", h.SubmitQuery)
			queries.GET("", h.ListQueries)
		}
		apiV1.GET("/search", h.Search)
		apiV1.GET("/quota", h.Quota)

		// 管理接口，访问控制由网关负责。
		admin := apiV1.Group("/admin")
		{
			admin.POST("/users", h.CreateUser)
			admin.GET("/stats", h.Stats)
			admin.GET("/dashboard", h.Dashboard)
		}
	}

	return r
}
