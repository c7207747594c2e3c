package models

// RequestInfo 是访问日志中的请求字段，由 api.TraceMiddleware 填充。
type RequestInfo struct {
	Method     string `json:"method"`
	Path       string `json:"path"` // 路由模板，例如 /api/v1/queries
	RemoteAddr string `json:"remote_addr"`
	UserAgent  string `json:"user_agent"`
}

// ErrorInfo 是日志中的错误字段。Type 使用 errs.Kind 的取值。
type ErrorInfo struct {
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`
	StatusCode int    `json:"status_code,omitempty"` // 只在 HTTP 层填写
}
