// Package response 统一的 HTTP JSON 响应格式
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CodeOK 成功响应的业务码
const CodeOK = "OK"

// RequestIDKey gin.Context 中保存 request_id 的键
const RequestIDKey = "request_id"

// Response 响应体
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Success 200 响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:      CodeOK,
		Message:   "success",
		Data:      data,
		RequestID: c.GetString(RequestIDKey),
	})
}

// Error 错误响应并终止后续 handler
func Error(c *gin.Context, status int, code, message string, data any) {
	c.AbortWithStatusJSON(status, Response{
		Code:      code,
		Message:   message,
		Data:      data,
		RequestID: c.GetString(RequestIDKey),
	})
}
