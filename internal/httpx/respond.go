package httpx

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Response is the JSON envelope every endpoint uses.
// swagger:model
type Response struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

func OK(c *gin.Context, code int, data any) {
	c.JSON(code, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func Fail(c *gin.Context, code int, msg string) {
	c.JSON(code, Response{
		Success:   false,
		Error:     msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
