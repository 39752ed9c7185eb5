// Package response renders the judge's uniform HTTP response envelope.
package response

import (
	"net/http"

	"judgecore/pkg/apperr"
	"judgecore/pkg/log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Envelope is the standard API response shape.
type Envelope struct {
	Code    apperr.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Data    interface{}      `json:"data,omitempty"`
	Details interface{}      `json:"details,omitempty"`
	TraceID string           `json:"trace_id,omitempty"`
}

// Success sends a 200 response carrying data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Code:    apperr.Success,
		Message: "Success",
		Data:    data,
		TraceID: traceID(c),
	})
}

// Error sends an error response, deriving status/code/message from err.
func Error(c *gin.Context, err error) {
	e := apperr.GetError(err)
	log.Error(c.Request.Context(), "request error",
		zap.Int("code", int(e.Code)),
		zap.String("message", e.Error()),
	)
	c.JSON(e.Code.HTTPStatus(), Envelope{
		Code:    e.Code,
		Message: e.Error(),
		Details: e.Details,
		TraceID: traceID(c),
	})
}

// BadRequest sends a 400 invalid-params response.
func BadRequest(c *gin.Context, message string) {
	Error(c, apperr.New(apperr.InvalidParams).WithMessage(message))
}

func traceID(c *gin.Context) string {
	if v, ok := log.TraceID(c.Request.Context()); ok {
		return v
	}
	return ""
}
