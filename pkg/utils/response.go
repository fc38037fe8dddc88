package utils

import (
	"net/http"

	"student-registry/internal/apperr"

	"github.com/gin-gonic/gin"
)

// SuccessResponse sends a standard success JSON response
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// CreatedResponse sends a success JSON response with 201 status
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

// ErrorResponse sends a standard error JSON response
func ErrorResponse(c *gin.Context, statusCode int, kind, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"kind":    kind,
		"error":   message,
	})
}

// AppErrorResponse sends an error response whose status and kind derive from err.
// Storage faults are reported with a generic message.
func AppErrorResponse(c *gin.Context, err error) {
	_ = c.Error(err)

	status := apperr.Status(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	ErrorResponse(c, status, apperr.Kind(err), message)
}

// MessageResponse sends a simple message response
func MessageResponse(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
	})
}
