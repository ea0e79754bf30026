package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// All services share a flat wire format: success bodies are plain
// objects, failures carry a single error message, health checks report
// status and service name.

// OK writes a 200 response with the given payload.
func OK(c *gin.Context, payload gin.H) {
	c.JSON(http.StatusOK, payload)
}

// Error writes an error response with a human-readable message.
func Error(c *gin.Context, httpStatus int, msg string) {
	c.JSON(httpStatus, gin.H{"error": msg})
}

// BadRequest writes a 400 validation error.
func BadRequest(c *gin.Context, msg string) {
	Error(c, http.StatusBadRequest, msg)
}

// InternalError writes a 500 processing error, echoing the failure message.
func InternalError(c *gin.Context, err error) {
	Error(c, http.StatusInternalServerError, err.Error())
}

// Healthy writes the standard health check body for a service.
func Healthy(c *gin.Context, service string) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": service})
}
