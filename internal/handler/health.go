package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/code-100-precent/LingSpeech/pkg/response"
)

// registerHealthRoute wires the liveness probe shared by all services.
func registerHealthRoute(r *gin.Engine, service string) {
	r.GET("/health", func(c *gin.Context) {
		response.Healthy(c, service)
	})
}
