package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/code-100-precent/LingSpeech/pkg/config"
	"github.com/code-100-precent/LingSpeech/pkg/logger"
	"github.com/code-100-precent/LingSpeech/pkg/recognizer"
	"github.com/code-100-precent/LingSpeech/pkg/response"
)

// ASRHandlers serves the speech recognition endpoints.
type ASRHandlers struct {
	config  *config.Config
	service recognizer.TranscribeService
}

func NewASRHandlers(cfg *config.Config, service recognizer.TranscribeService) *ASRHandlers {
	return &ASRHandlers{config: cfg, service: service}
}

// Register mounts the ASR routes on the engine.
func (h *ASRHandlers) Register(r *gin.Engine) {
	registerHealthRoute(r, "asr")
	r.POST("/recognize", h.handleRecognize)
}

func (h *ASRHandlers) handleRecognize(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file field")
		return
	}
	if file.Filename == "" {
		response.BadRequest(c, "missing filename")
		return
	}

	// 上传内容先落盘，识别后尽力删除
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("asr_%s_%s", uuid.NewString(), filepath.Base(file.Filename)))
	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		logger.Error("staging upload failed", zap.Error(err))
		response.InternalError(c, err)
		return
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			logger.Warn("temp file cleanup failed", zap.String("path", tmpPath), zap.Error(err))
		}
	}()

	result, err := h.service.Recognize(c.Request.Context(), tmpPath)
	if err != nil {
		logger.Error("recognition failed", zap.Error(err))
		response.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"text":     result.Text,
		"language": result.Language,
	})
}
