package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/code-100-precent/LingSpeech/pkg/config"
	"github.com/code-100-precent/LingSpeech/pkg/logger"
	"github.com/code-100-precent/LingSpeech/pkg/response"
	"github.com/code-100-precent/LingSpeech/pkg/vad"
)

// VADHandlers serves the voice-activity detection endpoints.
type VADHandlers struct {
	config *config.Config
	engine *vad.Engine
}

func NewVADHandlers(cfg *config.Config, engine *vad.Engine) *VADHandlers {
	return &VADHandlers{config: cfg, engine: engine}
}

// Register mounts the VAD routes on the engine.
func (h *VADHandlers) Register(r *gin.Engine) {
	registerHealthRoute(r, "vad")
	r.POST("/vad", h.handleDetect)
	r.POST("/reset", h.handleReset)
}

type vadRequest struct {
	AudioData string  `json:"audio_data"`
	SessionID string  `json:"session_id"`
	Threshold float64 `json:"threshold"`
}

type resetRequest struct {
	SessionID string `json:"session_id"`
}

func (h *VADHandlers) handleDetect(c *gin.Context) {
	var req vadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.AudioData == "" {
		response.BadRequest(c, "audio_data is required")
		return
	}

	pcm, err := base64.StdEncoding.DecodeString(req.AudioData)
	if err != nil {
		response.BadRequest(c, "audio_data is not valid base64")
		return
	}

	// 请求级阈值只在会话首次创建时生效
	var overrides []vad.SessionConfig
	if req.Threshold > 0 {
		overrides = append(overrides, vad.SessionConfig{Threshold: req.Threshold})
	}

	event, err := h.engine.Process(req.SessionID, pcm, overrides...)
	if err != nil {
		if errors.Is(err, vad.ErrInvalidAudio) {
			response.BadRequest(c, err.Error())
			return
		}
		logger.Error("vad processing failed", zap.String("session_id", req.SessionID), zap.Error(err))
		response.InternalError(c, err)
		return
	}

	if event.Type == vad.EventNone {
		c.JSON(http.StatusOK, gin.H{"status": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    string(event.Type),
		"timestamp": event.TimestampMs,
	})
}

func (h *VADHandlers) handleReset(c *gin.Context) {
	var req resetRequest
	// body 可以为空，等价于重置默认会话
	_ = c.ShouldBindJSON(&req)

	h.engine.Reset(req.SessionID)
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
