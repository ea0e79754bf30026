package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/code-100-precent/LingSpeech/pkg/config"
	"github.com/code-100-precent/LingSpeech/pkg/logger"
	"github.com/code-100-precent/LingSpeech/pkg/response"
	"github.com/code-100-precent/LingSpeech/pkg/synthesizer"
)

// TTSHandlers serves the speech synthesis endpoints.
type TTSHandlers struct {
	config  *config.Config
	service synthesizer.SynthesizeService
}

func NewTTSHandlers(cfg *config.Config, service synthesizer.SynthesizeService) *TTSHandlers {
	return &TTSHandlers{config: cfg, service: service}
}

// Register mounts the TTS routes on the engine.
func (h *TTSHandlers) Register(r *gin.Engine) {
	registerHealthRoute(r, "tts")
	r.POST("/tts", h.handleSynthesize)
}

type ttsRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

func (h *TTSHandlers) handleSynthesize(c *gin.Context) {
	var req ttsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		response.BadRequest(c, "text is required")
		return
	}

	voice := req.Voice
	if voice == "" {
		voice = h.config.TTS.DefaultVoice
	}

	audio, err := h.service.Synthesize(c.Request.Context(), req.Text, voice)
	if err != nil {
		logger.Error("synthesis failed", zap.String("voice", voice), zap.Error(err))
		response.InternalError(c, err)
		return
	}

	c.Data(http.StatusOK, "audio/wav", audio)
}
