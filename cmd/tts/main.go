package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	handlers "github.com/code-100-precent/LingSpeech/internal/handler"
	"github.com/code-100-precent/LingSpeech/pkg/config"
	"github.com/code-100-precent/LingSpeech/pkg/logger"
	"github.com/code-100-precent/LingSpeech/pkg/middleware"
	"github.com/code-100-precent/LingSpeech/pkg/synthesizer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		os.Stderr.WriteString("invalid config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Log, cfg.Server.Mode); err != nil {
		os.Stderr.WriteString("init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	ttsCfg := synthesizer.NewEdgeConfig(cfg.TTS.Command, cfg.TTS.DefaultVoice)
	ttsCfg.EnableCache = cfg.TTS.CacheEnabled
	ttsCfg.CacheExpiry = cfg.TTS.CacheTTL
	service, err := synthesizer.NewEdgeSynthesizer(ttsCfg)
	if err != nil {
		logger.Fatal("init synthesizer", zap.Error(err))
	}

	gin.SetMode(cfg.Server.GinMode())
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CorsMiddleware())
	r.Use(middleware.Metrics("tts"))
	middleware.RegisterMetricsRoute(r)

	handlers.NewTTSHandlers(cfg, service).Register(r)

	logger.Info("tts service listening",
		zap.String("addr", cfg.Server.TTSAddr),
		zap.String("default_voice", cfg.TTS.DefaultVoice))
	if err := r.Run(cfg.Server.TTSAddr); err != nil {
		logger.Fatal("tts service exited", zap.Error(err))
	}
}
