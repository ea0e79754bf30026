package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	handlers "github.com/code-100-precent/LingSpeech/internal/handler"
	"github.com/code-100-precent/LingSpeech/pkg/config"
	"github.com/code-100-precent/LingSpeech/pkg/logger"
	"github.com/code-100-precent/LingSpeech/pkg/middleware"
	"github.com/code-100-precent/LingSpeech/pkg/recognizer"
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

	asrCfg := recognizer.NewLocalConfig(cfg.ASR.Command, cfg.ASR.ModelDir)
	asrCfg.Device = cfg.ASR.Device
	service, err := recognizer.NewLocalRecognizer(asrCfg)
	if err != nil {
		logger.Fatal("init recognizer", zap.Error(err))
	}

	gin.SetMode(cfg.Server.GinMode())
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CorsMiddleware())
	r.Use(middleware.Metrics("asr"))
	middleware.RegisterMetricsRoute(r)

	handlers.NewASRHandlers(cfg, service).Register(r)

	logger.Info("asr service listening",
		zap.String("addr", cfg.Server.ASRAddr),
		zap.String("model_dir", cfg.ASR.ModelDir),
		zap.String("device", cfg.ASR.Device))
	if err := r.Run(cfg.Server.ASRAddr); err != nil {
		logger.Fatal("asr service exited", zap.Error(err))
	}
}
