package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	handlers "github.com/code-100-precent/LingSpeech/internal/handler"
	"github.com/code-100-precent/LingSpeech/pkg/config"
	"github.com/code-100-precent/LingSpeech/pkg/logger"
	"github.com/code-100-precent/LingSpeech/pkg/middleware"
	"github.com/code-100-precent/LingSpeech/pkg/vad"
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

	var factory vad.ScorerFactory
	switch cfg.VAD.Backend {
	case "silero":
		factory = vad.NewSileroFactory(cfg.VAD.ModelPath, cfg.VAD.ORTLibPath)
	default:
		factory = func(int) (vad.Scorer, error) {
			return vad.NewEnergyScorer(cfg.VAD.EnergyReference), nil
		}
	}

	engine := vad.NewEngine(vad.SessionConfig{
		Threshold:    cfg.VAD.Threshold,
		SamplingRate: cfg.VAD.SamplingRate,
		MinSilenceMs: cfg.VAD.MinSilenceMs,
	}, factory, logger.Lg)
	engine.StartCleanup(cfg.VAD.SessionTTL)
	defer engine.Close()

	gin.SetMode(cfg.Server.GinMode())
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CorsMiddleware())
	r.Use(middleware.Metrics("vad"))
	middleware.RegisterMetricsRoute(r)

	handlers.NewVADHandlers(cfg, engine).Register(r)

	logger.Info("vad service listening",
		zap.String("addr", cfg.Server.VADAddr),
		zap.String("backend", cfg.VAD.Backend),
		zap.Float64("threshold", cfg.VAD.Threshold),
		zap.Int("sampling_rate", cfg.VAD.SamplingRate),
		zap.Int("min_silence_ms", cfg.VAD.MinSilenceMs))
	if err := r.Run(cfg.Server.VADAddr); err != nil {
		logger.Fatal("vad service exited", zap.Error(err))
	}
}
