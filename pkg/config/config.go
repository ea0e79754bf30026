package config

import (
	"errors"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/code-100-precent/LingSpeech/pkg/logger"
	"github.com/code-100-precent/LingSpeech/pkg/utils"
)

// Config main configuration structure. Loaded once at startup and passed
// into each handler; there is no package-level global.
type Config struct {
	Server ServerConfig     `mapstructure:"server"`
	Log    logger.LogConfig `mapstructure:"log"`
	ASR    ASRConfig        `mapstructure:"asr"`
	TTS    TTSConfig        `mapstructure:"tts"`
	VAD    VADConfig        `mapstructure:"vad"`
}

// ServerConfig server configuration
type ServerConfig struct {
	ASRAddr string `env:"ASR_ADDR"`
	TTSAddr string `env:"TTS_ADDR"`
	VADAddr string `env:"VAD_ADDR"`
	Mode    string `env:"MODE"`
}

// ASRConfig speech recognition service configuration
type ASRConfig struct {
	ModelDir string `env:"MODEL_DIR"`
	Device   string `env:"DEVICE"`
	Command  string `env:"ASR_COMMAND"`
}

// TTSConfig speech synthesis service configuration
type TTSConfig struct {
	DefaultVoice string        `env:"TTS_VOICE"`
	Command      string        `env:"TTS_COMMAND"`
	CacheEnabled bool          `env:"TTS_CACHE_ENABLED"`
	CacheTTL     time.Duration `env:"TTS_CACHE_TTL"`
}

// VADConfig voice activity detection service configuration
type VADConfig struct {
	Threshold       float64       `env:"VAD_THRESHOLD"`
	SamplingRate    int           `env:"VAD_SAMPLING_RATE"`
	MinSilenceMs    int           `env:"VAD_MIN_SILENCE_MS"`
	Backend         string        `env:"VAD_BACKEND"`
	ModelPath       string        `env:"VAD_MODEL_PATH"`
	ORTLibPath      string        `env:"ORT_LIB_PATH"`
	SessionTTL      time.Duration `env:"VAD_SESSION_TTL"`
	EnergyReference float64       `env:"VAD_ENERGY_REFERENCE"`
}

// GinMode maps the service mode to a gin framework mode.
func (s ServerConfig) GinMode() string {
	switch s.Mode {
	case "production", "release":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

// Load builds the configuration from environment variables, after loading
// .env files based on APP_ENV.
func Load() (*Config, error) {
	env := utils.GetEnv("APP_ENV")
	if err := utils.LoadEnv(env); err != nil {
		// Only log when .env file doesn't exist, don't affect startup
		log.Printf("Note: .env file not found or failed to load: %v (using default values)", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			ASRAddr: getStringOrDefault("ASR_ADDR", ":8001"),
			TTSAddr: getStringOrDefault("TTS_ADDR", ":8002"),
			VADAddr: getStringOrDefault("VAD_ADDR", ":8003"),
			Mode:    getStringOrDefault("MODE", "development"),
		},
		Log: logger.LogConfig{
			Level:      getStringOrDefault("LOG_LEVEL", "info"),
			Filename:   getStringOrDefault("LOG_FILENAME", "./logs/app.log"),
			MaxSize:    getIntOrDefault("LOG_MAX_SIZE", 100),
			MaxAge:     getIntOrDefault("LOG_MAX_AGE", 30),
			MaxBackups: getIntOrDefault("LOG_MAX_BACKUPS", 5),
		},
		ASR: ASRConfig{
			ModelDir: getStringOrDefault("MODEL_DIR", "iic/SenseVoiceSmall"),
			Device:   getStringOrDefault("DEVICE", "cpu"),
			Command:  getStringOrDefault("ASR_COMMAND", "sensevoice-cli"),
		},
		TTS: TTSConfig{
			DefaultVoice: getStringOrDefault("TTS_VOICE", "zh-CN-XiaoxiaoNeural"),
			Command:      getStringOrDefault("TTS_COMMAND", "edge-tts"),
			CacheEnabled: getBoolOrDefault("TTS_CACHE_ENABLED", true),
			CacheTTL:     parseDuration(getStringOrDefault("TTS_CACHE_TTL", "10m"), 10*time.Minute),
		},
		VAD: VADConfig{
			Threshold:       getFloatOrDefault("VAD_THRESHOLD", 0.5),
			SamplingRate:    getIntOrDefault("VAD_SAMPLING_RATE", 16000),
			MinSilenceMs:    getIntOrDefault("VAD_MIN_SILENCE_MS", 500),
			Backend:         getStringOrDefault("VAD_BACKEND", "energy"),
			ModelPath:       getStringOrDefault("VAD_MODEL_PATH", ""),
			ORTLibPath:      getStringOrDefault("ORT_LIB_PATH", ""),
			SessionTTL:      parseDuration(getStringOrDefault("VAD_SESSION_TTL", "0"), 0),
			EnergyReference: getFloatOrDefault("VAD_ENERGY_REFERENCE", 0.1),
		},
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.VAD.Threshold <= 0 || c.VAD.Threshold > 1 {
		return errors.New("vad threshold must be in (0, 1]")
	}
	if c.VAD.SamplingRate <= 0 {
		return errors.New("vad sampling rate must be positive")
	}
	if c.VAD.MinSilenceMs < 0 {
		return errors.New("vad min silence duration cannot be negative")
	}
	if c.VAD.Backend == "silero" && c.VAD.ModelPath == "" {
		return errors.New("VAD_MODEL_PATH is required for the silero backend")
	}
	if c.TTS.DefaultVoice == "" {
		return errors.New("default TTS voice is required")
	}
	return nil
}

// getStringOrDefault gets environment variable value, returns default if empty
func getStringOrDefault(key, defaultValue string) string {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getBoolOrDefault gets boolean environment variable value, returns default if empty
func getBoolOrDefault(key string, defaultValue bool) bool {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return utils.GetBoolEnv(key)
}

// getIntOrDefault gets integer environment variable value, returns default if unset.
// An explicit "0" is a valid value, not a fallback trigger.
func getIntOrDefault(key string, defaultValue int) int {
	if utils.GetEnv(key) == "" {
		return defaultValue
	}
	return int(utils.GetIntEnv(key))
}

// getFloatOrDefault gets float environment variable value, returns default if unset
func getFloatOrDefault(key string, defaultValue float64) float64 {
	if utils.GetEnv(key) == "" {
		return defaultValue
	}
	return utils.GetFloatEnv(key)
}

// parseDuration parses duration string with default fallback
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
