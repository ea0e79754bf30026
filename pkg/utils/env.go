package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from .env files.
// When env is set, .env.<env> is preferred over plain .env.
func LoadEnv(env string) error {
	if env != "" {
		name := fmt.Sprintf(".env.%s", strings.ToLower(env))
		if _, err := os.Stat(name); err == nil {
			return godotenv.Load(name)
		}
	}
	return godotenv.Load()
}

// GetEnv returns the value of an environment variable, trimmed.
func GetEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// GetIntEnv returns an integer environment variable value, 0 when unset or invalid.
func GetIntEnv(key string) int64 {
	v := GetEnv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// GetBoolEnv returns a boolean environment variable value.
// Accepts 1/0, true/false, yes/no, on/off (case-insensitive).
func GetBoolEnv(key string) bool {
	switch strings.ToLower(GetEnv(key)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// GetFloatEnv returns a float environment variable value, 0 when unset or invalid.
func GetFloatEnv(key string) float64 {
	v := GetEnv(key)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
