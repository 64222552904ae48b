// Package config handles recorder, locator, verifier and replay settings
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ArtifactsDir string

	// recorder
	IdleTimeLimit time.Duration
	BoxMargin     int
	MonitorWidth  int
	StopKey       string

	// localization
	AcceptThreshold float64
	ProximityPx     int
	TemplateFloor   float64

	// verification
	VerifyThreshold float64
	SSIMWindow      int

	// replay
	SettleDelay       time.Duration
	RelocateThreshold float64

	OCRAddr    string
	OCRTimeout time.Duration
	WatchAddr  string

	LogLevel  string
	LogFormat string
}

// Load reads the environment after merging env files. With no arguments an
// optional .env in the working directory is used; files named explicitly
// must exist. Variables already set in the process win over env files.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	return &Config{
		ArtifactsDir:      getEnv("ARTIFACTS_DIR", "artifacts"),
		IdleTimeLimit:     getEnvSeconds("IDLE_TIME_LIMIT", 5*time.Second),
		BoxMargin:         getEnvInt("BOX_MARGIN", 50),
		MonitorWidth:      getEnvInt("MONITOR_WIDTH", 1920),
		StopKey:           strings.ToLower(getEnv("STOP_KEY", "esc")),
		AcceptThreshold:   getEnvFloat("ACCEPT_THRESHOLD", 0.75),
		ProximityPx:       getEnvInt("PROXIMITY_PX", 50),
		TemplateFloor:     getEnvFloat("TEMPLATE_FLOOR", 0.5),
		VerifyThreshold:   getEnvFloat("VERIFY_THRESHOLD", 0.8),
		SSIMWindow:        getEnvInt("SSIM_WINDOW", 7),
		SettleDelay:       getEnvSeconds("SETTLE_DELAY", 5*time.Second),
		RelocateThreshold: getEnvFloat("RELOCATE_THRESHOLD", 0.8),
		OCRAddr:           getEnv("OCR_ADDR", "localhost:50051"),
		OCRTimeout:        getEnvSeconds("OCR_TIMEOUT", 10*time.Second),
		WatchAddr:         getEnv("WATCH_ADDR", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// getEnvSeconds accepts either fractional seconds ("2.5") or a Go duration ("250ms").
func getEnvSeconds(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
		return time.Duration(f * float64(time.Second))
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	return def
}
