package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the screening service
type Config struct {
	Port                 string
	GinMode              string
	JWTSecret            string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	ModelBackend         string
	ScalerPath           string
	ClassifierPath       string
	ONNXModelPath        string
	ONNXLibraryPath      string
	InferenceURL         string
	DatabaseURL          string
	ModelName            string
	CORSOrigins          []string
}

// Load reads the configuration from the environment, after applying an
// optional .env file in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ttl, err := getDuration("SESSION_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	sweep, err := getDuration("SESSION_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		GinMode:              getEnv("GIN_MODE", "release"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		SessionTTL:           ttl,
		SessionSweepInterval: sweep,
		ModelBackend:         strings.ToLower(getEnv("MODEL_BACKEND", "local")),
		ScalerPath:           getEnv("SCALER_PATH", "models/scaler.json"),
		ClassifierPath:       getEnv("CLASSIFIER_PATH", "models/classifier.json"),
		ONNXModelPath:        getEnv("ONNX_MODEL_PATH", "models/classifier.onnx"),
		ONNXLibraryPath:      os.Getenv("ONNX_LIBRARY_PATH"),
		InferenceURL:         os.Getenv("INFERENCE_URL"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		ModelName:            getEnv("MODEL_NAME", "diabetes"),
		CORSOrigins:          splitList(getEnv("CORS_ORIGINS", "*")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects missing or inconsistent settings
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.SessionSweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive, got %s", c.SessionSweepInterval)
	}

	switch c.ModelBackend {
	case "local":
		if c.ScalerPath == "" || c.ClassifierPath == "" {
			return errors.New("local backend requires SCALER_PATH and CLASSIFIER_PATH")
		}
	case "onnx":
		if c.ScalerPath == "" || c.ONNXModelPath == "" {
			return errors.New("onnx backend requires SCALER_PATH and ONNX_MODEL_PATH")
		}
	case "remote":
		if c.InferenceURL == "" {
			return errors.New("remote backend requires INFERENCE_URL")
		}
	case "registry":
		if c.DatabaseURL == "" {
			return errors.New("registry backend requires DATABASE_URL")
		}
		if c.ModelName == "" {
			return errors.New("registry backend requires MODEL_NAME")
		}
	default:
		return fmt.Errorf("unknown MODEL_BACKEND %q", c.ModelBackend)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
