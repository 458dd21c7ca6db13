package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string
	AdminEmails []string

	KlingAPIKey       string
	KlingBaseURL      string
	ReplicateAPIToken string
	ReplicateBaseURL  string
	FalAPIKey         string
	FalBaseURL        string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	CatVTONURL        string

	OutputDir        string
	StorageBaseURL   string
	InferenceBaseURL string
	ImgWidth         int
	ImgHeight        int
	TryOnSteps       int
	TryOnGuidance    float64
	MixedPrecision   string
	AcceleratorSlots int

	SendgridAPIKey string
	MailFrom       string

	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		AdminEmails: splitList(os.Getenv("ADMIN_EMAILS")),

		KlingAPIKey:       os.Getenv("KLING_API_KEY"),
		KlingBaseURL:      getEnv("KLING_BASE_URL", "https://api.kling.ai"),
		ReplicateAPIToken: os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateBaseURL:  getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),
		FalAPIKey:         os.Getenv("FAL_API_KEY"),
		FalBaseURL:        getEnv("FAL_BASE_URL", "https://queue.fal.run"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o"),
		CatVTONURL:        os.Getenv("CATVTON_URL"),

		OutputDir:        getEnv("OUTPUT_DIR", "generated_images"),
		StorageBaseURL:   getEnv("STORAGE_BASE_URL", "http://localhost:8080/generated-images"),
		InferenceBaseURL: getEnv("INFERENCE_BASE_URL", "http://localhost:7860"),
		ImgWidth:         getEnvInt("IMG_WIDTH", 768),
		ImgHeight:        getEnvInt("IMG_HEIGHT", 1024),
		TryOnSteps:       getEnvInt("TRYON_STEPS", 50),
		TryOnGuidance:    getEnvFloat("TRYON_GUIDANCE", 2.5),
		MixedPrecision:   getEnv("MIXED_PRECISION", "fp16"),
		AcceleratorSlots: getEnvInt("ACCELERATOR_SLOTS", 1),

		SendgridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		MailFrom:       getEnv("MAIL_FROM", "no-reply@localhost"),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.AcceleratorSlots < 1 {
		cfg.AcceleratorSlots = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
