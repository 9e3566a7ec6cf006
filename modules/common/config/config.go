package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool
	// RedisTLSSkipVerify disables certificate checks for managed Redis
	// endpoints with self-signed certificates.
	RedisTLSSkipVerify bool

	// Supabase
	SupabaseURL            string
	SupabaseServiceKey     string
	SupabaseStorageBaseURL string
	SupabaseStorageBucket  string

	// Gemini API
	GeminiAPIKey      string
	GeminiImageModel  string
	GeminiVisionModel string
	GeminiTextModel   string
	GeminiCallTimeout time.Duration

	// Storage backend ("supabase" | "r2")
	StorageBackend    string
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	// Bulk pipeline
	ImageConcurrency int
	GroupChunkSize   int
	RetrySchedule    []time.Duration
	BatchLockTTL     time.Duration
	WebPQuality      float32

	// Server
	Port string
}

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	return LoadConfigFrom("")
}

// LoadConfigFrom loads an explicit env file (CLI --env flag). An empty path
// falls back to ./.env when present.
func LoadConfigFrom(envFile string) (*Config, error) {
	var err error
	if envFile != "" {
		err = godotenv.Load(envFile)
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Redis: %s:%s (TLS: %v)", cfg.RedisHost, cfg.RedisPort, cfg.RedisUseTLS)
	log.Printf("   Supabase: %s", cfg.SupabaseURL)
	log.Printf("   Gemini: image=%s vision=%s text=%s (timeout %s)",
		cfg.GeminiImageModel, cfg.GeminiVisionModel, cfg.GeminiTextModel, cfg.GeminiCallTimeout)
	log.Printf("   Storage: %s", cfg.StorageBackend)
	log.Printf("   Bulk: concurrency=%d chunk=%d retry=%v", cfg.ImageConcurrency, cfg.GroupChunkSize, cfg.RetrySchedule)

	return cfg, nil
}

func fromEnv() (*Config, error) {
	schedule, err := parseSchedule(getEnv("BULK_RETRY_SCHEDULE_MS", "1000,2000,4000"))
	if err != nil {
		return nil, fmt.Errorf("BULK_RETRY_SCHEDULE_MS: %w", err)
	}

	return &Config{
		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   getEnvAsBool("REDIS_USE_TLS", true),

		RedisTLSSkipVerify: getEnvAsBool("REDIS_TLS_SKIP_VERIFY", true),

		// Supabase
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:     getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBaseURL: getEnv("SUPABASE_STORAGE_BASE_URL", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "bulk-assets"),

		// Gemini API
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiImageModel:  getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiVisionModel: getEnv("GEMINI_VISION_MODEL", "gemini-2.5-flash"),
		GeminiTextModel:   getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiCallTimeout: time.Duration(getEnvAsInt("GEMINI_CALL_TIMEOUT_SECONDS", 90)) * time.Second,

		// Storage
		StorageBackend:    strings.ToLower(getEnv("STORAGE_BACKEND", "supabase")),
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		// Bulk pipeline
		ImageConcurrency: getEnvAsInt("BULK_IMAGE_CONCURRENCY", 3),
		GroupChunkSize:   getEnvAsInt("BULK_GROUP_CHUNK_SIZE", 10),
		RetrySchedule:    schedule,
		BatchLockTTL:     time.Duration(getEnvAsInt("BULK_LOCK_TTL_MINUTES", 60)) * time.Minute,
		WebPQuality:      float32(getEnvAsFloat("WEBP_QUALITY", 90)),

		// Server
		Port: getEnv("PORT", "8080"),
	}, nil
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	switch c.StorageBackend {
	case "supabase":
	case "r2":
		if c.R2AccountID == "" || c.R2AccessKeyID == "" || c.R2SecretAccessKey == "" || c.R2BucketName == "" {
			return fmt.Errorf("R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME are required for STORAGE_BACKEND=r2")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND: %s", c.StorageBackend)
	}
	if c.ImageConcurrency <= 0 {
		return fmt.Errorf("BULK_IMAGE_CONCURRENCY must be positive")
	}
	if c.GroupChunkSize <= 0 {
		return fmt.Errorf("BULK_GROUP_CHUNK_SIZE must be positive")
	}
	return nil
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// parseSchedule parses a comma separated list of millisecond delays.
func parseSchedule(raw string) ([]time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	schedule := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		ms, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid delay %q: %w", part, err)
		}
		if ms < 0 {
			return nil, fmt.Errorf("negative delay %d", ms)
		}
		schedule = append(schedule, time.Duration(ms)*time.Millisecond)
	}
	return schedule, nil
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
