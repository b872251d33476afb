package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	STT       STTConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	// TrustProxyHeaders takes the client address from X-Forwarded-For / X-Real-IP. Enable it
	// only behind a proxy that overwrites those headers; otherwise callers pick their own
	// rate-limit key.
	TrustProxyHeaders bool
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

type STTConfig struct {
	Backend           string // "assemblyai" or "openai"
	AssemblyAIKey     string
	AssemblyAIBaseURL string
	OpenAIKey         string
	OpenAIBaseURL     string
	OpenAIModel       string
	PollInterval      time.Duration
	Timeout           time.Duration
	MaxAudioBytes     int64
	SpoolDir          string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

const (
	BackendAssemblyAI = "assemblyai"
	BackendOpenAI     = "openai"
)

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	tokenTTL, err := getEnvDuration("JWT_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	bcryptCost, err := getEnvInt("BCRYPT_COST", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	pollInterval, err := getEnvDuration("STT_POLL_INTERVAL", 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid STT_POLL_INTERVAL: %w", err)
	}

	sttTimeout, err := getEnvDuration("STT_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid STT_TIMEOUT: %w", err)
	}

	maxAudio, err := getEnvInt("STT_MAX_AUDIO_BYTES", 25<<20)
	if err != nil {
		return nil, fmt.Errorf("invalid STT_MAX_AUDIO_BYTES: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	trustProxy, err := getEnvBool("TRUST_PROXY_HEADERS", false)
	if err != nil {
		return nil, fmt.Errorf("invalid TRUST_PROXY_HEADERS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:              getEnv("SERVER_HOST", "0.0.0.0"),
			Port:              port,
			AllowedOrigins:    splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
			TrustProxyHeaders: trustProxy,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			TokenTTL:   tokenTTL,
			BcryptCost: bcryptCost,
		},
		STT: STTConfig{
			Backend:           strings.ToLower(getEnv("STT_BACKEND", BackendAssemblyAI)),
			AssemblyAIKey:     getEnv("ASSEMBLYAI_API_KEY", ""),
			AssemblyAIBaseURL: getEnv("ASSEMBLYAI_BASE_URL", "https://api.assemblyai.com"),
			OpenAIKey:         getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:     getEnv("STT_OPENAI_BASE_URL", ""),
			OpenAIModel:       getEnv("STT_OPENAI_MODEL", ""),
			PollInterval:      pollInterval,
			Timeout:           sttTimeout,
			MaxAudioBytes:     int64(maxAudio),
			SpoolDir:          getEnv("STT_SPOOL_DIR", filepath.Join(os.TempDir(), "stt-spool")),
		},
		RateLimit: RateLimitConfig{
			RPS:   rps,
			Burst: burst,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate reports every missing secret at once. Callers treat a failure as fatal.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	switch c.STT.Backend {
	case BackendAssemblyAI:
		if c.STT.AssemblyAIKey == "" {
			missing = append(missing, "ASSEMBLYAI_API_KEY")
		}
	case BackendOpenAI:
		if c.STT.OpenAIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown STT_BACKEND %q", c.STT.Backend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}

	if c.STT.PollInterval <= 0 || c.STT.Timeout <= 0 {
		return fmt.Errorf("STT_POLL_INTERVAL and STT_TIMEOUT must be positive")
	}
	if c.STT.MaxAudioBytes <= 0 {
		return fmt.Errorf("STT_MAX_AUDIO_BYTES must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
