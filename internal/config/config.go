package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// minSigningKeyLength はHS256署名鍵として受け付ける最小バイト数。
const minSigningKeyLength = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// 各ハンドラーやサービスにはこの値（またはその一部）を明示的に渡す。
type Config struct {
	// Database
	DatabaseURL string

	// Token
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	JWTTTL        time.Duration

	// Lockout
	LockoutEnabled           bool
	LockoutMaxFailedAttempts int
	LockoutDuration          time.Duration

	// Password policy
	PasswordMinLength int

	// Authorization
	DeleteClaimType  string
	DeleteClaimValue string

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitAuth    int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSigningKey = os.Getenv("JWT_SIGNING_KEY")
	if cfg.JWTSigningKey == "" {
		missing = append(missing, "JWT_SIGNING_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if len(cfg.JWTSigningKey) < minSigningKeyLength {
		return nil, fmt.Errorf("JWT_SIGNING_KEY must be at least %d bytes", minSigningKeyLength)
	}

	// Optional fields with defaults
	cfg.JWTIssuer = getEnvString("JWT_ISSUER", "playerapi")
	cfg.JWTAudience = getEnvString("JWT_AUDIENCE", "playerapi")
	cfg.JWTTTL = getEnvDuration("JWT_TTL", time.Hour)
	cfg.LockoutEnabled = getEnvBool("LOCKOUT_ENABLED", true)
	cfg.LockoutMaxFailedAttempts = getEnvInt("LOCKOUT_MAX_FAILED_ATTEMPTS", 3)
	cfg.LockoutDuration = getEnvDuration("LOCKOUT_DURATION", 5*time.Minute)
	cfg.PasswordMinLength = getEnvInt("PASSWORD_MIN_LENGTH", 6)
	cfg.DeleteClaimType = getEnvString("DELETE_CLAIM_TYPE", "permission")
	cfg.DeleteClaimValue = getEnvString("DELETE_CLAIM_VALUE", "player:delete")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 20)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.JWTTTL <= 0 {
		return nil, fmt.Errorf("JWT_TTL must be positive, got %s", cfg.JWTTTL)
	}
	if cfg.LockoutMaxFailedAttempts <= 0 {
		return nil, fmt.Errorf("LOCKOUT_MAX_FAILED_ATTEMPTS must be positive, got %d", cfg.LockoutMaxFailedAttempts)
	}
	if cfg.LockoutDuration <= 0 {
		return nil, fmt.Errorf("LOCKOUT_DURATION must be positive, got %s", cfg.LockoutDuration)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
