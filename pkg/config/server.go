package config

import (
	"strings"
	"time"
)

// ServerConfig holds runtime configuration for the development token server.
type ServerConfig struct {
	Environment        string
	Addr               string
	DatabaseURL        string
	MigrationsDir      string
	JWTSecret          string
	TokenTTL           time.Duration
	TokenKeyword       string
	RateLimitLogin     int
	RateLimitWindow    time.Duration
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
	SeedUsers          []SeedUser
	LogLevel           string
}

// SeedUser is an account created at startup for the in-memory store.
type SeedUser struct {
	Username string
	Password string
}

// LoadServerConfig constructs a ServerConfig from environment variables.
func LoadServerConfig() ServerConfig {
	return ServerConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("TOKEN_SERVER_ADDR", ":8000"),
		DatabaseURL:        GetString("DATABASE_URL", ""),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		JWTSecret:          GetString("JWT_SECRET", "supersecuresecret"),
		TokenTTL:           GetDuration("TOKEN_TTL_MIN", 60, time.Minute),
		TokenKeyword:       GetString("TOKEN_KEYWORD", "Bearer"),
		RateLimitLogin:     GetInt("RATE_LIMIT_LOGIN", 12),
		RateLimitWindow:    GetDuration("RATE_LIMIT_WINDOW_SECONDS", 60, time.Second),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
		SeedUsers:          ParseSeedUsers(GetString("SEED_USERS", "")),
		LogLevel:           GetString("LOG_LEVEL", "info"),
	}
}

// ParseSeedUsers reads "user:pass,user2:pass2". Entries without a colon or
// with an empty username are skipped.
func ParseSeedUsers(raw string) []SeedUser {
	var users []SeedUser
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, pass, ok := strings.Cut(entry, ":")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		users = append(users, SeedUser{Username: strings.TrimSpace(name), Password: pass})
	}
	return users
}
