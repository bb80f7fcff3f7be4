package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	PostgresURI         string
	RedisURI            string
	MongoURI            string // optional; empty disables the activity log
	StoreBackend        string // "postgres" or "memory"
	EncryptionKey       string
	Port                string
	FrontendURL         string
	AllowedOrigins      []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	Host                string   // Raw HOST env (e.g. https://api.reflect.app)
	AllowedHost         string   // Hostname only for strict host check (production only)
	Environment         string   // ENV: production, development, etc.

	// Identity provider. When JWKSURL is empty, tokens are verified with
	// IdentitySigningSecret (HS256), which is only meant for local runs.
	IdentityJWKSURL       string
	IdentityIssuer        string
	IdentitySigningSecret string

	PixabayAPIKey  string
	PixabayBaseURL string

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	PublishRateCapacity int
	PublishRateInterval time.Duration
	ViewCacheTTL        time.Duration
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:8080")

	// AllowedHost is only set in production; host check is skipped in development
	var allowedHost string
	if env == "production" {
		allowedHost = bareHost(host)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", ""), getEnv("FRONTEND_URL_3", "")} {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	// When HOST is a backend host (e.g. api.reflect.app), always add https://domain and https://www.domain
	hostForCORS := bareHost(host)
	if hostForCORS != "" && hostForCORS != "localhost" {
		parts := strings.Split(hostForCORS, ".")
		if len(parts) >= 2 {
			domain := strings.Join(parts[1:], ".")
			for _, origin := range []string{"https://" + domain, "https://www." + domain} {
				if !containsOrigin(allowedOrigins, origin) {
					allowedOrigins = append(allowedOrigins, origin)
				}
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	return &Config{
		PostgresURI:           getEnv("POSTGRES_URI", "postgres://localhost:5432/reflect?sslmode=disable"),
		RedisURI:              getEnv("REDIS_URI", "redis://localhost:6379/0"),
		MongoURI:              getEnv("MONGODB_URI", getEnv("MONGO_URI", "")),
		StoreBackend:          strings.ToLower(getEnv("STORE_BACKEND", "postgres")),
		EncryptionKey:         getEnv("ENCRYPTION_KEY", ""),
		Host:                  host,
		AllowedHost:           allowedHost,
		Environment:           env,
		Port:                  getEnv("PORT", "8080"),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins:        allowedOrigins,
		IdentityJWKSURL:       getEnv("IDENTITY_JWKS_URL", ""),
		IdentityIssuer:        getEnv("IDENTITY_ISSUER", ""),
		IdentitySigningSecret: getEnv("IDENTITY_SIGNING_SECRET", "dev-signing-secret-change-me"),
		PixabayAPIKey:         getEnv("PIXABAY_API_KEY", ""),
		PixabayBaseURL:        getEnv("PIXABAY_BASE_URL", "https://pixabay.com/api/"),
		CloudinaryName:        getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:      getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret:   getEnv("CLOUDINARY_API_SECRET", ""),
		PublishRateCapacity:   getEnvInt("PUBLISH_RATE_CAPACITY", 10),
		PublishRateInterval:   getEnvDuration("PUBLISH_RATE_INTERVAL", time.Hour),
		ViewCacheTTL:          getEnvDuration("VIEW_CACHE_TTL", 10*time.Minute),
	}
}

// bareHost strips scheme, path and port from a URL-ish host string.
func bareHost(host string) string {
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.TrimSpace(host)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
