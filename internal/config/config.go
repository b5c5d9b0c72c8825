package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Port               string
	Environment        string
	FrontendURL        string
	DatabaseURL        string
	SessionCookieName  string
	SessionTTL         time.Duration
	LoginPath          string
	DefaultLandingPath string
	ProtectedPaths     []string
	AccessFile         string
	BcryptCost         int
	LoginRateLimitRPS  float64
	NotificationTTL    time.Duration
	LookupTimeout      time.Duration
}

// DefaultProtectedPaths lists the route prefixes that require a session
// cookie before the request reaches its handler.
var DefaultProtectedPaths = []string{
	"/dashboard",
	"/casos",
	"/usuarios",
	"/pagos",
	"/baremos",
	"/aseguradoras",
	"/auditoria",
	"/reportes",
	"/perfil",
	"/clientes/:path*",
}

func Load() Config {
	return Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        getEnv("APP_ENV", "development"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SessionCookieName:  getEnv("SESSION_COOKIE_NAME", "cgm_session"),
		SessionTTL:         getDuration("SESSION_TTL", 24*time.Hour),
		LoginPath:          getEnv("LOGIN_PATH", "/login"),
		DefaultLandingPath: getEnv("DEFAULT_LANDING_PATH", "/dashboard"),
		ProtectedPaths:     getList("PROTECTED_PATHS", DefaultProtectedPaths),
		AccessFile:         os.Getenv("ACCESS_FILE"),
		BcryptCost:         int(getInt("BCRYPT_COST", int64(bcrypt.DefaultCost))),
		LoginRateLimitRPS:  getFloat("LOGIN_RATE_LIMIT_RPS", 1),
		NotificationTTL:    getDuration("NOTIFICATION_TTL", 5*time.Second),
		LookupTimeout:      getDuration("LOOKUP_TIMEOUT", 3*time.Second),
	}
}

// Production reports whether cookies must carry the Secure flag.
func (c Config) Production() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
