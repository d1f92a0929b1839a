package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/grazios/oshijiku/ratelimit"
)

const (
	DefaultPort          = 3318
	DefaultPublicBaseURL = "https://oshijiku.com"
)

type Config struct {
	Port           int
	DatabaseURL    string
	DatabaseType   string
	RedisURL       string
	PublicBaseURL  string
	AllowedOrigins []string
	AllowLocalhost bool
	TrustProxy     bool
	RateCreate     int
	RateDelete     int
	RateFetch      int
	LockTimeout    time.Duration
	IPHashSalt     string
}

// Budgets returns the per-hour rate limit budget of each scope.
func (c Config) Budgets() map[ratelimit.Scope]int {
	return map[ratelimit.Scope]int{
		ratelimit.ScopeCreate: c.RateCreate,
		ratelimit.ScopeDelete: c.RateDelete,
		ratelimit.ScopeFetch:  c.RateFetch,
	}
}

// ShareURL is the canonical link for a share id.
func (c Config) ShareURL(shareID string) string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/?s=" + shareID
}

// ParseFlags validates flags and falls back to the environment, which may be
// seeded from a .env file in the working directory.
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	// Missing .env is fine
	_ = godotenv.Load()

	fs := flag.NewFlagSet("oshijiku", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite, postgres or pgx)")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL for shared rate limiting")
	fs.StringVar(&cfg.PublicBaseURL, "base-url", "", "Public base URL used in share links")
	origins := fs.String("origins", "", "Comma separated list of allowed origins")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.IPHashSalt, "ip-salt", "", "Salt for hashing client addresses (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	switch cfg.DatabaseType {
	case "sqlite", "postgres", "pgx":
	default:
		return Config{}, errors.New("DATABASE_TYPE must be sqlite, postgres or pgx")
	}

	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}

	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = getenv("PUBLIC_BASE_URL", DefaultPublicBaseURL)
	}

	if *origins == "" {
		*origins = os.Getenv("ALLOWED_ORIGINS")
	}
	cfg.AllowedOrigins = splitList(*origins)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{strings.TrimRight(cfg.PublicBaseURL, "/")}
	}

	var err error
	if cfg.AllowLocalhost, err = getenvBool("ALLOW_LOCALHOST", true); err != nil {
		return Config{}, err
	}
	if cfg.TrustProxy, err = getenvBool("TRUST_PROXY", false); err != nil {
		return Config{}, err
	}
	if cfg.RateCreate, err = getenvInt("RATE_CREATE_PER_HOUR", ratelimit.DefaultBudgets[ratelimit.ScopeCreate]); err != nil {
		return Config{}, err
	}
	if cfg.RateDelete, err = getenvInt("RATE_DELETE_PER_HOUR", ratelimit.DefaultBudgets[ratelimit.ScopeDelete]); err != nil {
		return Config{}, err
	}
	if cfg.RateFetch, err = getenvInt("RATE_FETCH_PER_HOUR", ratelimit.DefaultBudgets[ratelimit.ScopeFetch]); err != nil {
		return Config{}, err
	}
	cfg.LockTimeout = ratelimit.DefaultLockTimeout
	if v := os.Getenv("RATE_LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, errors.New("invalid RATE_LOCK_TIMEOUT env variable")
		}
		cfg.LockTimeout = d
	}

	if cfg.IPHashSalt == "" {
		cfg.IPHashSalt = os.Getenv("IP_HASH_SALT")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + key + " env variable")
	}
	return n, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, errors.New("invalid " + key + " env variable")
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimRight(strings.TrimSpace(part), "/"); part != "" {
			out = append(out, part)
		}
	}
	return out
}
