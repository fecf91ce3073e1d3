package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const devJWTSecret = "dev-only-insecure-secret"

type Config struct {
	Env  string `env:"APP_ENV, default=dev"`
	Port int    `env:"PORT, default=8080"`

	// DATABASE_URL wins over the DB_* parts when set.
	DBURL string `env:"DATABASE_URL"`
	DB    DBConfig

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"JWT_TTL, default=24h"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	AdminName     string `env:"ADMIN_NAME, default=admin"`

	Redis    RedisConfig
	CacheTTL time.Duration `env:"CACHE_TTL, default=30s"`

	OTLPEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string  `env:"OTEL_SERVICE_NAME, default=coursehub"`
	TraceRatio   float64 `env:"OTEL_TRACES_SAMPLER_ARG, default=1"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
	MaxBodyBytes       int64    `env:"MAX_BODY_BYTES, default=1048576"`
	AutoMigrate        bool     `env:"AUTO_MIGRATE, default=true"`
}

type DBConfig struct {
	Host     string `env:"DB_HOST, default=127.0.0.1"`
	Port     string `env:"DB_PORT, default=5432"`
	User     string `env:"DB_USER, default=coursehub"`
	Password string `env:"DB_PASSWORD, default=coursehub"`
	Name     string `env:"DB_NAME, default=coursehub"`
	SSLMode  string `env:"DB_SSLMODE, default=disable"`
}

// RedisConfig leaves Addr empty by default, which selects the in-process cache.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

// Load reads an optional .env file, then the process environment.
func Load(ctx context.Context) (Config, error) {
	// a missing .env is normal outside local dev
	_ = godotenv.Load()

	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config

	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	})
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if cfg.DBURL == "" {
		cfg.DBURL = buildDBURL(cfg.DB)
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDev() {
			return Config{}, errors.New("load config: JWT_SECRET is required outside dev")
		}
		cfg.JWTSecret = devJWTSecret
	}

	if cfg.TokenTTL <= 0 {
		return Config{}, errors.New("load config: JWT_TTL must be positive")
	}

	return cfg, nil
}

func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "test"
}

func buildDBURL(db DBConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.User, db.Password),
		Host:     db.Host + ":" + db.Port,
		Path:     "/" + db.Name,
		RawQuery: "sslmode=" + url.QueryEscape(db.SSLMode),
	}
	return u.String()
}

// WithTimeout bounds one handler's downstream work while keeping the request
// context's values and cancellation.
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, duration)
}
