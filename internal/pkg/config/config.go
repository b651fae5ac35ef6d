package config

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	PostsDir string `env:"POSTS_DIR, default=blog_posts"`

	Admin    AdminConfig
	Session  SessionConfig
	Redis    RedisConfig
	Markdown MarkdownConfig
}

// AdminConfig is the blog's single credential. PasswordHash (bcrypt) wins
// over Password when both are set.
type AdminConfig struct {
	Username     string `env:"ADMIN_USERNAME,      default=admin"`
	PasswordHash string `env:"ADMIN_PASSWORD_HASH"`
	Password     string `env:"ADMIN_PASSWORD"`
}

type SessionConfig struct {
	Secret string        `env:"SESSION_SECRET"`
	TTL    time.Duration `env:"SESSION_TTL,   default=24h"`
	Store  string        `env:"SESSION_STORE, default=memory"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type MarkdownConfig struct {
	UnsafeHTML bool `env:"MARKDOWN_UNSAFE_HTML, default=false"`
	HardWraps  bool `env:"MARKDOWN_HARD_WRAPS,  default=false"`
}

// IsDevelopment reports whether the server runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads a .env file when present, then configuration from environment
// variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}

	switch cfg.Session.Store {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return nil, fmt.Errorf("config: SESSION_STORE must be %q or %q, got %q", SessionStoreMemory, SessionStoreRedis, cfg.Session.Store)
	}
	return &cfg, nil
}
