package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/inkpot/blog/internal/api"
	"github.com/inkpot/blog/internal/api/handler"
	"github.com/inkpot/blog/internal/core/ports"
	"github.com/inkpot/blog/internal/core/service"
	"github.com/inkpot/blog/internal/infrastructure/fs"
	"github.com/inkpot/blog/internal/infrastructure/markdown"
	"github.com/inkpot/blog/internal/infrastructure/session"
	"github.com/inkpot/blog/internal/pkg/config"
	"github.com/inkpot/blog/pkg/logger"
)

const (
	defaultDevPassword = "admin123"
	shutdownTimeout    = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the blog HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "blog",
	})

	repo, err := fs.NewOsPostRepository(cfg.PostsDir)
	if err != nil {
		return err
	}

	sessions, closeSessions, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	passwordHash, err := adminPasswordHash(cfg, log)
	if err != nil {
		return err
	}
	secret, err := sessionSecret(cfg, log)
	if err != nil {
		return err
	}

	posts := service.NewPostService(
		repo,
		markdown.NewGoldmarkRenderer(markdown.Options{
			UnsafeHTML: cfg.Markdown.UnsafeHTML,
			HardWraps:  cfg.Markdown.HardWraps,
		}),
		log.With().Str("component", "posts").Logger(),
	)
	auth := service.NewAuthService(cfg.Admin.Username, passwordHash, sessions, secret, cfg.Session.TTL)

	e, err := api.NewRouter(api.Deps{
		Posts:      posts,
		Auth:       auth,
		Logger:     log,
		Checks:     map[string]handler.Pinger{"posts": repo, "sessions": sessions},
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("posts_dir", cfg.PostsDir).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openSessionStore(ctx context.Context, cfg *config.Config) (ports.SessionStore, func(), error) {
	if cfg.Session.Store == config.SessionStoreRedis {
		store, err := session.ConnectRedis(ctx, session.RedisConfig{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
	return session.NewMemoryStore(), func() {}, nil
}

// adminPasswordHash prefers a configured bcrypt hash, then a plain password,
// then the development default.
func adminPasswordHash(cfg *config.Config, log zerolog.Logger) (string, error) {
	if cfg.Admin.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(cfg.Admin.PasswordHash)); err != nil {
			return "", fmt.Errorf("ADMIN_PASSWORD_HASH is not a bcrypt hash: %w", err)
		}
		return cfg.Admin.PasswordHash, nil
	}

	password := cfg.Admin.Password
	if password == "" {
		if !cfg.IsDevelopment() {
			return "", errors.New("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD is required outside development")
		}
		log.Warn().Str("username", cfg.Admin.Username).Msg("using the default development password")
		password = defaultDevPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash admin password: %w", err)
	}
	return string(hash), nil
}

// sessionSecret returns the configured signing secret, or a random one for
// this process in development.
func sessionSecret(cfg *config.Config, log zerolog.Logger) (string, error) {
	if cfg.Session.Secret != "" {
		return cfg.Session.Secret, nil
	}
	if !cfg.IsDevelopment() {
		return "", errors.New("SESSION_SECRET is required outside development")
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	log.Warn().Msg("SESSION_SECRET not set; sessions will not survive a restart")
	return hex.EncodeToString(b), nil
}
