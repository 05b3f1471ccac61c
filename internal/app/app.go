package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/you/accountsvc/internal/config"
	httpx "github.com/you/accountsvc/internal/http"
	"github.com/you/accountsvc/internal/http/handlers"
	"github.com/you/accountsvc/internal/http/middleware"
)

const shutdownTimeout = 10 * time.Second

// NewServer builds the HTTP server for an initialized container.
func NewServer(c *Container) *http.Server {
	cfg := c.Config
	gin.SetMode(cfg.GinMode)

	router := httpx.BuildRouter(httpx.RouterDeps{
		Accounts: handlers.NewAccountHandlers(c.AccountSvc, handlers.CookieConfig{
			TTL:    cfg.JWT.CookieTTL,
			Secure: cfg.IsProduction(),
		}, cfg.OTP.TTL),
		Policies:       handlers.NewPolicyHandlers(c.PolicySvc),
		Health:         handlers.NewHealthHandlers(c.HealthChecks()...),
		Auth:           middleware.NewAuthMW(c.AccountSvc),
		Casbin:         middleware.NewCasbinMW(c.PolicySvc, c.AuditLogger, c.Logger),
		Logger:         c.Logger,
		DetailedErrors: !cfg.IsProduction(),
	})

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	c, err := NewContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error().Err(err).Msg("close connections")
		}
	}()

	srv := NewServer(c)
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
