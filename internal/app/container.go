package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/config"
	httpx "github.com/you/accountsvc/internal/http"
	"github.com/you/accountsvc/internal/http/handlers"
	"github.com/you/accountsvc/internal/infrastructure/auth"
	"github.com/you/accountsvc/internal/infrastructure/database"
	"github.com/you/accountsvc/internal/infrastructure/notifications"
	"github.com/you/accountsvc/internal/infrastructure/repositories"
	"github.com/you/accountsvc/internal/logging"
	"github.com/you/accountsvc/internal/services"
)

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config
	Logger zerolog.Logger

	// Infrastructure
	DB    *gorm.DB
	Redis *database.RedisClient

	// Repositories
	AccountRepo domain.AccountRepository
	OTPRepo     domain.OTPRepository

	// Services
	PasswordSvc     domain.PasswordService
	TokenSvc        domain.TokenService
	NotificationSvc domain.NotificationService
	AuditLogger     domain.AuditLogger
	OTPSvc          domain.OTPService
	ResetSvc        domain.ResetTokenService
	AccountSvc      domain.AccountService
	PolicySvc       *services.PolicyServiceImpl
}

// NewContainer connects to the stores and builds every service.
func NewContainer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	if err := c.initDatabase(); err != nil {
		return nil, err
	}
	if err := c.initRedis(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	c.initRepositories()

	if err := c.initServices(); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

func (c *Container) initDatabase() error {
	db, err := database.Open(c.Config.DSN, c.Config.DBLogLevel)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	c.DB = db

	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	return nil
}

func (c *Container) initRedis(ctx context.Context) error {
	c.Redis = database.NewRedis(c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB)
	return c.Redis.Ping(ctx)
}

func (c *Container) initRepositories() {
	c.AccountRepo = repositories.NewAccountRepository(c.DB)
	c.OTPRepo = repositories.NewOTPRepository(c.Redis.Client, c.Config.OTP.Retention)
}

func (c *Container) initServices() error {
	c.PasswordSvc = auth.NewPasswordService()
	c.TokenSvc = auth.NewJWTService(c.Config.JWT.Secret, c.Config.JWT.Issuer, c.Config.JWT.TTL)
	c.NotificationSvc = notifications.NewNotificationService(c.Config.SMTP, !c.Config.IsProduction(), c.Logger)
	c.AuditLogger = logging.NewAuditLogger(c.Logger)

	c.OTPSvc = services.NewOTPService(c.OTPRepo, services.OTPConfig{
		TTL:         c.Config.OTP.TTL,
		MaxAttempts: c.Config.OTP.MaxAttempts,
	}, c.Logger)
	c.ResetSvc = services.NewResetTokenService(c.AccountRepo, c.Config.ResetTTL)

	c.AccountSvc = services.NewAccountService(
		c.AccountRepo,
		c.PasswordSvc,
		c.TokenSvc,
		c.OTPSvc,
		c.ResetSvc,
		c.NotificationSvc,
		c.AuditLogger,
		c.Logger,
		services.AccountConfig{OTPTTL: c.Config.OTP.TTL, ResetTTL: c.Config.ResetTTL},
	)

	cas, err := auth.NewCasbinService(c.DB, c.Config.CasbinModelPath)
	if err != nil {
		return fmt.Errorf("init casbin: %w", err)
	}
	c.PolicySvc = services.NewPolicyService(cas.E)
	if err := c.PolicySvc.Seed(services.DefaultRoutePolicies(httpx.UsersPrefix)); err != nil {
		return fmt.Errorf("seed policies: %w", err)
	}

	return nil
}

// HealthChecks probes the database and redis.
func (c *Container) HealthChecks() []handlers.HealthCheck {
	return []handlers.HealthCheck{
		{Name: "database", Check: func(ctx context.Context) error {
			sqlDB, err := c.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		{Name: "redis", Check: c.Redis.Ping},
	}
}

// Close closes all connections
func (c *Container) Close() error {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}
