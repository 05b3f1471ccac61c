package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is read when ACCOUNTSVC_CONFIG is unset.
	DefaultPath = "config/config.yml"
	pathEnv     = "ACCOUNTSVC_CONFIG"
	envPrefix   = "ACCOUNTSVC_"

	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type AppConfig struct {
	Port         int    `yaml:"port" env:"PORT"`
	Env          string `yaml:"env" env:"ENV"`
	GinMode      string `yaml:"gin_mode" env:"GIN_MODE"`
	LogLevel     string `yaml:"log_level" env:"LOG_LEVEL"`
	LogPretty    bool   `yaml:"log_pretty" env:"LOG_PRETTY"`
	ReadTimeout  string `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout string `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn" env:"DSN"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

type JWTConfig struct {
	Secret    string `yaml:"secret" env:"SECRET"`
	Issuer    string `yaml:"issuer" env:"ISSUER"`
	TTL       string `yaml:"ttl" env:"TTL"`
	CookieTTL string `yaml:"cookie_ttl" env:"COOKIE_TTL"`
}

type OTPConfig struct {
	TTL         string `yaml:"ttl" env:"TTL"`
	MaxAttempts int    `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	Retention   string `yaml:"retention" env:"RETENTION"`
}

type ResetConfig struct {
	TTL string `yaml:"ttl" env:"TTL"`
}

type SMTPConfig struct {
	Host        string `yaml:"host" env:"HOST"`
	Port        int    `yaml:"port" env:"PORT"`
	Username    string `yaml:"username" env:"USERNAME"`
	Password    string `yaml:"password" env:"PASSWORD"`
	From        string `yaml:"from" env:"FROM"`
	Secure      bool   `yaml:"secure" env:"SECURE"`
	DialTimeout string `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
}

type CasbinConfig struct {
	ModelPath string `yaml:"model_path" env:"MODEL_PATH"`
}

// ConfigFile mirrors config.yml. Every field can be overridden by an
// ACCOUNTSVC_<SECTION>_<KEY> environment variable.
type ConfigFile struct {
	App      AppConfig      `yaml:"app" envPrefix:"APP_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"REDIS_"`
	JWT      JWTConfig      `yaml:"jwt" envPrefix:"JWT_"`
	OTP      OTPConfig      `yaml:"otp" envPrefix:"OTP_"`
	Reset    ResetConfig    `yaml:"reset" envPrefix:"RESET_"`
	SMTP     SMTPConfig     `yaml:"smtp" envPrefix:"SMTP_"`
	Casbin   CasbinConfig   `yaml:"casbin" envPrefix:"CASBIN_"`
}

// JWTSettings configures session tokens and the session cookie.
type JWTSettings struct {
	Secret    string
	Issuer    string
	TTL       time.Duration
	CookieTTL time.Duration
}

// OTPSettings configures email verification codes.
type OTPSettings struct {
	TTL         time.Duration
	MaxAttempts int
	Retention   time.Duration
}

// SMTPSettings configures the email sink. An empty Host selects the
// log-only sink.
type SMTPSettings struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	Secure      bool
	DialTimeout time.Duration
}

// Enabled reports whether SMTP delivery is configured.
func (s SMTPSettings) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

type Config struct {
	Port            string
	Env             string
	GinMode         string
	LogLevel        string
	LogPretty       bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	DSN             string
	DBLogLevel      string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	JWT             JWTSettings
	OTP             OTPSettings
	ResetTTL        time.Duration
	SMTP            SMTPSettings
	CasbinModelPath string
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Defaults returns the configuration used for keys absent from the file
// and the environment.
func Defaults() ConfigFile {
	return ConfigFile{
		App: AppConfig{
			Port:         4000,
			Env:          EnvDevelopment,
			GinMode:      "release",
			LogLevel:     "info",
			ReadTimeout:  "15s",
			WriteTimeout: "15s",
		},
		Database: DatabaseConfig{LogLevel: "warn"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		JWT: JWTConfig{
			Issuer:    "accountsvc",
			TTL:       "2160h",
			CookieTTL: "2160h",
		},
		OTP: OTPConfig{
			TTL:         "10m",
			MaxAttempts: 5,
			Retention:   "1h",
		},
		Reset: ResetConfig{TTL: "10m"},
		SMTP: SMTPConfig{
			Port:        587,
			DialTimeout: "10s",
		},
	}
}

// Load reads the optional .env file, the YAML file named by
// ACCOUNTSVC_CONFIG (or DefaultPath) and the environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	path, explicit := os.LookupEnv(pathEnv)
	if !explicit {
		path = DefaultPath
	}

	cfg, err := LoadFile(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return loadFrom(Defaults())
	}
	return cfg, err
}

// LoadFile builds a Config from defaults, the YAML file at path and the
// environment, then validates it.
func LoadFile(path string) (*Config, error) {
	file := Defaults()
	if err := loadConfigFile(path, &file); err != nil {
		return nil, err
	}
	return loadFrom(file)
}

func loadFrom(file ConfigFile) (*Config, error) {
	if err := env.ParseWithOptions(&file, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg, err := file.resolve()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f ConfigFile) resolve() (*Config, error) {
	var parseErr error
	duration := func(name, value string) time.Duration {
		d, err := time.ParseDuration(value)
		if err != nil && parseErr == nil {
			parseErr = fmt.Errorf("invalid %s: %w", name, err)
		}
		return d
	}

	cfg := &Config{
		Port:          fmt.Sprintf("%d", f.App.Port),
		Env:           strings.ToLower(strings.TrimSpace(f.App.Env)),
		GinMode:       f.App.GinMode,
		LogLevel:      f.App.LogLevel,
		LogPretty:     f.App.LogPretty,
		ReadTimeout:   duration("app read timeout", f.App.ReadTimeout),
		WriteTimeout:  duration("app write timeout", f.App.WriteTimeout),
		DSN:           f.Database.DSN,
		DBLogLevel:    f.Database.LogLevel,
		RedisAddr:     f.Redis.Addr,
		RedisPassword: f.Redis.Password,
		RedisDB:       f.Redis.DB,
		JWT: JWTSettings{
			Secret:    f.JWT.Secret,
			Issuer:    f.JWT.Issuer,
			TTL:       duration("JWT TTL", f.JWT.TTL),
			CookieTTL: duration("JWT cookie TTL", f.JWT.CookieTTL),
		},
		OTP: OTPSettings{
			TTL:         duration("OTP TTL", f.OTP.TTL),
			MaxAttempts: f.OTP.MaxAttempts,
			Retention:   duration("OTP retention", f.OTP.Retention),
		},
		ResetTTL: duration("reset TTL", f.Reset.TTL),
		SMTP: SMTPSettings{
			Host:        f.SMTP.Host,
			Port:        f.SMTP.Port,
			Username:    f.SMTP.Username,
			Password:    f.SMTP.Password,
			From:        f.SMTP.From,
			Secure:      f.SMTP.Secure,
			DialTimeout: duration("SMTP dial timeout", f.SMTP.DialTimeout),
		},
		CasbinModelPath: f.Casbin.ModelPath,
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.JWT.Secret) == "" || c.JWT.Secret == "change" {
		problems = append(problems, "jwt secret must be set")
	}
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		problems = append(problems, fmt.Sprintf("app env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env))
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		problems = append(problems, fmt.Sprintf("app gin mode must be debug, release or test, got %q", c.GinMode))
	}
	if c.JWT.TTL <= 0 || c.JWT.CookieTTL <= 0 {
		problems = append(problems, "jwt ttl and cookie ttl must be positive")
	}
	if c.OTP.TTL <= 0 {
		problems = append(problems, "otp ttl must be positive")
	}
	if c.OTP.MaxAttempts < 1 {
		problems = append(problems, "otp max attempts must be at least 1")
	}
	if c.ResetTTL <= 0 {
		problems = append(problems, "reset ttl must be positive")
	}
	if c.IsProduction() && !c.SMTP.Enabled() {
		problems = append(problems, "smtp host is required in production")
	}
	if c.SMTP.Enabled() && strings.TrimSpace(c.SMTP.From) == "" {
		problems = append(problems, "smtp from address is required when smtp host is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func loadConfigFile(path string, into *ConfigFile) error {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	if err := yaml.Unmarshal(bytes, into); err != nil {
		return fmt.Errorf("could not parse config yaml: %w", err)
	}

	return nil
}
