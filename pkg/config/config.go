package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

const (
	EnvPrefix = "PLAIDBRIDGE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvAppEnv             = "PLAIDBRIDGE_APP_ENV"
	EnvPort               = "PLAIDBRIDGE_APP_PORT"
	EnvLogLevel           = "PLAIDBRIDGE_LOG_LEVEL"
	EnvDBDriver           = "PLAIDBRIDGE_DB_DRIVER"
	EnvDBDSN              = "PLAIDBRIDGE_DB_DSN"
	EnvRedisURL           = "PLAIDBRIDGE_REDIS_URL"
	EnvTokenEncryptionKey = "PLAIDBRIDGE_TOKEN_ENCRYPTION_KEY"
	EnvRateLimitWindow    = "PLAIDBRIDGE_RATE_LIMIT_WINDOW"
	EnvJWTSecret          = "PLAIDBRIDGE_JWT_SECRET"
	EnvSyncInterval       = "PLAIDBRIDGE_SYNC_INTERVAL"
	EnvSyncPageSize       = "PLAIDBRIDGE_SYNC_PAGE_SIZE"

	EnvPlaidClientID     = "PLAID_CLIENT_ID"
	EnvPlaidSecret       = "PLAID_SECRET"
	EnvPlaidEnvironment  = "PLAID_ENVIRONMENT"
	EnvPlaidHTTPTimeout  = "PLAID_HTTP_TIMEOUT"
	EnvPlaidProducts     = "PLAID_PRODUCTS"
	EnvPlaidCountryCodes = "PLAID_COUNTRY_CODES"
	EnvPlaidWebhookURL   = "PLAID_WEBHOOK_URL"
)

// TokenKeySize is the decoded length required for the access token encryption key.
const TokenKeySize = 32

const minJWTSecretLength = 16

// MaxSyncPageSize is the largest count transactions/sync accepts.
const MaxSyncPageSize = 500

type Config struct {
	App          AppConfig
	Plaid        PlaidConfig
	DB           DBConfig
	Redis        RedisConfig
	Security     SecurityConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	Sync         SyncConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadPlaid reads only the PLAID_* variables. Binaries that talk to Plaid
// without the item store use it instead of Load.
func LoadPlaid() (*PlaidConfig, error) {
	var cfg PlaidConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing plaid config: %w", err)
	}
	return &cfg, nil
}

// LoadJWT reads only the caller-token settings, for tools that mint tokens.
func LoadJWT() (*JWTConfig, error) {
	var cfg JWTConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing jwt config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var err error
	err = multierr.Append(err, c.DB.validate())
	err = multierr.Append(err, c.Security.validate())
	err = multierr.Append(err, c.JWT.validate())
	err = multierr.Append(err, c.Sync.validate())
	if c.RateLimit.Window < 0 {
		err = multierr.Append(err, fmt.Errorf("%s must not be negative", EnvRateLimitWindow))
	}
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"PLAIDBRIDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"PLAIDBRIDGE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PLAIDBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PLAIDBRIDGE_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"PLAIDBRIDGE_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// PlaidConfig holds the API credentials plus the defaults used when creating link tokens.
type PlaidConfig struct {
	ClientID     string        `envconfig:"PLAID_CLIENT_ID" required:"true"`
	Secret       string        `envconfig:"PLAID_SECRET" required:"true"`
	Environment  string        `envconfig:"PLAID_ENVIRONMENT" required:"true"`
	HTTPTimeout  time.Duration `envconfig:"PLAID_HTTP_TIMEOUT" default:"30s"`
	ClientName   string        `envconfig:"PLAID_CLIENT_NAME" default:"plaidbridge"`
	Products     []string      `envconfig:"PLAID_PRODUCTS" default:"transactions,auth"`
	CountryCodes []string      `envconfig:"PLAID_COUNTRY_CODES" default:"US"`
	Language     string        `envconfig:"PLAID_LANGUAGE" default:"en"`
	WebhookURL   string        `envconfig:"PLAID_WEBHOOK_URL"`
	RedirectURI  string        `envconfig:"PLAID_REDIRECT_URI"`
}

type DBConfig struct {
	DSN    string `envconfig:"PLAIDBRIDGE_DB_DSN" required:"true"`
	Driver string `envconfig:"PLAIDBRIDGE_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"PLAIDBRIDGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PLAIDBRIDGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PLAIDBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PLAIDBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// DriverName returns the normalized driver, defaulting to postgres.
func (db DBConfig) DriverName() string {
	driver := strings.ToLower(strings.TrimSpace(db.Driver))
	if driver == "" {
		return DBDriverPostgres
	}
	return driver
}

func (db DBConfig) validate() error {
	switch db.DriverName() {
	case DBDriverPostgres, DBDriverSQLite:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvDBDriver, DBDriverPostgres, DBDriverSQLite, db.Driver)
	}
}

type RedisConfig struct {
	URL          string        `envconfig:"PLAIDBRIDGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PLAIDBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"PLAIDBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PLAIDBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PLAIDBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PLAIDBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PLAIDBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PLAIDBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PLAIDBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SecurityConfig struct {
	TokenEncryptionKey string `envconfig:"PLAIDBRIDGE_TOKEN_ENCRYPTION_KEY" required:"true"`
}

// TokenKey decodes the base64 encryption key.
func (s SecurityConfig) TokenKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s.TokenEncryptionKey))
	if err != nil {
		return nil, fmt.Errorf("%s must be base64: %w", EnvTokenEncryptionKey, err)
	}
	if len(key) != TokenKeySize {
		return nil, fmt.Errorf("%s must decode to %d bytes, got %d", EnvTokenEncryptionKey, TokenKeySize, len(key))
	}
	return key, nil
}

func (s SecurityConfig) validate() error {
	_, err := s.TokenKey()
	return err
}

// JWTConfig verifies the bearer tokens integrating backends mint for their users.
type JWTConfig struct {
	Secret            string `envconfig:"PLAIDBRIDGE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PLAIDBRIDGE_JWT_ISSUER" default:"plaidbridge"`
	ExpirationMinutes int    `envconfig:"PLAIDBRIDGE_JWT_EXPIRATION_MINUTES" default:"60"`
}

func (j JWTConfig) validate() error {
	if len(j.Secret) < minJWTSecretLength {
		return fmt.Errorf("%s must be at least %d characters", EnvJWTSecret, minJWTSecretLength)
	}
	return nil
}

type RateLimitConfig struct {
	Window        time.Duration `envconfig:"PLAIDBRIDGE_RATE_LIMIT_WINDOW" default:"1m"`
	LinkIPLimit   int           `envconfig:"PLAIDBRIDGE_RATE_LIMIT_LINK_IP_LIMIT" default:"20"`
	LinkUserLimit int           `envconfig:"PLAIDBRIDGE_RATE_LIMIT_LINK_USER_LIMIT" default:"5"`
}

// SyncConfig drives transactions/sync paging and the background sweep.
type SyncConfig struct {
	Interval time.Duration `envconfig:"PLAIDBRIDGE_SYNC_INTERVAL" default:"6h"`
	PageSize int           `envconfig:"PLAIDBRIDGE_SYNC_PAGE_SIZE" default:"100"`
	MaxPages int           `envconfig:"PLAIDBRIDGE_SYNC_MAX_PAGES" default:"10"`
}

func (s SyncConfig) validate() error {
	var err error
	if s.Interval < 0 {
		err = multierr.Append(err, fmt.Errorf("%s must not be negative", EnvSyncInterval))
	}
	if s.PageSize < 0 || s.PageSize > MaxSyncPageSize {
		err = multierr.Append(err, fmt.Errorf("%s must be between 1 and %d", EnvSyncPageSize, MaxSyncPageSize))
	}
	return err
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PLAIDBRIDGE_AUTO_MIGRATE" default:"false"`
}
