package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/studybuddy/studybuddy-api/internal/secrets"
	"go.uber.org/zap"
)

// DefaultJWTSecret is only acceptable outside production
const DefaultJWTSecret = "change-me-in-production"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Email     EmailConfig
	ApiKey    ApiKeyConfig
	Storage   StorageConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
	// FrontendURL is used to build links in outgoing emails
	FrontendURL string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// JWTConfig holds token signing configuration
type JWTConfig struct {
	Secret      string
	Issuer      string
	ExpiryHours int
}

// EmailConfig selects and configures the outgoing mail provider
type EmailConfig struct {
	// Provider is "log" (development) or "sendgrid"
	Provider       string
	FromAddress    string
	FromName       string
	SendgridApiKey string
}

type ApiKeyConfig struct {
	SecretName string
	Value      string // Loaded from secrets or environment
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
	MaxUploadSizeMB       int64
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	// AllowedOrigins is a list of allowed origins for CORS requests
	// Use "*" to allow all origins (not recommended for production)
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge is the max age (in seconds) for preflight cache
	MaxAge int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	// FrameOptions sets the X-Frame-Options header (DENY, SAMEORIGIN, or empty to disable)
	FrameOptions       string
	ContentTypeNosniff bool
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute is the default rate limit for unauthenticated requests (per IP)
	RequestsPerMinute int
	// RequestsPerMinuteAuth is the rate limit for authenticated requests (per user)
	RequestsPerMinuteAuth int
	// RequestsPerMinuteLogin applies to the /auth endpoints (per IP)
	RequestsPerMinuteLogin int
	WhitelistIPs           []string
	WhitelistPaths         []string
}

// JobsConfig controls the background scheduler
type JobsConfig struct {
	Enabled bool
	// ReminderCron runs the upcoming-session reminder job
	ReminderCron        string
	ReminderLeadMinutes int
	// CompletionCron runs the job that completes sessions whose end time has passed
	CompletionCron string
	TimeoutSeconds int
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ExpiryDuration returns the token lifetime
func (j *JWTConfig) ExpiryDuration() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

// ReminderLeadDuration returns how far ahead of a session reminders go out
func (j *JobsConfig) ReminderLeadDuration() time.Duration {
	return time.Duration(j.ReminderLeadMinutes) * time.Minute
}

// TimeoutDuration returns the per-run timeout for scheduled jobs
func (j *JobsConfig) TimeoutDuration() time.Duration {
	return time.Duration(j.TimeoutSeconds) * time.Second
}

// IsProduction reports whether the app runs in production
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load loads configuration from file and environment variables
// This is a basic load that doesn't fetch secrets from vault
// Use LoadWithSecrets for full secret resolution
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.ApiKey.Value == "" {
		cfg.ApiKey.Value = v.GetString("ADMIN_API_KEY")
	}
	if secret := v.GetString("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}
	if url := v.GetString("FRONTEND_URL"); url != "" {
		cfg.App.FrontendURL = url
	}
	if key := v.GetString("SENDGRID_API_KEY"); key != "" && cfg.Email.SendgridApiKey == "" {
		cfg.Email.SendgridApiKey = key
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	return &cfg, nil
}

// Validate rejects configurations that must not reach production
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.App.IsProduction() && c.JWT.Secret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.JWT.ExpiryHours <= 0 {
		return fmt.Errorf("jwt expiry must be positive")
	}
	if c.Email.Provider == "sendgrid" && c.Email.SendgridApiKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is required when email.provider is sendgrid")
	}
	return nil
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source.
// Key Vault is used when USE_AZURE_KEY_VAULT=true and the environment is staging or production;
// otherwise secrets come from environment variables.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if !useKeyVault {
		logger.Info("USE_AZURE_KEY_VAULT not enabled, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, cfg.Validate()
	}

	if !isValidEnv {
		logger.Warn("USE_AZURE_KEY_VAULT is enabled but environment is not staging or production, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, cfg.Validate()
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	logger.Info("Azure Key Vault enabled for secrets",
		zap.String("environment", cfg.App.Environment),
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider (USE_AZURE_KEY_VAULT=true requires valid vault): %w", err)
	}

	if err := applySecrets(ctx, cfg, provider); err != nil {
		return nil, err
	}

	logger.Info("Secrets loaded from vault successfully")
	return cfg, cfg.Validate()
}

// applySecrets copies every vault-managed value onto cfg
func applySecrets(ctx context.Context, cfg *Config, provider *secrets.Provider) error {
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}

	return provider.Resolve(ctx, []secrets.Binding{
		{Secret: "POSTGRES-MAIN-HOST", Env: "DATABASE_HOST", Apply: func(v string) { cfg.Database.Host = v }},
		{Secret: "POSTGRES-MAIN-USER", Env: "DATABASE_USER", Apply: func(v string) { cfg.Database.User = v }},
		{Secret: "POSTGRES-MAIN-PASSWORD", Env: "DATABASE_PASSWORD", Apply: func(v string) { cfg.Database.Password = v }},
		{Secret: "jwt-secret", Env: "JWT_SECRET", Required: true, Apply: func(v string) { cfg.JWT.Secret = v }},
		{Secret: cfg.ApiKey.SecretName, Env: "ADMIN_API_KEY", Apply: func(v string) { cfg.ApiKey.Value = v }},
		{Secret: "sendgrid-api-key", Env: "SENDGRID_API_KEY", Apply: func(v string) { cfg.Email.SendgridApiKey = v }},
		{Secret: "storage-connection-string", Env: "STORAGE_CLOUDCONNECTIONSTRING", Apply: func(v string) { cfg.Storage.CloudConnectionString = v }},
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "StudyBuddy API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 5000)
	v.SetDefault("app.frontendUrl", "http://localhost:3000")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "studybuddy")
	v.SetDefault("database.user", "studybuddy")
	v.SetDefault("database.password", "studybuddy")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 20)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	v.SetDefault("jwt.secret", DefaultJWTSecret)
	v.SetDefault("jwt.issuer", "studybuddy-api")
	v.SetDefault("jwt.expiryHours", 24*7)

	v.SetDefault("apiKey.secretName", "admin-api-key")

	v.SetDefault("email.provider", "log")
	v.SetDefault("email.fromAddress", "noreply@sessionbuddyhub.com")
	v.SetDefault("email.fromName", "Session Buddy Hub")

	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudContainer", "avatars")
	v.SetDefault("storage.maxUploadSizeMB", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.enableSwagger", true)

	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.xssProtection", "1; mode=block")
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 100)
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 200)
	v.SetDefault("rateLimit.requestsPerMinuteLogin", 20)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready", "/metrics"})

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.reminderCron", "0 */5 * * * *")
	v.SetDefault("jobs.reminderLeadMinutes", 60)
	v.SetDefault("jobs.completionCron", "0 */10 * * * *")
	v.SetDefault("jobs.timeoutSeconds", 120)
}
