package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Queue       QueueConfig
	Auth        AuthConfig
	Quotes      QuotesConfig
	Meditation  MeditationConfig
	Email       EmailConfig
	RateLimit   RateLimitConfig
	Maintenance MaintenanceConfig
	Metrics     MetricsConfig
	Tracing     TracingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	Mode            string // debug, release, test
	AppURL          string // public base URL used in verification links
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// AuthConfig holds token and cookie configuration
type AuthConfig struct {
	AccessSecret    string
	RefreshSecret   string
	Issuer          string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	VerificationTTL time.Duration
	CookieDomain    string
	SecureCookies   bool
	BcryptCost      int
}

// QuotesConfig holds quote validation bounds
type QuotesConfig struct {
	MinLength       int
	MaxLength       int
	MaxAuthorLength int
}

// MeditationConfig holds generation quota and LLM settings
type MeditationConfig struct {
	UserDailyLimit int
	IPDailyLimit   int
	APIURL         string
	APIKey         string
	Model          string
	Temperature    float64
	MaxTokens      int
	Timeout        time.Duration
	CacheTTL       time.Duration
}

// EmailConfig holds the email delivery provider settings
type EmailConfig struct {
	APIURL  string
	APIKey  string
	From    string
	Timeout time.Duration
}

// RateLimitConfig holds fixed-window limiter settings
type RateLimitConfig struct {
	GlobalRPS    int
	GlobalBurst  int
	AuthMax      int
	AuthWindow   time.Duration
	CreateMax    int
	CreateWindow time.Duration
}

// MaintenanceConfig holds the worker's cleanup sweep settings
type MaintenanceConfig struct {
	SweepInterval      time.Duration
	LimitRetentionDays int
}

// MetricsConfig holds the metrics server settings
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// TracingConfig holds Jaeger settings
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 4000)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.appURL", "http://localhost:5173")
	viper.SetDefault("server.allowedOrigins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "presence")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxConns", 25)
	viper.SetDefault("database.minConns", 5)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Queue defaults
	viper.SetDefault("queue.host", "localhost")
	viper.SetDefault("queue.port", 5672)
	viper.SetDefault("queue.user", "guest")
	viper.SetDefault("queue.password", "guest")
	viper.SetDefault("queue.vhost", "/")

	// Auth defaults
	viper.SetDefault("auth.accessSecret", "dev-access-secret")
	viper.SetDefault("auth.refreshSecret", "dev-refresh-secret")
	viper.SetDefault("auth.issuer", "presence-api")
	viper.SetDefault("auth.accessTTL", "15m")
	viper.SetDefault("auth.refreshTTL", "168h") // 7 days
	viper.SetDefault("auth.verificationTTL", "24h")
	viper.SetDefault("auth.cookieDomain", "")
	viper.SetDefault("auth.secureCookies", false)
	viper.SetDefault("auth.bcryptCost", 12)

	// Quote validation defaults
	viper.SetDefault("quotes.minLength", 5)
	viper.SetDefault("quotes.maxLength", 500)
	viper.SetDefault("quotes.maxAuthorLength", 100)

	// Meditation defaults
	viper.SetDefault("meditation.userDailyLimit", 3)
	viper.SetDefault("meditation.ipDailyLimit", 1)
	viper.SetDefault("meditation.apiURL", "https://openrouter.ai/api/v1/chat/completions")
	viper.SetDefault("meditation.apiKey", "")
	viper.SetDefault("meditation.model", "xiaomi/mimo-v2-flash:free")
	viper.SetDefault("meditation.temperature", 0.7)
	viper.SetDefault("meditation.maxTokens", 500)
	viper.SetDefault("meditation.timeout", "30s")
	viper.SetDefault("meditation.cacheTTL", "24h")

	// Email defaults
	viper.SetDefault("email.apiURL", "https://api.resend.com/emails")
	viper.SetDefault("email.apiKey", "")
	viper.SetDefault("email.from", "onboarding@resend.dev")
	viper.SetDefault("email.timeout", "15s")

	// Rate limit defaults
	viper.SetDefault("ratelimit.globalRPS", 100)
	viper.SetDefault("ratelimit.globalBurst", 100)
	viper.SetDefault("ratelimit.authMax", 5)
	viper.SetDefault("ratelimit.authWindow", "15m")
	viper.SetDefault("ratelimit.createMax", 20)
	viper.SetDefault("ratelimit.createWindow", "1h")

	// Maintenance defaults
	viper.SetDefault("maintenance.sweepInterval", "1h")
	viper.SetDefault("maintenance.limitRetentionDays", 7)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9091)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.serviceName", "presence-api")
	viper.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")
}
