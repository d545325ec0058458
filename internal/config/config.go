package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongodb"
	DriverMemory   = "memory"
)

// Mail drivers
const (
	MailDriverLog      = "log"
	MailDriverSMTP     = "smtp"
	MailDriverSendGrid = "sendgrid"
)

// Event bus drivers
const (
	EventsDriverGoChannel = "gochannel"
	EventsDriverKafka     = "kafka"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port           string `yaml:"port" env:"SERVER_PORT"`
		Mode           string `yaml:"mode" env:"SERVER_MODE"`
		StoragePath    string `yaml:"storage_path" env:"SERVER_STORAGE_PATH"`
		PublicBaseURL  string `yaml:"public_base_url" env:"SERVER_PUBLIC_BASE_URL"`
		AllowedOrigins string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
		// Forwarded client addresses are only honored from these IPs or CIDRs
		TrustedProxies string `yaml:"trusted_proxies" env:"SERVER_TRUSTED_PROXIES"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MongoURI        string `yaml:"mongo_uri" env:"MONGO_URI"`
		MongoDatabase   string `yaml:"mongo_database" env:"MONGO_DATABASE"`
		SeedDemoData    bool   `yaml:"seed_demo_data" env:"DB_SEED_DEMO_DATA"`
	} `yaml:"database"`

	Redis struct {
		Addr           string `yaml:"addr" env:"REDIS_ADDR"`
		Password       string `yaml:"password" env:"REDIS_PASSWORD"`
		DB             int    `yaml:"db" env:"REDIS_DB"`
		CourseCacheTTL string `yaml:"course_cache_ttl" env:"REDIS_COURSE_CACHE_TTL"`
	} `yaml:"redis"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	PasswordReset struct {
		CodeTTL string `yaml:"code_ttl" env:"PASSWORD_RESET_CODE_TTL"`
	} `yaml:"password_reset"`

	Mail struct {
		Driver         string `yaml:"driver" env:"MAIL_DRIVER"`
		From           string `yaml:"from" env:"MAIL_FROM"`
		FromName       string `yaml:"from_name" env:"MAIL_FROM_NAME"`
		SMTPHost       string `yaml:"smtp_host" env:"SMTP_HOST"`
		SMTPPort       int    `yaml:"smtp_port" env:"SMTP_PORT"`
		SMTPUsername   string `yaml:"smtp_username" env:"SMTP_USERNAME"`
		SMTPPassword   string `yaml:"smtp_password" env:"SMTP_PASSWORD"`
		SendGridAPIKey string `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
	} `yaml:"mail"`

	Events struct {
		Driver        string `yaml:"driver" env:"EVENTS_DRIVER"`
		KafkaBrokers  string `yaml:"kafka_brokers" env:"EVENTS_KAFKA_BROKERS"`
		ConsumerGroup string `yaml:"consumer_group" env:"EVENTS_CONSUMER_GROUP"`
	} `yaml:"events"`

	RateLimit struct {
		RequestsPerMinute int `yaml:"requests_per_minute" env:"RATE_LIMIT_RPM"`
		Burst             int `yaml:"burst" env:"RATE_LIMIT_BURST"`
	} `yaml:"rate_limit"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a file, a .env file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// A missing .env is fine; real environment variables still apply
	_ = godotenv.Load()

	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	config := &Config{}
	setDefaults(config)
	return config
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Server defaults
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.StoragePath = "uploads"
	config.Server.PublicBaseURL = "http://localhost:8080"
	config.Server.AllowedOrigins = "*"

	// Database defaults
	config.Database.Driver = DriverPostgres
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "coursemarket"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MongoURI = "mongodb://localhost:27017"
	config.Database.MongoDatabase = "coursemarket"

	config.Redis.CourseCacheTTL = "5m"

	// Sessions last five days and there is no refresh flow
	config.JWT.AccessTokenExpiration = "120h"
	config.JWT.Issuer = "coursemarket"

	config.PasswordReset.CodeTTL = "1h"

	config.Mail.Driver = MailDriverLog
	config.Mail.From = "no-reply@coursemarket.local"
	config.Mail.FromName = "Course Market"
	config.Mail.SMTPPort = 587

	config.Events.Driver = EventsDriverGoChannel
	config.Events.ConsumerGroup = "coursemarket"

	config.RateLimit.RequestsPerMinute = 30
	config.RateLimit.Burst = 10

	// Logging defaults
	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case DriverPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	case DriverMongo:
		if config.Database.MongoURI == "" {
			return fmt.Errorf("mongo uri is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"JWT access token expiration": config.JWT.AccessTokenExpiration,
		"password reset code ttl":     config.PasswordReset.CodeTTL,
		"course cache ttl":            config.Redis.CourseCacheTTL,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
	}

	switch config.Mail.Driver {
	case MailDriverLog, MailDriverSMTP:
	case MailDriverSendGrid:
		if config.Mail.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid api key is required for the sendgrid mail driver")
		}
	default:
		return fmt.Errorf("unsupported mail driver %q", config.Mail.Driver)
	}

	switch config.Events.Driver {
	case EventsDriverGoChannel:
	case EventsDriverKafka:
		if len(config.KafkaBrokers()) == 0 {
			return fmt.Errorf("kafka brokers are required for the kafka events driver")
		}
	default:
		return fmt.Errorf("unsupported events driver %q", config.Events.Driver)
	}

	for _, proxy := range config.TrustedProxies() {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			return fmt.Errorf("invalid trusted proxy %q", proxy)
		}
	}

	if config.RateLimit.RequestsPerMinute < 0 || config.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// KafkaBrokers splits the comma separated broker list
func (c *Config) KafkaBrokers() []string {
	return splitList(c.Events.KafkaBrokers)
}

// CORSOrigins splits the comma separated origin list
func (c *Config) CORSOrigins() []string {
	return splitList(c.Server.AllowedOrigins)
}

// TrustedProxies splits the comma separated proxy list. Empty means the
// peer address is always taken as the client address.
func (c *Config) TrustedProxies() []string {
	return splitList(c.Server.TrustedProxies)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

