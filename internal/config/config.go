package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all the configuration for the application.
type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"production"`
	HTTPServer `yaml:"http_server"`
	Database   `yaml:"database"`
	Tracker    `yaml:"tracker"`
	Analytics  `yaml:"analytics"`
	Auth       `yaml:"auth"`
	Log        `yaml:"log"`
}

// HTTPServer holds HTTP server specific configuration.
type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"30s"`
	// AllowedOrigins список origin'ов для CORS
	AllowedOrigins []string `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000,http://127.0.0.1:3000"`
	// RedirectRateLimit лимит редиректов с одного IP в минуту (0 - без лимита)
	RedirectRateLimit int `yaml:"redirect_rate_limit" env:"HTTP_REDIRECT_RATE_LIMIT" env-default:"120"`
}

// Database holds PostgreSQL connection settings.
type Database struct {
	Host            string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password        string `yaml:"password" env:"DB_PASSWORD"`
	DBName          string `yaml:"dbname" env:"DB_NAME" env-default:"utmtrack"`
	SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	Timezone        string `yaml:"timezone" env:"DB_TIMEZONE" env-default:"UTC"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
	AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
}

// Tracker holds link generation defaults.
type Tracker struct {
	// BaseURL публичный адрес сервиса, используется для коротких ссылок
	BaseURL          string `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080"`
	DefaultSource    string `yaml:"default_source" env:"UTM_DEFAULT_SOURCE" env-default:"youtube"`
	DefaultMedium    string `yaml:"default_medium" env:"UTM_DEFAULT_MEDIUM" env-default:"video"`
	UserAgentRegexes string `yaml:"user_agent_regexes" env:"UA_REGEXES_PATH" env-default:"assets/regexes.yaml"`
}

// Analytics holds external analytics forwarding configuration.
type Analytics struct {
	// Provider: posthog, ga4 или none
	Provider   string     `yaml:"provider" env:"ANALYTICS_PROVIDER" env-default:"posthog"`
	PostHog    PostHog    `yaml:"posthog"`
	GA4        GA4        `yaml:"ga4"`
	Dispatcher Dispatcher `yaml:"dispatcher"`
	Breaker    Breaker    `yaml:"breaker"`
	// RequestsPerSecond ограничение исходящих запросов к провайдеру
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"ANALYTICS_RPS" env-default:"20"`
	Burst             int           `yaml:"burst" env:"ANALYTICS_BURST" env-default:"40"`
	RequestTimeout    time.Duration `yaml:"request_timeout" env:"ANALYTICS_REQUEST_TIMEOUT" env-default:"10s"`
}

// PostHog holds PostHog credentials.
type PostHog struct {
	APIKey         string `yaml:"api_key" env:"POSTHOG_API_KEY"`
	PersonalAPIKey string `yaml:"personal_api_key" env:"POSTHOG_PERSONAL_API_KEY"`
	Host           string `yaml:"host" env:"POSTHOG_HOST" env-default:"https://us.posthog.com"`
	ProjectID      string `yaml:"project_id" env:"POSTHOG_PROJECT_ID"`
}

// GA4 holds Google Analytics 4 Measurement Protocol credentials.
type GA4 struct {
	MeasurementID string `yaml:"measurement_id" env:"GA4_MEASUREMENT_ID"`
	APISecret     string `yaml:"api_secret" env:"GA4_API_SECRET"`
	Endpoint      string `yaml:"endpoint" env:"GA4_ENDPOINT" env-default:"https://www.google-analytics.com"`
}

// Dispatcher holds forwarding worker pool settings.
type Dispatcher struct {
	WorkerCount     int           `yaml:"worker_count" env:"FORWARD_WORKERS" env-default:"3"`
	BufferSize      int           `yaml:"buffer_size" env:"FORWARD_BUFFER" env-default:"1000"`
	EventTimeout    time.Duration `yaml:"event_timeout" env:"FORWARD_EVENT_TIMEOUT" env-default:"5s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"FORWARD_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

// Breaker holds circuit breaker settings for the analytics provider.
type Breaker struct {
	MaxRequests  uint32        `yaml:"max_requests" env:"BREAKER_MAX_REQUESTS" env-default:"3"`
	Interval     time.Duration `yaml:"interval" env:"BREAKER_INTERVAL" env-default:"1m"`
	Timeout      time.Duration `yaml:"timeout" env:"BREAKER_TIMEOUT" env-default:"2m"`
	MinRequests  uint32        `yaml:"min_requests" env:"BREAKER_MIN_REQUESTS" env-default:"10"`
	FailureRatio float64       `yaml:"failure_ratio" env:"BREAKER_FAILURE_RATIO" env-default:"0.6"`
}

// Auth holds admin authentication settings.
type Auth struct {
	Enabled bool `yaml:"enabled" env:"AUTH_ENABLED" env-default:"false"`
	// AdminUsername и AdminPasswordHash (bcrypt) - единственная учетная запись администратора
	AdminUsername       string        `yaml:"admin_username" env:"AUTH_ADMIN_USERNAME" env-default:"admin"`
	AdminPasswordHash   string        `yaml:"admin_password_hash" env:"AUTH_ADMIN_PASSWORD_HASH"`
	JWTSecret           string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	AccessTokenDuration time.Duration `yaml:"access_token_duration" env:"AUTH_ACCESS_TOKEN_DURATION" env-default:"12h"`
	Issuer              string        `yaml:"issuer" env:"AUTH_ISSUER" env-default:"UTMTrack-Backend"`
}

// Log holds logger output settings.
type Log struct {
	// File путь к файлу логов; пусто - только stdout
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB" env-default:"100"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"5"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS" env-default:"14"`
}

// MustLoad loads the application configuration.
func MustLoad() *Config {
	// Try to load .env file (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment variables")
	}

	var cfg Config

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/local.yml"
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			log.Fatalf("cannot read config: %s", err)
		}
	} else {
		log.Println("Config file not found, using environment variables only")
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			log.Fatalf("cannot read config from environment: %s", err)
		}
	}

	return &cfg
}
