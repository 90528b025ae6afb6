package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	JWT     JWTConfig
	S3      S3Config
	Log     LogConfig
	CORS    CORSConfig
	Queue   QueueConfig
	Quota   QuotaConfig
	OCR     OCRConfig
	Extract ExtractConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds token validation settings. Tokens are issued by the
// external auth service; this core only verifies them.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// QueueConfig holds processing queue worker settings.
type QueueConfig struct {
	PollIntervalSecs   int `mapstructure:"poll_interval_secs"`
	Concurrency        int `mapstructure:"concurrency"`
	DocTimeoutSecs     int `mapstructure:"doc_timeout_secs"`
	StalledTimeoutSecs int `mapstructure:"stalled_timeout_secs"`
	SweepIntervalSecs  int `mapstructure:"sweep_interval_secs"`
}

// QuotaConfig holds tenant page quota defaults. Per-tenant ceilings come from
// the billing service; these values back the static provider.
type QuotaConfig struct {
	DefaultMonthlyPages int            `mapstructure:"default_monthly_pages"`
	TenantOverrides     map[string]int `mapstructure:"tenant_overrides"`
}

// OCRConfig holds OCR stage settings.
type OCRConfig struct {
	// Engine selects the OCR policy: "local", "remote", or "auto"
	// (local for PDFs with embedded text, remote for images).
	Engine      string `mapstructure:"engine"`
	Endpoint    string `mapstructure:"endpoint"`
	APIKey      string `mapstructure:"api_key"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
	MaxRetries  int    `mapstructure:"max_retries"`
}

// ExtractTierConfig holds settings for one field-extraction tier.
type ExtractTierConfig struct {
	Provider string `mapstructure:"provider"`
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	// EscalateBelow routes a field to the next tier when this tier's
	// confidence for it is below the threshold. Zero disables escalation.
	EscalateBelow float64 `mapstructure:"escalate_below"`
	TimeoutSecs   int     `mapstructure:"timeout_secs"`
}

// ExtractConfig holds field extraction policy: the needs-review threshold,
// the normalization confidence penalty, and the ordered escalation tiers.
type ExtractConfig struct {
	ReviewThreshold  float64           `mapstructure:"review_threshold"`
	NormalizePenalty float64           `mapstructure:"normalize_penalty"`
	Primary          ExtractTierConfig `mapstructure:"primary"`
	Secondary        ExtractTierConfig `mapstructure:"secondary"`
}

// Load reads configuration from environment variables with the DOCUFLOW_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCUFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "docuflow")
	v.SetDefault("db.password", "docuflow_secret")
	v.SetDefault("db.name", "docuflow_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "docuflow")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "docuflow-uploads")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 50)
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 5)
	v.SetDefault("queue.concurrency", 5)
	v.SetDefault("queue.doc_timeout_secs", 300)
	v.SetDefault("queue.stalled_timeout_secs", 900)
	v.SetDefault("queue.sweep_interval_secs", 60)

	// Quota defaults
	v.SetDefault("quota.default_monthly_pages", 100)
	v.SetDefault("quota.tenant_overrides", "")

	// OCR defaults
	v.SetDefault("ocr.engine", "auto")
	v.SetDefault("ocr.endpoint", "")
	v.SetDefault("ocr.api_key", "")
	v.SetDefault("ocr.timeout_secs", 60)
	v.SetDefault("ocr.max_retries", 1)

	// Extraction defaults
	v.SetDefault("extract.review_threshold", 0.80)
	v.SetDefault("extract.normalize_penalty", 0.85)
	v.SetDefault("extract.primary.provider", "pattern")
	v.SetDefault("extract.primary.escalate_below", 0.85)
	v.SetDefault("extract.secondary.provider", "")
	v.SetDefault("extract.secondary.endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("extract.secondary.api_key", "")
	v.SetDefault("extract.secondary.model", "gpt-4o-mini")
	v.SetDefault("extract.secondary.escalate_below", 0)
	v.SetDefault("extract.secondary.timeout_secs", 120)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                  "DOCUFLOW_SERVER_PORT",
		"server.read_timeout":          "DOCUFLOW_SERVER_READ_TIMEOUT",
		"server.write_timeout":         "DOCUFLOW_SERVER_WRITE_TIMEOUT",
		"server.environment":           "DOCUFLOW_SERVER_ENVIRONMENT",
		"db.host":                      "DOCUFLOW_DB_HOST",
		"db.port":                      "DOCUFLOW_DB_PORT",
		"db.user":                      "DOCUFLOW_DB_USER",
		"db.password":                  "DOCUFLOW_DB_PASSWORD",
		"db.name":                      "DOCUFLOW_DB_NAME",
		"db.sslmode":                   "DOCUFLOW_DB_SSLMODE",
		"db.max_open":                  "DOCUFLOW_DB_MAX_OPEN",
		"db.max_idle":                  "DOCUFLOW_DB_MAX_IDLE",
		"jwt.secret":                   "DOCUFLOW_JWT_SECRET",
		"jwt.issuer":                   "DOCUFLOW_JWT_ISSUER",
		"s3.region":                    "DOCUFLOW_S3_REGION",
		"s3.bucket":                    "DOCUFLOW_S3_BUCKET",
		"s3.endpoint":                  "DOCUFLOW_S3_ENDPOINT",
		"s3.access_key":                "DOCUFLOW_S3_ACCESS_KEY",
		"s3.secret_key":                "DOCUFLOW_S3_SECRET_KEY",
		"s3.max_file_size_mb":          "DOCUFLOW_S3_MAX_FILE_SIZE_MB",
		"s3.presign_expiry":            "DOCUFLOW_S3_PRESIGN_EXPIRY",
		"log.level":                    "DOCUFLOW_LOG_LEVEL",
		"log.format":                   "DOCUFLOW_LOG_FORMAT",
		"cors.allowed_origins":         "DOCUFLOW_CORS_ALLOWED_ORIGINS",
		"queue.poll_interval_secs":     "DOCUFLOW_QUEUE_POLL_INTERVAL_SECS",
		"queue.concurrency":            "DOCUFLOW_QUEUE_CONCURRENCY",
		"queue.doc_timeout_secs":       "DOCUFLOW_QUEUE_DOC_TIMEOUT_SECS",
		"queue.stalled_timeout_secs":   "DOCUFLOW_QUEUE_STALLED_TIMEOUT_SECS",
		"queue.sweep_interval_secs":    "DOCUFLOW_QUEUE_SWEEP_INTERVAL_SECS",
		"quota.default_monthly_pages":  "DOCUFLOW_QUOTA_DEFAULT_MONTHLY_PAGES",
		"quota.tenant_overrides":       "DOCUFLOW_QUOTA_TENANT_OVERRIDES",
		"ocr.engine":                   "DOCUFLOW_OCR_ENGINE",
		"ocr.endpoint":                 "DOCUFLOW_OCR_ENDPOINT",
		"ocr.api_key":                  "DOCUFLOW_OCR_API_KEY",
		"ocr.timeout_secs":             "DOCUFLOW_OCR_TIMEOUT_SECS",
		"ocr.max_retries":              "DOCUFLOW_OCR_MAX_RETRIES",
		"extract.review_threshold":     "DOCUFLOW_EXTRACT_REVIEW_THRESHOLD",
		"extract.normalize_penalty":    "DOCUFLOW_EXTRACT_NORMALIZE_PENALTY",
		"extract.primary.provider":     "DOCUFLOW_EXTRACT_PRIMARY_PROVIDER",
		"extract.primary.escalate_below": "DOCUFLOW_EXTRACT_PRIMARY_ESCALATE_BELOW",
		"extract.secondary.provider":     "DOCUFLOW_EXTRACT_SECONDARY_PROVIDER",
		"extract.secondary.endpoint":     "DOCUFLOW_EXTRACT_SECONDARY_ENDPOINT",
		"extract.secondary.api_key":      "DOCUFLOW_EXTRACT_SECONDARY_API_KEY",
		"extract.secondary.model":        "DOCUFLOW_EXTRACT_SECONDARY_MODEL",
		"extract.secondary.escalate_below": "DOCUFLOW_EXTRACT_SECONDARY_ESCALATE_BELOW",
		"extract.secondary.timeout_secs":   "DOCUFLOW_EXTRACT_SECONDARY_TIMEOUT_SECS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if DOCUFLOW_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("DOCUFLOW_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.JWT = JWTConfig{
		Secret: v.GetString("jwt.secret"),
		Issuer: v.GetString("jwt.issuer"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Queue = QueueConfig{
		PollIntervalSecs:   v.GetInt("queue.poll_interval_secs"),
		Concurrency:        v.GetInt("queue.concurrency"),
		DocTimeoutSecs:     v.GetInt("queue.doc_timeout_secs"),
		StalledTimeoutSecs: v.GetInt("queue.stalled_timeout_secs"),
		SweepIntervalSecs:  v.GetInt("queue.sweep_interval_secs"),
	}

	cfg.Quota = QuotaConfig{
		DefaultMonthlyPages: v.GetInt("quota.default_monthly_pages"),
		TenantOverrides:     parseTenantOverrides(v.GetString("quota.tenant_overrides")),
	}

	cfg.OCR = OCRConfig{
		Engine:      v.GetString("ocr.engine"),
		Endpoint:    v.GetString("ocr.endpoint"),
		APIKey:      v.GetString("ocr.api_key"),
		TimeoutSecs: v.GetInt("ocr.timeout_secs"),
		MaxRetries:  v.GetInt("ocr.max_retries"),
	}

	cfg.Extract = ExtractConfig{
		ReviewThreshold:  v.GetFloat64("extract.review_threshold"),
		NormalizePenalty: v.GetFloat64("extract.normalize_penalty"),
		Primary: ExtractTierConfig{
			Provider:      v.GetString("extract.primary.provider"),
			EscalateBelow: v.GetFloat64("extract.primary.escalate_below"),
		},
		Secondary: ExtractTierConfig{
			Provider:      v.GetString("extract.secondary.provider"),
			Endpoint:      v.GetString("extract.secondary.endpoint"),
			APIKey:        v.GetString("extract.secondary.api_key"),
			Model:         v.GetString("extract.secondary.model"),
			EscalateBelow: v.GetFloat64("extract.secondary.escalate_below"),
			TimeoutSecs:   v.GetInt("extract.secondary.timeout_secs"),
		},
	}

	return cfg, nil
}

// parseTenantOverrides parses "tenantID=pages,tenantID=pages" into a map.
// Malformed entries are skipped.
func parseTenantOverrides(s string) map[string]int {
	overrides := make(map[string]int)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		pages, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}
		overrides[strings.TrimSpace(parts[0])] = pages
	}
	return overrides
}
