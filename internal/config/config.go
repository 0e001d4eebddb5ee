package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	LLM        LLMConfig
	Extraction ExtractionConfig
	Sink       SinkConfig
	DB         DBConfig
	S3         S3Config
	Email      EmailConfig
	Batch      BatchConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
	MaxUploadMB  int64         `mapstructure:"max_upload_mb"`
	// APIKeys guard the webhook and record routes when non-empty.
	APIKeys     []string `mapstructure:"api_keys"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LLMProviderConfig holds settings for a single completion provider.
type LLMProviderConfig struct {
	Provider    string `mapstructure:"provider"`
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	BaseURL     string `mapstructure:"base_url"`
	MaxRetries  int    `mapstructure:"max_retries"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// LLMConfig holds completion provider settings with an optional fallback provider.
type LLMConfig struct {
	// Flat fields describe the primary provider when Primary is unset.
	Provider    string `mapstructure:"provider"`
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	BaseURL     string `mapstructure:"base_url"`
	MaxRetries  int    `mapstructure:"max_retries"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`

	Primary   LLMProviderConfig `mapstructure:"primary"`
	Secondary LLMProviderConfig `mapstructure:"secondary"`
}

// PrimaryConfig returns the primary provider config, falling back to the flat fields.
func (l *LLMConfig) PrimaryConfig() *LLMProviderConfig {
	if l.Primary.Provider != "" {
		return &l.Primary
	}
	return &LLMProviderConfig{
		Provider:    l.Provider,
		APIKey:      l.APIKey,
		Model:       l.Model,
		BaseURL:     l.BaseURL,
		MaxRetries:  l.MaxRetries,
		TimeoutSecs: l.TimeoutSecs,
	}
}

// SecondaryConfig returns the fallback provider config, or nil if not configured.
func (l *LLMConfig) SecondaryConfig() *LLMProviderConfig {
	if l.Secondary.Provider != "" {
		return &l.Secondary
	}
	return nil
}

// Validate checks that the primary provider can be constructed.
func (l *LLMConfig) Validate() error {
	primary := l.PrimaryConfig()
	if primary.Provider == "" {
		return fmt.Errorf("llm provider is not set")
	}
	if primary.APIKey == "" {
		return fmt.Errorf("llm api key is not set for provider %s", primary.Provider)
	}
	return nil
}

// ExtractionConfig holds per-document extraction settings.
type ExtractionConfig struct {
	TimeoutSecs       int  `mapstructure:"timeout_secs"`
	ConsistencyChecks bool `mapstructure:"consistency_checks"`
}

// Timeout returns the per-document deadline, or zero for none.
func (e ExtractionConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSecs) * time.Second
}

// SinkConfig selects where extraction records are appended.
type SinkConfig struct {
	Kind      string `mapstructure:"kind"` // jsonl, sql, none
	JSONLPath string `mapstructure:"jsonl_path"`
	Archive   bool   `mapstructure:"archive"`
}

// DBConfig holds SQL connection settings for the extraction log.
type DBConfig struct {
	Driver   string `mapstructure:"driver"` // postgres or sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the connection string for the configured driver.
func (d *DBConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// MigrationURL returns the database URL in the form golang-migrate expects.
func (d *DBConfig) MigrationURL() string {
	if d.Driver == "sqlite" {
		return "sqlite://" + d.Path
	}
	return d.DSN()
}

// S3Config holds AWS S3 settings for the record archive.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// EmailConfig holds failure alert delivery settings.
type EmailConfig struct {
	Provider        string   `mapstructure:"provider"`
	Region          string   `mapstructure:"region"`
	FromAddress     string   `mapstructure:"from_address"`
	FromName        string   `mapstructure:"from_name"`
	AlertRecipients []string `mapstructure:"alert_recipients"`
}

// BatchConfig holds settings for the concurrent batch runner.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// Load reads configuration from an optional .env file and environment
// variables with the MAILPARSER_ prefix.
func Load() (*Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("MAILPARSER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":5000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("server.api_keys", "")
	v.SetDefault("server.cors_origins", "")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// LLM defaults (flat)
	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "llama3-70b-8192")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.timeout_secs", 60)

	// LLM primary/secondary defaults
	v.SetDefault("llm.primary.provider", "")
	v.SetDefault("llm.primary.api_key", "")
	v.SetDefault("llm.primary.model", "")
	v.SetDefault("llm.primary.base_url", "")
	v.SetDefault("llm.primary.max_retries", 2)
	v.SetDefault("llm.primary.timeout_secs", 60)
	v.SetDefault("llm.secondary.provider", "")
	v.SetDefault("llm.secondary.api_key", "")
	v.SetDefault("llm.secondary.model", "")
	v.SetDefault("llm.secondary.base_url", "")
	v.SetDefault("llm.secondary.max_retries", 2)
	v.SetDefault("llm.secondary.timeout_secs", 60)

	// Extraction defaults
	v.SetDefault("extraction.timeout_secs", 150)
	v.SetDefault("extraction.consistency_checks", true)

	// Sink defaults
	v.SetDefault("sink.kind", "jsonl")
	v.SetDefault("sink.jsonl_path", "processed_orders.json")
	v.SetDefault("sink.archive", false)

	// DB defaults
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "mailparser")
	v.SetDefault("db.password", "mailparser_secret")
	v.SetDefault("db.name", "mailparser_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.path", "mailparser.db")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "mailparser-records")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.prefix", "records")

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "noreply@mailparser.local")
	v.SetDefault("email.from_name", "Mailparser")
	v.SetDefault("email.alert_recipients", "")

	// Batch defaults
	v.SetDefault("batch.concurrency", 4)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                   "MAILPARSER_SERVER_PORT",
		"server.read_timeout":           "MAILPARSER_SERVER_READ_TIMEOUT",
		"server.write_timeout":          "MAILPARSER_SERVER_WRITE_TIMEOUT",
		"server.environment":            "MAILPARSER_SERVER_ENVIRONMENT",
		"server.max_upload_mb":          "MAILPARSER_SERVER_MAX_UPLOAD_MB",
		"server.api_keys":               "MAILPARSER_SERVER_API_KEYS",
		"server.cors_origins":           "MAILPARSER_SERVER_CORS_ORIGINS",
		"log.level":                     "MAILPARSER_LOG_LEVEL",
		"log.format":                    "MAILPARSER_LOG_FORMAT",
		"llm.provider":                  "MAILPARSER_LLM_PROVIDER",
		"llm.api_key":                   "MAILPARSER_LLM_API_KEY",
		"llm.model":                     "MAILPARSER_LLM_MODEL",
		"llm.base_url":                  "MAILPARSER_LLM_BASE_URL",
		"llm.max_retries":               "MAILPARSER_LLM_MAX_RETRIES",
		"llm.timeout_secs":              "MAILPARSER_LLM_TIMEOUT_SECS",
		"llm.primary.provider":          "MAILPARSER_LLM_PRIMARY_PROVIDER",
		"llm.primary.api_key":           "MAILPARSER_LLM_PRIMARY_API_KEY",
		"llm.primary.model":             "MAILPARSER_LLM_PRIMARY_MODEL",
		"llm.primary.base_url":          "MAILPARSER_LLM_PRIMARY_BASE_URL",
		"llm.primary.max_retries":       "MAILPARSER_LLM_PRIMARY_MAX_RETRIES",
		"llm.primary.timeout_secs":      "MAILPARSER_LLM_PRIMARY_TIMEOUT_SECS",
		"llm.secondary.provider":        "MAILPARSER_LLM_SECONDARY_PROVIDER",
		"llm.secondary.api_key":         "MAILPARSER_LLM_SECONDARY_API_KEY",
		"llm.secondary.model":           "MAILPARSER_LLM_SECONDARY_MODEL",
		"llm.secondary.base_url":        "MAILPARSER_LLM_SECONDARY_BASE_URL",
		"llm.secondary.max_retries":     "MAILPARSER_LLM_SECONDARY_MAX_RETRIES",
		"llm.secondary.timeout_secs":    "MAILPARSER_LLM_SECONDARY_TIMEOUT_SECS",
		"extraction.timeout_secs":       "MAILPARSER_EXTRACTION_TIMEOUT_SECS",
		"extraction.consistency_checks": "MAILPARSER_EXTRACTION_CONSISTENCY_CHECKS",
		"sink.kind":                     "MAILPARSER_SINK_KIND",
		"sink.jsonl_path":               "MAILPARSER_SINK_JSONL_PATH",
		"sink.archive":                  "MAILPARSER_SINK_ARCHIVE",
		"db.driver":                     "MAILPARSER_DB_DRIVER",
		"db.host":                       "MAILPARSER_DB_HOST",
		"db.port":                       "MAILPARSER_DB_PORT",
		"db.user":                       "MAILPARSER_DB_USER",
		"db.password":                   "MAILPARSER_DB_PASSWORD",
		"db.name":                       "MAILPARSER_DB_NAME",
		"db.sslmode":                    "MAILPARSER_DB_SSLMODE",
		"db.path":                       "MAILPARSER_DB_PATH",
		"db.max_open":                   "MAILPARSER_DB_MAX_OPEN",
		"db.max_idle":                   "MAILPARSER_DB_MAX_IDLE",
		"s3.region":                     "MAILPARSER_S3_REGION",
		"s3.bucket":                     "MAILPARSER_S3_BUCKET",
		"s3.endpoint":                   "MAILPARSER_S3_ENDPOINT",
		"s3.access_key":                 "MAILPARSER_S3_ACCESS_KEY",
		"s3.secret_key":                 "MAILPARSER_S3_SECRET_KEY",
		"s3.prefix":                     "MAILPARSER_S3_PREFIX",
		"email.provider":                "MAILPARSER_EMAIL_PROVIDER",
		"email.region":                  "MAILPARSER_EMAIL_REGION",
		"email.from_address":            "MAILPARSER_EMAIL_FROM_ADDRESS",
		"email.from_name":               "MAILPARSER_EMAIL_FROM_NAME",
		"email.alert_recipients":        "MAILPARSER_EMAIL_ALERT_RECIPIENTS",
		"batch.concurrency":             "MAILPARSER_BATCH_CONCURRENCY",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Hosting platforms set PORT. Use it unless MAILPARSER_SERVER_PORT is set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("MAILPARSER_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
		MaxUploadMB:  v.GetInt64("server.max_upload_mb"),
		APIKeys:      splitList(v.GetString("server.api_keys")),
		CORSOrigins:  splitList(v.GetString("server.cors_origins")),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	cfg.LLM = LLMConfig{
		Provider:    v.GetString("llm.provider"),
		APIKey:      v.GetString("llm.api_key"),
		Model:       v.GetString("llm.model"),
		BaseURL:     v.GetString("llm.base_url"),
		MaxRetries:  v.GetInt("llm.max_retries"),
		TimeoutSecs: v.GetInt("llm.timeout_secs"),
		Primary:     providerConfig(v, "llm.primary"),
		Secondary:   providerConfig(v, "llm.secondary"),
	}
	// GROQ_API_KEY is honored for deployments that predate the prefixed variables.
	if cfg.LLM.APIKey == "" && cfg.LLM.Provider == "groq" {
		cfg.LLM.APIKey = os.Getenv("GROQ_API_KEY")
	}

	cfg.Extraction = ExtractionConfig{
		TimeoutSecs:       v.GetInt("extraction.timeout_secs"),
		ConsistencyChecks: v.GetBool("extraction.consistency_checks"),
	}
	cfg.Sink = SinkConfig{
		Kind:      v.GetString("sink.kind"),
		JSONLPath: v.GetString("sink.jsonl_path"),
		Archive:   v.GetBool("sink.archive"),
	}
	cfg.DB = DBConfig{
		Driver:   v.GetString("db.driver"),
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		Path:     v.GetString("db.path"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
		Prefix:    v.GetString("s3.prefix"),
	}
	cfg.Email = EmailConfig{
		Provider:        v.GetString("email.provider"),
		Region:          v.GetString("email.region"),
		FromAddress:     v.GetString("email.from_address"),
		FromName:        v.GetString("email.from_name"),
		AlertRecipients: splitList(v.GetString("email.alert_recipients")),
	}
	cfg.Batch = BatchConfig{
		Concurrency: v.GetInt("batch.concurrency"),
	}

	return cfg, nil
}

func providerConfig(v *viper.Viper, prefix string) LLMProviderConfig {
	return LLMProviderConfig{
		Provider:    v.GetString(prefix + ".provider"),
		APIKey:      v.GetString(prefix + ".api_key"),
		Model:       v.GetString(prefix + ".model"),
		BaseURL:     v.GetString(prefix + ".base_url"),
		MaxRetries:  v.GetInt(prefix + ".max_retries"),
		TimeoutSecs: v.GetInt(prefix + ".timeout_secs"),
	}
}

// splitList parses a comma-separated string, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
