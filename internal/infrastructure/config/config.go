package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. CATALOGSYNC_SHOPIFY_ACCESS_TOKEN
const EnvPrefix = "CATALOGSYNC"

// Config holds all application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Import    ImportConfig    `mapstructure:"import"`
	Shopify   ShopifyConfig   `mapstructure:"shopify"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// IsProduction reports whether the stricter production checks apply
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// DSN returns a postgres URL with user info and query values escaped
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxUploadSize    int64         `mapstructure:"max_upload_size"`
	UploadsPerMinute int           `mapstructure:"uploads_per_minute"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
	SwaggerEnabled   bool          `mapstructure:"swagger_enabled"`
}

// AuthConfig controls bearer token checks on the API
type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// ImportConfig tunes the batch worker
type ImportConfig struct {
	WorkerEnabled      bool          `mapstructure:"worker_enabled"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	StaleAfter         time.Duration `mapstructure:"stale_after"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	LeaseTTL           time.Duration `mapstructure:"lease_ttl"`
	NotifyTimeout      time.Duration `mapstructure:"notify_timeout"`
	MetafieldNamespace string        `mapstructure:"metafield_namespace"`
	CSVDelimiter       string        `mapstructure:"csv_delimiter"`
}

// Delimiter returns the CSV field separator as a rune
func (c ImportConfig) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.CSVDelimiter)
	return r
}

// ShopifyConfig holds the remote catalog credentials.
// It is not validated at load time; an incomplete section disables the client.
type ShopifyConfig struct {
	ShopDomain         string        `mapstructure:"shop_domain"`
	AccessToken        string        `mapstructure:"access_token"`
	APIVersion         string        `mapstructure:"api_version"`
	BaseURL            string        `mapstructure:"base_url"`
	TimeoutSeconds     int           `mapstructure:"timeout_seconds"`
	MinRequestInterval time.Duration `mapstructure:"min_request_interval"`
}

// IsConfigured reports whether enough is set to build a client
func (s *ShopifyConfig) IsConfigured() bool {
	return (s.ShopDomain != "" || s.BaseURL != "") && s.AccessToken != ""
}

// SMTPConfig holds completion notification settings. An empty host logs notifications instead.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// StorageConfig points at the S3-compatible bucket that keeps uploaded payloads
type StorageConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Endpoint      string        `mapstructure:"endpoint"`
	Region        string        `mapstructure:"region"`
	Bucket        string        `mapstructure:"bucket"`
	AccessKeyID   string        `mapstructure:"access_key_id"`
	SecretKey     string        `mapstructure:"secret_key"`
	UsePathStyle  bool          `mapstructure:"use_path_style"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
	ArchivePrefix string        `mapstructure:"archive_prefix"`
}

// TelemetryConfig holds OpenTelemetry and profiling settings
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"` // OTLP gRPC, e.g. localhost:4317
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"` // plaintext gRPC, development only
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
	ProfilingEnabled  bool          `mapstructure:"profiling_enabled"`
	PyroscopeEndpoint string        `mapstructure:"pyroscope_endpoint"`
}

// defaults lists every key Load understands. A key missing here cannot be set
// from the environment, so secrets are registered with empty values.
var defaults = map[string]any{
	"app.name": "catalogsync",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "catalogsync",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":       30 * time.Second,
	"http.write_timeout":      30 * time.Second,
	"http.idle_timeout":       60 * time.Second,
	"http.max_header_bytes":   1 << 20,
	"http.max_upload_size":    int64(20 << 20),
	"http.uploads_per_minute": 10,
	"http.cors_allow_origins": []string{},
	"http.trusted_proxies":    []string{},
	"http.swagger_enabled":    true,

	"auth.enabled":    false,
	"auth.jwt_secret": "",
	"auth.issuer":     "catalogsync",

	"import.worker_enabled":      true,
	"import.poll_interval":       10 * time.Second,
	"import.stale_after":         30 * time.Minute,
	"import.max_attempts":        3,
	"import.lease_ttl":           2 * time.Minute,
	"import.notify_timeout":      30 * time.Second,
	"import.metafield_namespace": "custom",
	"import.csv_delimiter":       ",",

	"shopify.shop_domain":          "",
	"shopify.access_token":         "",
	"shopify.api_version":          "",
	"shopify.base_url":             "",
	"shopify.timeout_seconds":      0,
	"shopify.min_request_interval": time.Duration(0),

	"smtp.host":     "",
	"smtp.port":     587,
	"smtp.username": "",
	"smtp.password": "",
	"smtp.from":     "",

	"storage.enabled":        false,
	"storage.endpoint":       "",
	"storage.region":         "us-east-1",
	"storage.bucket":         "",
	"storage.access_key_id":  "",
	"storage.secret_key":     "",
	"storage.use_path_style": false,
	"storage.presign_expiry": 15 * time.Minute,
	"storage.archive_prefix": "imports",

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
	"telemetry.profiling_enabled":       false,
	"telemetry.pyroscope_endpoint":      "",
}

// Load reads config.toml from the working directory, ./config or /app, then
// applies CATALOGSYNC_ environment overrides on top of the built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	db := c.Database
	check(db.MaxOpenConns > 0, "database.max_open_conns must be positive")
	check(db.MaxIdleConns >= 0, "database.max_idle_conns cannot be negative")
	check(db.MaxIdleConns <= db.MaxOpenConns,
		"database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)
	check(c.Import.PollInterval > 0, "import.poll_interval must be positive")
	check(c.Import.StaleAfter > 0, "import.stale_after must be positive")
	check(c.Import.MaxAttempts >= 1, "import.max_attempts must be at least 1")
	check(utf8.RuneCountInString(c.Import.CSVDelimiter) == 1 && !strings.ContainsAny(c.Import.CSVDelimiter, "\"\r\n"),
		"import.csv_delimiter must be a single character other than a quote or line break")
	check(c.Import.LeaseTTL > 0 && c.Import.LeaseTTL < c.Import.StaleAfter,
		"import.lease_ttl must be positive and shorter than import.stale_after")
	check(!c.Storage.Enabled || c.Storage.Bucket != "", "storage.bucket is required when storage is enabled")
	check(c.Telemetry.SamplingRatio >= 0 && c.Telemetry.SamplingRatio <= 1,
		"telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)

	if c.App.IsProduction() {
		check(!c.Auth.Enabled || len(c.Auth.JWTSecret) >= 32, "auth.jwt_secret must be at least 32 characters in production")
		check(db.Password != "", "database.password is required in production")
		check(db.SSLMode != "disable", "database.sslmode cannot be 'disable' in production")
		for _, origin := range c.HTTP.CORSAllowOrigins {
			check(origin != "*", "http.cors_allow_origins cannot be '*' in production")
		}
		check(!c.Telemetry.DBLogFullSQL, "telemetry.db_log_full_sql must be false in production")
	}

	return errors.Join(errs...)
}
