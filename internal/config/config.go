package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML
// file. Precedence is defaults < file < environment.
const ConfigFileEnv = "CONFIG_FILE"

type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Ingest    IngestConfig    `yaml:"ingest" envconfig:"INGEST"`
	Sessions  SessionConfig   `yaml:"sessions" envconfig:"SESSION"`
	Logger    LoggerConfig    `yaml:"logger" envconfig:"LOG"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	UI        UIConfig        `yaml:"ui" envconfig:"UI"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST" validate:"required"`
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// DataConfig points at an optional sample export that new sessions start
// with before their first upload.
type DataConfig struct {
	SampleFile string `yaml:"sample_file" envconfig:"SAMPLE_FILE"`
}

type IngestConfig struct {
	MaxUploadBytes int64    `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" validate:"gt=0"`
	DateLayouts    []string `yaml:"date_layouts" envconfig:"DATE_LAYOUTS" validate:"min=1,dive,required"`
	Workers        int      `yaml:"workers" envconfig:"WORKERS" validate:"min=1,max=64"`
}

type SessionConfig struct {
	Capacity     int    `yaml:"capacity" envconfig:"CAPACITY" validate:"min=1"`
	CookieName   string `yaml:"cookie_name" envconfig:"COOKIE_NAME" validate:"required"`
	CookieSecure bool   `yaml:"cookie_secure" envconfig:"COOKIE_SECURE"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `yaml:"enable_rate_limit" envconfig:"RATE_LIMIT_ENABLED"`
	RateLimitRPS    int      `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst  int      `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" validate:"gt=0"`
	AllowedOrigins  []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	TrustedProxies  []string `yaml:"trusted_proxies" envconfig:"TRUSTED_PROXIES"`
}

type TelemetryConfig struct {
	ServiceName   string  `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"METRICS_ENABLED"`
}

type UIConfig struct {
	Title          string `yaml:"title" envconfig:"TITLE" validate:"required"`
	CurrencySymbol string `yaml:"currency_symbol" envconfig:"CURRENCY_SYMBOL"`
	MaxTableRows   int    `yaml:"max_table_rows" envconfig:"MAX_TABLE_ROWS" validate:"min=1"`
}

// DefaultDateLayouts are tried in order when parsing order dates.
// Slash dates are month-first.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"Jan 2, 2006",
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8084,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Ingest: IngestConfig{
			MaxUploadBytes: 32 << 20,
			DateLayouts:    append([]string{}, DefaultDateLayouts...),
			Workers:        4,
		},
		Sessions: SessionConfig{
			Capacity:   256,
			CookieName: "kpi_session",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "json",
		},
		Security: SecurityConfig{
			EnableRateLimit: true,
			RateLimitRPS:    100,
			RateLimitBurst:  10,
			AllowedOrigins:  []string{"http://localhost:8084"},
			TrustedProxies:  []string{"127.0.0.1"},
		},
		Telemetry: TelemetryConfig{
			ServiceName:   "sales-kpi-dashboard",
			TraceExporter: "none",
			SampleRatio:   1.0,
			EnableMetrics: true,
		},
		UI: UIConfig{
			Title:          "Sales KPI Dashboard",
			CurrencySymbol: "₹",
			MaxTableRows:   500,
		},
	}
}

func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file
// keep their current value.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive")
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
