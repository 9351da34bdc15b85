package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Environment variables that override the config file.
const (
	envEnv                = "ENV"
	envPort               = "PORT"
	envDatabaseURL        = "DATABASE_URL"
	envPreferredURLScheme = "PREFERRED_URL_SCHEME"
	envBaseURL            = "BASE_URL"
	envQRDir              = "QR_DIR"
)

type Config struct {
	Env string `yaml:"env"`
	// BaseURL prefixes short URLs. When empty it is derived per request from
	// PreferredURLScheme and the Host header.
	BaseURL            string `yaml:"base_url"`
	PreferredURLScheme string `yaml:"preferred_url_scheme"`
	QRDir              string `yaml:"qr_dir"`
	HTTPServer         `yaml:"http_server"`
	Postgres           `yaml:"postgres"`
	RateLimit          `yaml:"rate_limit"`
	Log                `yaml:"log"`
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
	// TrustProxy takes the client IP from X-Forwarded-For and X-Real-IP.
	// Enable it only behind a proxy that overwrites those headers.
	TrustProxy     bool          `yaml:"trust_proxy"`
}

var defaultHTTPServer = HTTPServer{
	Port:           5000,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Postgres struct {
	// URL takes precedence over the individual connection fields.
	URL             string        `yaml:"url"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	DB:              "pyshort",
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
}

func (p *Postgres) DSN() string {
	if p.URL != "" {
		return p.URL
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

// RateLimit applies to POST /shorten and POST /api/shorten. RPS <= 0 disables it.
type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

var defaultRateLimit = RateLimit{
	RPS:   2,
	Burst: 10,
}

func (rl *RateLimit) Enabled() bool {
	return rl.RPS > 0
}

type Log struct {
	Level string `yaml:"level"`
}

var defaultLog = Log{
	Level: "info",
}

// Load reads the YAML file at path over the defaults and then applies the
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	setDefaults(&cfg)

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.PreferredURLScheme = "http"
	cfg.QRDir = "static/qr"
	cfg.HTTPServer = defaultHTTPServer
	cfg.Postgres = defaultPostgres
	cfg.RateLimit = defaultRateLimit
	cfg.Log = defaultLog
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(envEnv); ok {
		cfg.Env = v
	}
	if v, ok := os.LookupEnv(envPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", envPort, err)
		}
		cfg.HTTPServer.Port = port
	}
	if v, ok := os.LookupEnv(envDatabaseURL); ok {
		cfg.Postgres.URL = v
	}
	if v, ok := os.LookupEnv(envPreferredURLScheme); ok {
		cfg.PreferredURLScheme = v
	}
	if v, ok := os.LookupEnv(envBaseURL); ok {
		cfg.BaseURL = v
	}
	if v, ok := os.LookupEnv(envQRDir); ok {
		cfg.QRDir = v
	}

	return nil
}

func (cfg *Config) validate() error {
	switch cfg.Env {
	case EnvDev, EnvStage, EnvProd:
	default:
		return fmt.Errorf("unknown env %q", cfg.Env)
	}

	switch cfg.PreferredURLScheme {
	case "http", "https":
	default:
		return fmt.Errorf("preferred_url_scheme must be http or https, got %q", cfg.PreferredURLScheme)
	}

	if cfg.BaseURL != "" && !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}

	if cfg.QRDir == "" {
		return errors.New("qr_dir is required")
	}

	return nil
}
