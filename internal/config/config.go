package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// AmountLimits bounds a single withdrawal, in FCFA.
type AmountLimits struct {
	Min int64 `yaml:"min"`
	Max int64 `yaml:"max"`
}

type Config struct {
	Server struct {
		Host            string   `yaml:"host"`
		Port            int      `yaml:"port"`
		Env             string   `yaml:"env"`
		ShutdownTimeout int      `yaml:"shutdown_timeout"` // seconds
		AllowedOrigins  []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
	} `yaml:"jwt"`

	// Email is only used for reconciliation alerts to operators.
	Email struct {
		SMTPHost      string   `yaml:"smtp_host"`
		SMTPPort      int      `yaml:"smtp_port"`
		SMTPUsername  string   `yaml:"smtp_user"`
		SMTPPassword  string   `yaml:"smtp_password"`
		FromEmail     string   `yaml:"from_email"`
		FromName      string   `yaml:"from_name"`
		OpsRecipients []string `yaml:"ops_recipients"`
	} `yaml:"email"`

	Gateway struct {
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		AppName        string `yaml:"app_name"`
		CreatePath     string `yaml:"create_path"`
		StatusPath     string `yaml:"status_path"` // must contain %s for the uuid
		SendCashPath   string `yaml:"send_cash_path"`
		RequestTimeout int    `yaml:"request_timeout"` // seconds
		PollInterval   int    `yaml:"poll_interval"`   // seconds
		PollTimeout    int    `yaml:"poll_timeout"`    // seconds
		SessionTTL     int    `yaml:"session_ttl"`     // seconds
	} `yaml:"gateway"`

	SMS struct {
		BaseURL string `yaml:"base_url"`
		Path    string `yaml:"path"`
		Sender  string `yaml:"sender"`
	} `yaml:"sms"`

	OTP struct {
		TTL         int    `yaml:"ttl"` // seconds
		MaxAttempts int    `yaml:"max_attempts"`
		Store       string `yaml:"store"` // memory, postgres
		BcryptCost  int    `yaml:"bcrypt_cost"`
	} `yaml:"otp"`

	Withdrawal struct {
		Limits map[string]AmountLimits `yaml:"limits"` // keyed by method: OM, WAVE, FREE
	} `yaml:"withdrawal"`
}

var AppConfig *Config

// LoadConfig fills AppConfig. DATABASE_URL in the environment switches to
// env-only mode (used by tests and containers); otherwise CONFIG_PATH or
// config/config.yaml is read.
func LoadConfig() {
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("Loading configuration from environment variables")
		cfg := &Config{}
		applyDefaults(cfg)
		applyEnv(cfg)
		AppConfig = cfg
		return
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

// Load reads a YAML file, then applies defaults and environment overrides.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4000
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10
	}

	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}

	if cfg.Gateway.AppName == "" {
		cfg.Gateway.AppName = "PAYDESK"
	}
	if cfg.Gateway.CreatePath == "" {
		cfg.Gateway.CreatePath = "/api/payments"
	}
	if cfg.Gateway.StatusPath == "" {
		cfg.Gateway.StatusPath = "/api/payments/%s/status"
	}
	if cfg.Gateway.SendCashPath == "" {
		cfg.Gateway.SendCashPath = "/api/send-cash"
	}
	if cfg.Gateway.RequestTimeout == 0 {
		cfg.Gateway.RequestTimeout = 15
	}
	if cfg.Gateway.PollInterval == 0 {
		cfg.Gateway.PollInterval = 5
	}
	if cfg.Gateway.PollTimeout == 0 {
		cfg.Gateway.PollTimeout = 120
	}
	if cfg.Gateway.SessionTTL == 0 {
		cfg.Gateway.SessionTTL = 300
	}

	if cfg.SMS.Path == "" {
		cfg.SMS.Path = "/api/sms/send"
	}
	if cfg.SMS.Sender == "" {
		cfg.SMS.Sender = cfg.Gateway.AppName
	}

	if cfg.OTP.TTL == 0 {
		cfg.OTP.TTL = 120
	}
	if cfg.OTP.MaxAttempts == 0 {
		cfg.OTP.MaxAttempts = 3
	}
	if cfg.OTP.Store == "" {
		cfg.OTP.Store = "memory"
	}
	if cfg.OTP.BcryptCost == 0 {
		cfg.OTP.BcryptCost = 10
	}

	if len(cfg.Withdrawal.Limits) == 0 {
		cfg.Withdrawal.Limits = map[string]AmountLimits{
			"OM":   {Min: 100, Max: 1_000_000},
			"WAVE": {Min: 100, Max: 1_500_000},
			"FREE": {Min: 100, Max: 1_000_000},
		}
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("SERVER_ENV"); v != "" {
		cfg.Server.Env = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("GATEWAY_BASE_URL"); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := os.Getenv("GATEWAY_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("SMS_BASE_URL"); v != "" {
		cfg.SMS.BaseURL = v
	}
	if cfg.SMS.BaseURL == "" {
		cfg.SMS.BaseURL = cfg.Gateway.BaseURL
	}
}

// ============================================
// Duration helpers
// ============================================

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (c *Config) GatewayRequestTimeout() time.Duration { return seconds(c.Gateway.RequestTimeout) }
func (c *Config) PollInterval() time.Duration          { return seconds(c.Gateway.PollInterval) }
func (c *Config) PollTimeout() time.Duration           { return seconds(c.Gateway.PollTimeout) }
func (c *Config) SessionTTL() time.Duration            { return seconds(c.Gateway.SessionTTL) }
func (c *Config) OTPTTL() time.Duration                { return seconds(c.OTP.TTL) }
func (c *Config) ShutdownTimeout() time.Duration       { return seconds(c.Server.ShutdownTimeout) }
