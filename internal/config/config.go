package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	PublicBaseURL string           `json:"public_base_url"`
	Database      DatabaseConfig   `json:"database"`
	JWT           JWTConfig        `json:"jwt"`
	Mail          MailConfig       `json:"mail"`
	Poller        PollerConfig     `json:"poller"`
	RateLimit     RateLimitConfig  `json:"rate_limit"`
	Archive       ArchiveConfig    `json:"archive"`
	LogConfig     logger.LogConfig `json:"log_config"`
	CORSOrigins   []string         `json:"cors_origins"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type JWTConfig struct {
	Secret           string `json:"secret"`
	RefreshSecret    string `json:"refresh_secret"`
	AccessTTLMinutes int    `json:"access_ttl_minutes"`
	RefreshTTLHours  int    `json:"refresh_ttl_hours"`
	VerifyTTLHours   int    `json:"verify_ttl_hours"`
}

type MailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
	Subject  string `json:"subject"`
}

type PollerConfig struct {
	Spec     string `json:"spec"`
	Embedded *bool  `json:"embedded"`
}

type RateLimitConfig struct {
	Backend       string `json:"backend"`
	Requests      int    `json:"requests"`
	WindowSeconds int    `json:"window_seconds"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
}

type ArchiveConfig struct {
	Type string   `json:"type"`
	Dir  string   `json:"dir"`
	S3   S3Config `json:"s3"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Prefix    string `json:"prefix"`
	UseSSL    bool   `json:"use_ssl"`
}

// EmbeddedPoller reports whether the server process runs the delivery poller itself.
func (c PollerConfig) EmbeddedPoller() bool {
	return c.Embedded == nil || *c.Embedded
}

// Load reads the JSON file at path (optional when empty), then applies a .env
// file and environment overrides, then defaults and required checks.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	_ = godotenv.Load()
	applyEnv(&cfg)
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.PublicBaseURL, "PUBLIC_BASE_URL")
	setInt(&cfg.Port, "PHISHSIM_PORT")
	setString(&cfg.Database.DSN, "DB_DSN")
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.DBName, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSLMODE")
	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setString(&cfg.JWT.RefreshSecret, "JWT_REFRESH_SECRET")
	setString(&cfg.Mail.Host, "SMTP_HOST")
	setInt(&cfg.Mail.Port, "SMTP_PORT")
	setString(&cfg.Mail.Username, "SMTP_USER")
	setString(&cfg.Mail.Password, "SMTP_PASS")
	setString(&cfg.Mail.From, "SMTP_FROM")
	setString(&cfg.RateLimit.Backend, "PHISHSIM_RATE_LIMIT_BACKEND")
	setString(&cfg.RateLimit.RedisAddr, "PHISHSIM_REDIS_ADDR")
	setString(&cfg.Archive.Type, "PHISHSIM_ARCHIVE_TYPE")
	setString(&cfg.Archive.Dir, "PHISHSIM_ARCHIVE_DIR")
	setString(&cfg.LogConfig.Level, "PHISHSIM_LOG_LEVEL")
	if v := strings.TrimSpace(os.Getenv("PHISHSIM_CORS_ORIGINS")); v != "" {
		cfg.CORSOrigins = strings.Split(v, ",")
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func (c *Config) finalize() error {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = fmt.Sprintf("http://localhost:%d", c.Port)
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
	if c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("jwt.refresh_secret is required")
	}
	if c.JWT.AccessTTLMinutes == 0 {
		c.JWT.AccessTTLMinutes = 60
	}
	if c.JWT.RefreshTTLHours == 0 {
		c.JWT.RefreshTTLHours = 24 * 7
	}
	if c.JWT.VerifyTTLHours == 0 {
		c.JWT.VerifyTTLHours = 24
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Mail.Subject == "" {
		c.Mail.Subject = "Nouvelle campagne de simulation de phishing"
	}
	if c.Poller.Spec == "" {
		c.Poller.Spec = "@every 1m"
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = "memory"
	}
	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.RateLimit.RedisAddr == "" {
			return fmt.Errorf("rate_limit.redis_addr is required for redis backend")
		}
	default:
		return fmt.Errorf("rate_limit.backend must be memory or redis")
	}
	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = 20
	}
	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if c.Archive.Type == "" {
		c.Archive.Type = "none"
	}
	switch c.Archive.Type {
	case "none":
	case "local":
		if c.Archive.Dir == "" {
			return fmt.Errorf("archive.dir is required for local archive")
		}
	case "s3":
		if c.Archive.S3.Endpoint == "" || c.Archive.S3.Bucket == "" || c.Archive.S3.SecretID == "" || c.Archive.S3.SecretKey == "" {
			return fmt.Errorf("archive.s3 endpoint/bucket/secret_id/secret_key are required for s3 archive")
		}
		if c.Archive.S3.Region == "" {
			c.Archive.S3.Region = "us-east-1"
		}
	default:
		return fmt.Errorf("archive.type must be none, local or s3")
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	return nil
}
