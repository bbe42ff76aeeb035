package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"whiteboard/internal/presence"
)

const EnvPrefix = "BOARD"

const (
	RepositoryPostgres = "postgres"
	RepositoryInMemory = "inmemory"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Board      BoardConfig      `mapstructure:"board"`
	Scanner    ScannerConfig    `mapstructure:"scanner"`
	Reconcile  ReconcileConfig  `mapstructure:"reconcile"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Client     ClientConfig     `mapstructure:"client"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"`
	PollRateLimit   int           `mapstructure:"poll_rate_limit"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int32         `mapstructure:"max_connections"`
	MinConnections int32         `mapstructure:"min_connections"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

type RepositoryConfig struct {
	Type string `mapstructure:"type"` // "postgres" или "inmemory"
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	// EmailDomain ограничивает самостоятельную регистрацию; пусто - любой домен
	EmailDomain string `mapstructure:"email_domain"`
}

type BoardConfig struct {
	Timezone string `mapstructure:"timezone"`
	Cutoff   string `mapstructure:"cutoff"`
}

type ScannerConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

type ReconcileConfig struct {
	OnBoot bool `mapstructure:"on_boot"`
}

type SyncConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	CutoffCheck  time.Duration `mapstructure:"cutoff_check"`
	ScanOnClient bool          `mapstructure:"scan_on_client"`
}

type ClientConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Email    string        `mapstructure:"email"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit", 300)
	v.SetDefault("server.poll_rate_limit", 3000)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 1)
	v.SetDefault("database.idle_timeout", 5*time.Minute)
	v.SetDefault("database.connect_timeout", 30*time.Second)

	v.SetDefault("logging.development", true)
	v.SetDefault("repository.type", RepositoryInMemory)

	v.SetDefault("auth.jwt_secret", "change-me")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.email_domain", "")

	v.SetDefault("board.timezone", "Local")
	v.SetDefault("board.cutoff", presence.DefaultClock.String())

	v.SetDefault("scanner.enabled", true)
	v.SetDefault("scanner.interval", 5*time.Second)
	v.SetDefault("scanner.batch_size", 100)

	v.SetDefault("reconcile.on_boot", true)

	v.SetDefault("sync.interval", 15*time.Second)
	v.SetDefault("sync.cutoff_check", time.Minute)
	v.SetDefault("sync.scan_on_client", false)

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.email", "")
	v.SetDefault("client.password", "")
	v.SetDefault("client.timeout", 10*time.Second)
}

// Load читает config.yml (если есть), .env рядом с ним и переменные BOARD_*.
// Пустой path означает ./config.yml.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.yml"
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("ошибка чтения %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("ошибка парсинга %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("не могу открыть %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Repository.Type {
	case RepositoryInMemory:
	case RepositoryPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url обязателен для repository.type=postgres")
		}
	default:
		return fmt.Errorf("неизвестный repository.type: %q", c.Repository.Type)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.CutoffClock(); err != nil {
		return err
	}
	// сканер возвратов должен срабатывать чаще опроса доски
	if c.Scanner.Interval <= 0 || c.Scanner.Interval >= c.Sync.Interval {
		return fmt.Errorf("scanner.interval (%s) должен быть меньше sync.interval (%s)", c.Scanner.Interval, c.Sync.Interval)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret не может быть пустым")
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// Location - часовой пояс доски для отсечки присутствия
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Board.Timezone)
	if err != nil {
		return nil, fmt.Errorf("board.timezone: %w", err)
	}
	return loc, nil
}

func (c *Config) CutoffClock() (presence.Clock, error) {
	clock, err := presence.ParseClock(c.Board.Cutoff)
	if err != nil {
		return presence.Clock{}, fmt.Errorf("board.cutoff: %w", err)
	}
	return clock, nil
}
