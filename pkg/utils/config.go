package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/octacordshop/PrimeStream/pkg/database"
)

const DevJWTSecret = "dev-secret-change-me"

// Config holds every setting the binaries read. Keys mirror the yaml layout,
// e.g. provider.api_key, overridable as PRIMESTREAM_PROVIDER_API_KEY.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Provider ProviderConfig `mapstructure:"provider"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Import   ImportConfig   `mapstructure:"import"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
	TCPAddr  string `mapstructure:"tcp_addr"`
	GRPCAddr string `mapstructure:"grpc_addr"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTIssuer string        `mapstructure:"jwt_issuer"`
	JWTTTL    time.Duration `mapstructure:"jwt_ttl"`

	// operator created on first start when no account matches
	AdminUsername string `mapstructure:"admin_username"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

type ProviderConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	ImageBaseURL      string        `mapstructure:"image_base_url"`
	Language          string        `mapstructure:"language"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Timeout           time.Duration `mapstructure:"timeout"`
	PopularTTL        time.Duration `mapstructure:"popular_ttl"`
	DiscoverTTL       time.Duration `mapstructure:"discover_ttl"`
}

type PlaybackConfig struct {
	MovieTemplate   string        `mapstructure:"movie_template"`
	EpisodeTemplate string        `mapstructure:"episode_template"`
	Timeout         time.Duration `mapstructure:"timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
}

type CacheConfig struct {
	Backend       string        `mapstructure:"backend"` // sqlite or bolt
	BoltPath      string        `mapstructure:"bolt_path"`
	MaxAge        time.Duration `mapstructure:"max_age"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

type ImportConfig struct {
	PacingDelay       time.Duration `mapstructure:"pacing_delay"`
	BackoffDelay      time.Duration `mapstructure:"backoff_delay"`
	PreflightAttempts uint          `mapstructure:"preflight_attempts"`
	PreflightDelay    time.Duration `mapstructure:"preflight_delay"`
	HistorySize       int           `mapstructure:"history_size"`
}

type LoggingConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".primestream")
}

func setDefaults(v *viper.Viper) {
	dbPath := database.DefaultConfig().Path

	v.SetDefault("database.path", dbPath)

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.tcp_addr", ":7070")
	v.SetDefault("server.grpc_addr", ":9090")

	v.SetDefault("auth.jwt_secret", DevJWTSecret)
	v.SetDefault("auth.jwt_issuer", "primestream")
	v.SetDefault("auth.jwt_ttl", 12*time.Hour)
	v.SetDefault("auth.admin_username", "")
	v.SetDefault("auth.admin_email", "")
	v.SetDefault("auth.admin_password", "")

	v.SetDefault("provider.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.image_base_url", "https://image.tmdb.org/t/p")
	v.SetDefault("provider.language", "en-US")
	v.SetDefault("provider.requests_per_second", 4.0)
	v.SetDefault("provider.burst", 4)
	v.SetDefault("provider.timeout", 15*time.Second)
	v.SetDefault("provider.popular_ttl", time.Hour)
	v.SetDefault("provider.discover_ttl", 24*time.Hour)

	v.SetDefault("playback.movie_template", "https://vidsrc.xyz/embed/movie/{id}")
	v.SetDefault("playback.episode_template", "https://vidsrc.xyz/embed/tv/{id}/{season}-{episode}")
	v.SetDefault("playback.timeout", 10*time.Second)
	v.SetDefault("playback.user_agent", "PrimeStream/1.0")

	v.SetDefault("cache.backend", "sqlite")
	v.SetDefault("cache.bolt_path", filepath.Join(filepath.Dir(dbPath), "cache.bolt"))
	v.SetDefault("cache.max_age", 7*24*time.Hour)
	v.SetDefault("cache.prune_interval", time.Hour)

	v.SetDefault("import.pacing_delay", 2*time.Second)
	v.SetDefault("import.backoff_delay", 5*time.Second)
	v.SetDefault("import.preflight_attempts", 3)
	v.SetDefault("import.preflight_delay", time.Second)
	v.SetDefault("import.history_size", 50)

	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 20)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", false)
}

// LoadConfig reads defaults, then config.yaml (explicit file, or searched in
// the working directory and ~/.primestream), then PRIMESTREAM_* variables.
// A missing config file is not an error.
func LoadConfig(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(configDir())
	}

	v.SetEnvPrefix("PRIMESTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the provider's own conventional variable also works
	_ = v.BindEnv("provider.api_key", "PRIMESTREAM_PROVIDER_API_KEY", "TMDB_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("config: database.path is empty")
	}
	switch c.Cache.Backend {
	case "sqlite", "bolt":
	default:
		return fmt.Errorf("config: cache.backend must be sqlite or bolt, got %q", c.Cache.Backend)
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("config: provider.base_url is empty")
	}
	return nil
}
