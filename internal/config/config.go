package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Collect CollectConfig `yaml:"collect" mapstructure:"collect"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Report  ReportConfig  `yaml:"report" mapstructure:"report"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// CollectConfig configures retries, timeouts and fan-out of a run.
type CollectConfig struct {
	MaxRetries        int `yaml:"max_retries" mapstructure:"max_retries"`
	InitialBackoffMs  int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs      int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	SourceTimeoutSecs int `yaml:"source_timeout_secs" mapstructure:"source_timeout_secs"`
	RunTimeoutSecs    int `yaml:"run_timeout_secs" mapstructure:"run_timeout_secs"`
	MaxConcurrent     int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	MinReferences     int `yaml:"min_references" mapstructure:"min_references"`
}

// SourceTimeout returns the per-attempt timeout.
func (c CollectConfig) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutSecs) * time.Second
}

// RunTimeout returns the whole-run timeout. Zero means none.
func (c CollectConfig) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSecs) * time.Second
}

// SourcesConfig configures the source catalog and the shared HTTP client.
type SourcesConfig struct {
	CatalogPath   string `yaml:"catalog_path" mapstructure:"catalog_path"`
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	PreviewDir    string `yaml:"preview_dir" mapstructure:"preview_dir"`
	BenzingaToken string `yaml:"benzinga_token" mapstructure:"benzinga_token"`
}

// ReportConfig configures the candidate report.
type ReportConfig struct {
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EARNINGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("collect.max_retries", 1)
	v.SetDefault("collect.initial_backoff_ms", 500)
	v.SetDefault("collect.max_backoff_ms", 5000)
	v.SetDefault("collect.source_timeout_secs", 45)
	v.SetDefault("collect.run_timeout_secs", 0)
	v.SetDefault("collect.max_concurrent", 5)
	v.SetDefault("collect.min_references", 2)
	v.SetDefault("sources.catalog_path", "")
	v.SetDefault("sources.user_agent", "")
	v.SetDefault("sources.preview_dir", "")
	v.SetDefault("sources.benzinga_token", "")
	v.SetDefault("report.format", "tsv")
	v.SetDefault("report.output", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are
// "collect" and "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "collect":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	cc := c.Collect
	if cc.MaxRetries < 0 || cc.MaxRetries > 10 {
		errs = append(errs, "collect.max_retries must be between 0 and 10")
	}
	if cc.InitialBackoffMs < 0 || cc.MaxBackoffMs < 0 {
		errs = append(errs, "collect backoff values must be >= 0")
	}
	if cc.MaxBackoffMs > 0 && cc.InitialBackoffMs > cc.MaxBackoffMs {
		errs = append(errs, "collect.initial_backoff_ms must not exceed collect.max_backoff_ms")
	}
	if cc.SourceTimeoutSecs < 0 || cc.RunTimeoutSecs < 0 {
		errs = append(errs, "collect timeouts must be >= 0")
	}
	if cc.MaxConcurrent < 1 || cc.MaxConcurrent > 16 {
		errs = append(errs, "collect.max_concurrent must be between 1 and 16")
	}
	if cc.MinReferences < 0 {
		errs = append(errs, "collect.min_references must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
