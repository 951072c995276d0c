// Package config loads application configuration from an optional
// config.yaml and CATALOG_* environment variables, and initializes the
// global logger. All values are read once at process start.
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
	CKAN      CKANConfig      `yaml:"ckan" mapstructure:"ckan"`
	Snapshot  SnapshotConfig  `yaml:"snapshot" mapstructure:"snapshot"`
	Freshness FreshnessConfig `yaml:"freshness" mapstructure:"freshness"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	RunLog    RunLogConfig    `yaml:"runlog" mapstructure:"runlog"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CKANConfig points at the upstream catalog portal.
type CKANConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	APIPath   string `yaml:"api_path" mapstructure:"api_path"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// SnapshotConfig bounds the snapshot run.
type SnapshotConfig struct {
	MaxDatasets    int `yaml:"max_datasets" mapstructure:"max_datasets"` // 0 = unlimited
	TimeoutSecs    int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries        int `yaml:"retries" mapstructure:"retries"`
	DelayMS        int `yaml:"delay_ms" mapstructure:"delay_ms"` // inter-request politeness delay
	CSVSampleLines int `yaml:"csv_sample_lines" mapstructure:"csv_sample_lines"`
	Workers        int `yaml:"workers" mapstructure:"workers"`
}

// Timeout returns the per-request timeout as a duration.
func (c SnapshotConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Delay returns the inter-request delay as a duration.
func (c SnapshotConfig) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

// FreshnessConfig holds the day thresholds for the freshness buckets.
type FreshnessConfig struct {
	GreenDays  int `yaml:"green_days" mapstructure:"green_days"`
	YellowDays int `yaml:"yellow_days" mapstructure:"yellow_days"`
}

// OutputConfig configures snapshot persistence.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// RunLogConfig configures the run index database.
type RunLogConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite | postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the read-only snapshot API.
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
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ckan.base_url", "https://catalogodatos.gub.uy")
	v.SetDefault("ckan.api_path", "/api/3/action")
	v.SetDefault("ckan.user_agent", "catalog-health/1.0 (+https://github.com/sells-group/catalog-health)")
	v.SetDefault("snapshot.max_datasets", 0)
	v.SetDefault("snapshot.timeout_secs", 12)
	v.SetDefault("snapshot.retries", 2)
	v.SetDefault("snapshot.delay_ms", 150)
	v.SetDefault("snapshot.csv_sample_lines", 50)
	v.SetDefault("snapshot.workers", 1)
	v.SetDefault("freshness.green_days", 90)
	v.SetDefault("freshness.yellow_days", 365)
	v.SetDefault("output.dir", "data")
	v.SetDefault("runlog.driver", "sqlite")
	v.SetDefault("runlog.database_url", "catalog-health.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
