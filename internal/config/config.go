package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	RPC      RPCConfig      `mapstructure:"rpc"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	Icons    IconsConfig    `mapstructure:"icons"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// StorageConfig holds settings of the on-disk icon cache.
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
	// NegativeTTL is how long a "not found" marker suppresses new remote lookups.
	NegativeTTL time.Duration `mapstructure:"negative_ttl"`
}

// RemoteConfig holds settings of the CDN and price-aggregator sources.
type RemoteConfig struct {
	CDNBaseURL        string        `mapstructure:"cdn_base_url"`
	AggregatorBaseURL string        `mapstructure:"aggregator_base_url"`
	AggregatorAPIKey  string        `mapstructure:"aggregator_api_key"`
	AggregatorRPS     float64       `mapstructure:"aggregator_rps"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// RPCConfig holds settings of the per-chain RPC pools.
type RPCConfig struct {
	CallTimeout  time.Duration `mapstructure:"call_timeout"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	MaxWorkers   int           `mapstructure:"max_workers"`
}

// MetadataConfig holds settings of the asset metadata database.
type MetadataConfig struct {
	DBPath            string        `mapstructure:"db_path"`
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

// IconsConfig holds settings of the well-known icon table.
type IconsConfig struct {
	// WellKnownFile optionally replaces the embedded table.
	WellKnownFile string `mapstructure:"well_known_file"`
}

// BindFlags registers command line flags that override file and environment settings.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config-dir", "configs", "directory containing config.yaml")
	fs.String("data-dir", "", "directory holding the images/ cache tree")
	fs.String("port", "", "HTTP port to listen on")
	fs.String("metadata-db", "", "path to the asset metadata sqlite database")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
}

// Load reads configuration from file, environment variables and the given flags.
// flags may be nil.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("app.name", "icon-resolver")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "4343")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.negative_ttl", "12h")
	v.SetDefault("remote.cdn_base_url", "https://raw.githubusercontent.com/SmolDapp/tokenAssets/main/tokens")
	v.SetDefault("remote.aggregator_base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("remote.aggregator_api_key", "")
	v.SetDefault("remote.aggregator_rps", 0.5)
	v.SetDefault("remote.timeout", "10s")
	v.SetDefault("rpc.call_timeout", "10s")
	v.SetDefault("rpc.probe_timeout", "5s")
	v.SetDefault("rpc.max_workers", 8)
	v.SetDefault("metadata.db_path", "global.db")
	v.SetDefault("metadata.default_expiration", "30m")
	v.SetDefault("metadata.cleanup_interval", "1h")
	v.SetDefault("icons.well_known_file", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		fmt.Printf("Warning: Config file not found in %s or '.', using defaults/env vars\n", configPath)
	}

	v.SetEnvPrefix("ICON_RESOLVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, flag := range map[string]string{
			"storage.data_dir": "data-dir",
			"server.port":      "port",
			"metadata.db_path": "metadata-db",
			"logger.level":     "log-level",
		} {
			if f := flags.Lookup(flag); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func (c StorageConfig) GetNegativeTTL() time.Duration {
	return c.NegativeTTL
}

func (c RemoteConfig) GetTimeout() time.Duration {
	return c.Timeout
}

func (c RPCConfig) GetCallTimeout() time.Duration {
	return c.CallTimeout
}

func (c RPCConfig) GetProbeTimeout() time.Duration {
	return c.ProbeTimeout
}

func (c MetadataConfig) GetDefaultExpiration() time.Duration {
	return c.DefaultExpiration
}

func (c MetadataConfig) GetCleanupInterval() time.Duration {
	return c.CleanupInterval
}
