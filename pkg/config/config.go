package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/types"
)

// PasswordEnv supplies the database password when no flag or config value
// is given.
const PasswordEnv = "NEO_PASSWORD"

// Defaults applied to omitted settings.
const (
	DefaultURI              = "bolt://localhost:7687"
	DefaultUser             = "neo4j"
	DefaultMaxViolations    = 10
	DefaultValidationLogDir = "tmp_validation"
)

// Config holds all configuration for one loader run.
type Config struct {
	// Neo4j connection settings
	Neo4j Neo4jConfig `mapstructure:"neo4j"`

	// Dataset inputs
	Dataset  string   `mapstructure:"dataset"`
	Schema   []string `mapstructure:"schema"`
	PropFile string   `mapstructure:"prop_file"`

	// Load behavior
	LoadingMode       string `mapstructure:"loading_mode"`
	DataModelVersion  string `mapstructure:"data_model_version"`
	CheatMode         bool   `mapstructure:"cheat_mode"`
	DryRun            bool   `mapstructure:"dry_run"`
	WipeDB            bool   `mapstructure:"wipe_db"`
	NoBackup          bool   `mapstructure:"no_backup"`
	BackupFolder      string `mapstructure:"backup_folder"`
	SplitTransactions bool   `mapstructure:"split_transactions"`
	MaxViolations     int    `mapstructure:"max_violations"`
	NoConfirmation    bool   `mapstructure:"no_confirmation"`
	RepointPolicy     string `mapstructure:"repoint_policy"`
	ValidationLogDir  string `mapstructure:"validation_log_dir"`

	// Plugins to run during the load
	Plugins []PluginConfig `mapstructure:"plugins"`

	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// Neo4jConfig holds the graph database connection settings.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// PluginConfig names a registered plugin and its parameters.
type PluginConfig struct {
	Name   string                 `mapstructure:"name"`
	Params map[string]interface{} `mapstructure:"params"`
}

// AlertConfig holds configuration for alerting.
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking around
// database work.
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// TelemetryConfig holds telemetry configuration. An empty ParquetPath
// disables parquet telemetry.
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the viper-bound file and environment
// variables. Files may nest every key under a top-level "config" section
// or use flat keys.
func Load() (*Config, error) {
	setDefaults()

	v := viper.GetViper()
	if sub := viper.Sub("config"); sub != nil {
		v = sub
	}
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	config.Normalize()
	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("neo4j.uri", DefaultURI)
	viper.SetDefault("neo4j.user", DefaultUser)

	viper.SetDefault("loading_mode", string(types.UpsertMode))
	viper.SetDefault("max_violations", DefaultMaxViolations)
	viper.SetDefault("validation_log_dir", DefaultValidationLogDir)
}

// Normalize fills omitted settings with defaults and canonicalizes paths.
// It is idempotent and runs again after flag overrides.
func (c *Config) Normalize() {
	if c.Neo4j.URI == "" {
		c.Neo4j.URI = DefaultURI
	}
	c.Neo4j.URI = strings.TrimRight(c.Neo4j.URI, "/")
	if c.Neo4j.User == "" {
		c.Neo4j.User = DefaultUser
	}
	if c.LoadingMode == "" {
		c.LoadingMode = string(types.UpsertMode)
	}
	if c.MaxViolations <= 0 {
		c.MaxViolations = DefaultMaxViolations
	}
	if c.ValidationLogDir == "" {
		c.ValidationLogDir = DefaultValidationLogDir
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// The properties file may live inside the dataset directory.
	if c.PropFile != "" && c.Dataset != "" {
		inDataset := c.Dataset + string(os.PathSeparator) + c.PropFile
		if _, err := os.Stat(c.PropFile); err != nil {
			if _, err := os.Stat(inDataset); err == nil {
				c.PropFile = inDataset
			}
		}
	}
}

// Validate rejects incomplete or contradictory configurations before any
// I/O happens.
func (c *Config) Validate() error {
	if c.Dataset == "" {
		return fmt.Errorf("dataset directory is required")
	}
	info, err := os.Stat(c.Dataset)
	if err != nil {
		return fmt.Errorf("dataset directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("dataset %q is not a directory", c.Dataset)
	}
	if len(c.Schema) == 0 {
		return fmt.Errorf("at least one schema file is required")
	}
	if c.PropFile == "" {
		return fmt.Errorf("properties file is required")
	}
	if _, err := types.ParseLoadMode(c.LoadingMode); err != nil {
		return fmt.Errorf("loading mode %q: %w", c.LoadingMode, err)
	}
	if _, err := types.ParseRepointPolicy(c.RepointPolicy); err != nil {
		return fmt.Errorf("repoint policy %q: %w", c.RepointPolicy, err)
	}
	if c.SplitTransactions && c.NoBackup {
		return fmt.Errorf("split transactions require a backup, remove no_backup")
	}
	if !c.NoBackup && c.BackupFolder == "" {
		return fmt.Errorf("backup folder is required unless no_backup is set")
	}
	return nil
}

// Mode returns the parsed loading mode. Call Validate first.
func (c *Config) Mode() types.LoadMode {
	mode, err := types.ParseLoadMode(c.LoadingMode)
	if err != nil {
		return types.UpsertMode
	}
	return mode
}

// Repoint returns the parsed repoint policy. Call Validate first.
func (c *Config) Repoint() types.RepointPolicy {
	policy, err := types.ParseRepointPolicy(c.RepointPolicy)
	if err != nil {
		return types.RepointReplace
	}
	return policy
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Neo4j.URI = strings.TrimRight(uri, "/")
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Neo4j.User = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Neo4j.Password = pass
	}
	if pass := os.Getenv(PasswordEnv); pass != "" {
		config.Neo4j.Password = pass
	}
}
