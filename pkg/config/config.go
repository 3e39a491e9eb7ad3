package config

// Package config provides a reusable loader for transferledger
// configuration files and environment variables. It is versioned so
// that applications can depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"transferledger/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for a replica process: its
// transfer-replica root directory and genesis/threshold parameters, its
// account-manager quota defaults, the HTTP listen address, and logging.
type Config struct {
	Replica struct {
		NodeID       string `mapstructure:"node_id" json:"node_id"`
		RootDir      string `mapstructure:"root_dir" json:"root_dir"`
		ReplicaIndex int    `mapstructure:"replica_index" json:"replica_index"`
		Threshold    int    `mapstructure:"threshold" json:"threshold"`
	} `mapstructure:"replica" json:"replica"`

	AccountManager struct {
		DefaultAllowance uint64 `mapstructure:"default_allowance" json:"default_allowance"`
		DefaultPayment   uint64 `mapstructure:"default_payment" json:"default_payment"`
		CacheTTLSeconds  int    `mapstructure:"cache_ttl_seconds" json:"cache_ttl_seconds"`
		CacheCapacity    int    `mapstructure:"cache_capacity" json:"cache_capacity"`
	} `mapstructure:"account_manager" json:"account_manager"`

	HTTP struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"http" json:"http"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is
// loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up matching process environment variables

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the TL_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("TL_ENV", ""))
}
