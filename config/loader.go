package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// GlobalEngineConfig stores the config instance for global use
var GlobalEngineConfig *EngineConfig

// LoadConfig loads config from command instance to predefined config variables
func LoadConfig(cmd *cobra.Command) (*EngineConfig, error) {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	// default viper configs
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// set default configs
	setDefaultConfig()

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".coverbay")
		viper.AddConfigPath("./")
		viper.AddConfigPath("$HOME/.coverbay")
	}

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("Warning: No configuration file found. Proceeding with defaults")
	}

	return populateConfig(new(EngineConfig))
}

func populateConfig(cfg *EngineConfig) (*EngineConfig, error) {
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	GlobalEngineConfig = cfg
	return cfg, nil
}

// ValidateCfg checks the validity of the config
func ValidateCfg(cfg *EngineConfig) error {
	if cfg.Port == "" {
		return errors.New("error finding port in configuration")
	}
	if cfg.PackageDepth < 1 {
		return errors.New("packageDepth must be at least 1")
	}
	if cfg.DB.Host == "" || cfg.DB.Name == "" {
		return errors.New("error finding database host or name in configuration")
	}
	return nil
}
