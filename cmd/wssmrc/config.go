package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cachesight/wssmrc/config"
)

// loadEngineConfig reads the §6 configuration surface from a TOML file (if
// --config points at one) and layers flag overrides on top, mirroring the
// cache package's Config/DefaultConfig split: defaults first, then
// whatever the operator actually set.
func loadEngineConfig(cmd *cobra.Command) (config.Engine, error) {
	cfg := config.DefaultPreset()

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		localV := viper.New()
		localV.SetConfigFile(path)
		if err := localV.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("wssmrc: read config %s: %w", path, err)
		}
		if err := localV.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("wssmrc: parse config %s: %w", path, err)
		}
	}

	if cmd.Flags().Changed("precision") {
		p, _ := cmd.Flags().GetUint8("precision")
		cfg.Precision = p
	}
	if cmd.Flags().Changed("bucket-width") {
		b, _ := cmd.Flags().GetUint64("bucket-width")
		cfg.BucketWidthBytes = b
	}
	if cmd.Flags().Changed("fixed-block") {
		f, _ := cmd.Flags().GetUint32("fixed-block")
		cfg.FixedBlockBytes = f
	}
	if cmd.Flags().Changed("min-block") {
		m, _ := cmd.Flags().GetUint32("min-block")
		cfg.MinBlock = m
	}
	if cmd.Flags().Changed("max-block") {
		m, _ := cmd.Flags().GetUint32("max-block")
		cfg.MaxBlock = m
	}

	return cfg, nil
}
