// cmd/handlersim/config.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tamzrod/handler-simulator/internal/config"
)

// loadConfig loads the file (if any), applies flag overrides, then
// validates and normalizes.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
	}

	applyOverrides(cmd, cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	h := &cfg.Simulator.Handler
	d := &cfg.Simulator.Device

	if flags.Changed("listen") {
		cfg.Simulator.Listen.Address = listenAddr
	}
	if flags.Changed("sites") {
		h.Sites = sites
	}
	if flags.Changed("devices") {
		h.DevicesToTest = devices
	}
	if flags.Changed("pattern") {
		h.Pattern = pattern
	}
	if flags.Changed("reprobe") {
		h.ReprobeMode = reprobe
	}
	if flags.Changed("corrupt-bins") {
		h.CorruptBinData = corruptBins
	}
	if flags.Changed("auto-start") {
		d.AutoStart = autoStart
	}
	if flags.Changed("query-error") {
		d.QueryError = queryError
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode effective config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
