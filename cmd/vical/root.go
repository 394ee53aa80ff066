package main

import (
	"github.com/spf13/cobra"

	"github.com/kokukuma/vical-verifier/internal/config"
)

var (
	logLevel   string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "vical",
	Short:         "VICAL verification tool",
	Long:          "Verify a Verified Issuer Certificate Authority List against its trust chain and extract the issuing authority certificates it lists.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "Log level: debug, info, warn, error (default: config or info)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(mintCmd)
}

// loadConfig reads the configuration file and environment, then applies
// the flags that were set explicitly.
func loadConfig(cmd *cobra.Command, overrides map[string]*string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	targets := map[string]*string{
		"root":         &cfg.Root,
		"intermediate": &cfg.Intermediate,
		"signer":       &cfg.Signer,
		"out":          &cfg.OutDir,
		"sqlite":       &cfg.SQLitePath,
	}
	for name, value := range overrides {
		if dst, ok := targets[name]; ok && cmd.Flags().Changed(name) {
			*dst = *value
		}
	}
	return cfg, nil
}
