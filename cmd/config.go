// Package cmd provides command-line interface functionality for the ruleindex application.
/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"ruleindex/internal/config"

	"github.com/spf13/cobra"
)

var configValidatePath string

// newConfigCmd creates and returns the config command.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the effective configuration as YAML after merging defaults,
the config file and environment variables. Secret values are omitted.

With --validate, parse and validate the given YAML config file instead
of printing the effective configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configValidatePath != "" {
				return validateConfigFile(cmd, configValidatePath)
			}

			out, err := GetConfig().RenderYAML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	configCmd.Flags().StringVar(&configValidatePath, "validate", "", "validate a YAML config file and exit")

	return configCmd
}

// validateConfigFile parses and validates one YAML config file.
func validateConfigFile(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := config.ParseConfigFromYAML(data)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
	return nil
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(newConfigCmd())
}
