package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Clinical-Genomics/strdrop/internal/drops"
	"github.com/Clinical-Genomics/strdrop/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage strdrop configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.strdrop.yaml.",
		Example: `  strdrop config                  # show all config
  strdrop config set xy true      # relax thresholds on sex chromosomes
  strdrop config set alpha 0.01   # stricter family-wise error rate
  strdrop config get scope        # get a value`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd, args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd, args[0])
		},
	}
}

// callDefaults are the call settings used when neither the config file, the
// environment nor a flag sets them.
func callDefaults() map[string]any {
	p := drops.DefaultParams()
	return map[string]any{
		"alpha":    p.Alpha,
		"edit":     p.EditThreshold,
		"fraction": p.FractionThreshold,
		"xy":       p.SexChromosomeAware,
		"scope":    string(output.ScopeInfo),
		"sample":   0,
		"workers":  0,
	}
}

func runConfigShow(cmd *cobra.Command) error {
	settings := viper.AllSettings()
	if viper.ConfigFileUsed() == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "# No config file. Defaults, settable in ~/.strdrop.yaml:")
		settings = callDefaults()
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

// configValue parses booleans and numbers so they are stored typed.
func configValue(value string) any {
	switch value {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

func runConfigSet(cmd *cobra.Command, key, value string) error {
	viper.Set(key, configValue(value))

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".strdrop.yaml")
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(cmd *cobra.Command, key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), val)
	return nil
}
