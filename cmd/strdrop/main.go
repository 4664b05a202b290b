// Package main provides the strdrop command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
     _            _
 ___| |_ _ __ __| |_ __ ___  _ __
/ __| __| '__/ _' | '__/ _ \| '_ \
\__ \ |_| | | (_| | | | (_) | |_) |
|___/\__|_|  \__,_|_|  \___/| .__/
                            |_|`

// usageError marks errors caused by invalid arguments or flags.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// usageArgs turns positional argument errors into usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// app carries state shared by subcommands.
type app struct {
	cfgFile string
	logger  *zap.Logger
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	a := &app{logger: zap.NewNop()}
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.Execute()
	_ = a.logger.Sync()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", commandPath(root, args))
		return ExitUsage
	}
	return ExitError
}

// commandPath resolves the subcommand named by args for help hints.
func commandPath(root *cobra.Command, args []string) string {
	cmd, _, err := root.Find(args)
	if err != nil || cmd == nil {
		return root.Name()
	}
	return cmd.CommandPath()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "strdrop",
		Short: "Call coverage drops at short tandem repeat loci",
		Long: `strdrop detects coverage drops at STR loci in a case VCF by comparing
per-locus sequencing depth against a reference set of VCFs, and writes an
annotated copy of the case VCF.`,
		Example: `  strdrop build --reference refs/ --output reference.json
  strdrop call --reference reference.json --output annotated.vcf case.vcf
  strdrop call --reference refs/ --scope format --report calls.tsv case.vcf.gz`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(a.cfgFile); err != nil {
				return err
			}
			if err := viper.BindPFlag("log-level", cmd.Root().PersistentFlags().Lookup("log-level")); err != nil {
				return err
			}
			logger, err := newLogger(viper.GetString("log-level"))
			if err != nil {
				return usageError{err}
			}
			a.logger = logger
			a.logger.Debug(banner)
			return nil
		},
	}
	root.SetVersionTemplate("strdrop version {{.Version}}\n")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default: ~/.strdrop.yaml)")
	root.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")

	root.AddCommand(newCallCmd(a))
	root.AddCommand(newBuildCmd(a))
	root.AddCommand(newConfigCmd())

	return root
}

// initConfig reads the config file and environment. A missing default config
// file is not an error.
func initConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".strdrop")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("STRDROP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// newLogger builds a console logger on stderr with coloured levels.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	return cfg.Build()
}

// bindFlags binds the named flags of cmd to viper keys of the same name.
func bindFlags(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}
