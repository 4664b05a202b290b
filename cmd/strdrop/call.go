package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Clinical-Genomics/strdrop/internal/drops"
	"github.com/Clinical-Genomics/strdrop/internal/locus"
	"github.com/Clinical-Genomics/strdrop/internal/output"
	"github.com/Clinical-Genomics/strdrop/internal/reference"
)

// callKeys are the call flags that can also be set from config or environment.
var callKeys = []string{"alpha", "edit", "fraction", "xy", "scope", "sample", "workers"}

type callOptions struct {
	reference  string
	writeCache string
	output     string
	report     string
}

func newCallCmd(a *app) *cobra.Command {
	var opts callOptions

	cmd := &cobra.Command{
		Use:   "call [flags] <input.vcf>",
		Short: "Call STR coverage drops in a case VCF",
		Long: `Score every STR locus of a case VCF against the reference depth
distributions and write the VCF annotated with the probability, allele edit
ratio and case-relative depth ratio of each locus. Loci called as coverage
drops are flagged and get the LowDepth filter.

The reference is either a directory of VCFs or a cache written by
'strdrop build' (.json, or .duckdb/.db).`,
		Example: `  strdrop call --reference refs/ case.vcf
  strdrop call --reference reference.duckdb --output case.strdrop.vcf.gz case.vcf.gz
  strdrop call --reference refs/ --write-cache reference.json --xy --report calls.tsv case.vcf`,
		Args: usageArgs(cobra.ExactArgs(1)),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, callKeys...)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(a.logger, opts, args[0])
		},
	}

	defaults := drops.DefaultParams()
	flags := cmd.Flags()
	flags.StringVar(&opts.reference, "reference", "", "Reference VCF directory or cache file (required)")
	flags.StringVar(&opts.writeCache, "write-cache", "", "Cache file to load, or to write after scanning a reference directory")
	flags.StringVarP(&opts.output, "output", "o", "-", "Output VCF ('-' for stdout, .gz for BGZF)")
	flags.StringVar(&opts.report, "report", "", "Write a tab-delimited per-locus report to this file")
	flags.Float64("alpha", defaults.Alpha, "Family-wise error rate, Bonferroni corrected over the case loci")
	flags.Float64("edit", defaults.EditThreshold, "Minimum allele edit ratio to call a drop")
	flags.Float64("fraction", defaults.FractionThreshold, "Depth ratio to case average below which a locus is low")
	flags.Bool("xy", defaults.SexChromosomeAware, "Lower the fraction threshold on X and Y loci")
	flags.String("scope", string(output.ScopeInfo), "Annotation scope: info (one sample) or format (all samples)")
	flags.Int("sample", 0, "Sample index scored in info scope")
	flags.Int("workers", 0, "Reference files parsed in parallel (0 = number of CPUs)")

	return cmd
}

func callParams() (drops.Params, error) {
	p := drops.Params{
		Alpha:              viper.GetFloat64("alpha"),
		EditThreshold:      viper.GetFloat64("edit"),
		FractionThreshold:  viper.GetFloat64("fraction"),
		SexChromosomeAware: viper.GetBool("xy"),
	}
	if p.Alpha <= 0 || p.Alpha > 1 {
		return p, usagef("--alpha must be in (0, 1], got %g", p.Alpha)
	}
	if p.EditThreshold < 0 || p.EditThreshold > 1 {
		return p, usagef("--edit must be in [0, 1], got %g", p.EditThreshold)
	}
	if p.FractionThreshold < 0 {
		return p, usagef("--fraction must not be negative, got %g", p.FractionThreshold)
	}
	return p, nil
}

// checkPaths rejects stdin as the case VCF, which is read twice, and output
// or report paths that name the input file.
func checkPaths(inputPath string, outputs ...string) error {
	if inputPath == "-" {
		return usagef("the case VCF is read twice and cannot come from stdin")
	}
	in, err := os.Stat(inputPath)
	if err != nil {
		return usagef("input %s: %w", inputPath, err)
	}
	for _, path := range outputs {
		if isStdout(path) {
			continue
		}
		if out, err := os.Stat(path); err == nil && os.SameFile(in, out) {
			return usagef("output %s would overwrite the input VCF", path)
		}
	}
	return nil
}

func isStdout(path string) bool {
	return path == "" || path == "-"
}

// loadedFields describes a loaded reference. JSON caches do not record a
// file count, so it is only logged when known.
func loadedFields(ref *reference.Distributions) []zap.Field {
	fields := []zap.Field{zap.Int("loci", len(ref.Loci()))}
	if ref.FileCount > 0 {
		fields = append(fields, zap.Int("files", ref.FileCount))
	} else {
		fields = append(fields, zap.String("files", "not recorded"))
	}
	return fields
}

func runCall(logger *zap.Logger, opts callOptions, inputPath string) error {
	if opts.reference == "" {
		return usagef("--reference is required")
	}
	if _, err := os.Stat(opts.reference); err != nil {
		return usagef("reference %s: %w", opts.reference, err)
	}
	if err := checkPaths(inputPath, opts.output, opts.report); err != nil {
		return err
	}

	params, err := callParams()
	if err != nil {
		return err
	}
	scope, err := output.ParseScope(viper.GetString("scope"))
	if err != nil {
		return usageError{err}
	}

	agg := reference.NewAggregator()
	agg.SetLogger(logger)
	agg.SetWorkers(viper.GetInt("workers"))

	ref, err := agg.Load(opts.reference, opts.writeCache)
	if err != nil {
		return fmt.Errorf("loading reference: %w", err)
	}
	logger.Info("reference loaded", loadedFields(ref)...)

	c, err := locus.ReadCase(inputPath)
	if err != nil {
		return fmt.Errorf("reading case: %w", err)
	}

	caller := drops.NewCaller(ref, params)
	caller.SetLogger(logger)

	calls, names, err := scoreCase(logger, caller, c, scope, viper.GetInt("sample"))
	if err != nil {
		return err
	}

	out, err := output.Create(opts.output)
	if err != nil {
		return err
	}
	if err := output.AnnotateFile(inputPath, out, scope, calls); err != nil {
		out.Close()
		if !isStdout(opts.output) {
			os.Remove(opts.output)
		}
		return fmt.Errorf("writing annotated VCF: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}

	if opts.report != "" {
		if err := writeReport(opts.report, names, calls); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	return nil
}

// scoreCase scores the selected sample in info scope, or every sample in
// format scope. In format scope a sample without any called locus is skipped
// and its call left nil.
func scoreCase(logger *zap.Logger, caller *drops.Caller, c *locus.Case, scope output.Scope, sample int) ([]*drops.Call, []string, error) {
	if scope == output.ScopeInfo {
		obs, err := c.Sample(sample)
		if err != nil {
			return nil, nil, usageError{err}
		}
		call, err := scoreSample(logger, caller, c.Samples[sample], obs)
		if err != nil {
			return nil, nil, err
		}
		return []*drops.Call{call}, []string{c.Samples[sample]}, nil
	}

	calls := make([]*drops.Call, len(c.Samples))
	scored := 0
	for s, name := range c.Samples {
		call, err := scoreSample(logger, caller, name, c.Observations[s])
		if errors.Is(err, drops.ErrNoLoci) {
			logger.Warn("no called loci for sample", zap.String("sample", name))
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		calls[s] = call
		scored++
	}
	if scored == 0 {
		return nil, nil, drops.ErrNoLoci
	}
	return calls, c.Samples, nil
}

func scoreSample(logger *zap.Logger, caller *drops.Caller, name string, obs []locus.Observation) (*drops.Call, error) {
	logger.Info("scoring sample", zap.String("sample", name), zap.Int("loci", len(obs)))
	call, err := caller.Score(obs)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", name, err)
	}
	logger.Info("sample scored",
		zap.String("sample", name),
		zap.Float64("p_threshold", call.PThreshold),
		zap.Strings("drops", call.Drops()))
	return call, nil
}

func writeReport(path string, names []string, calls []*drops.Call) error {
	f, err := output.Create(path)
	if err != nil {
		return err
	}

	tw := output.NewTabWriter(f)
	err = tw.WriteHeader()
	for i, call := range calls {
		if err != nil {
			break
		}
		if call != nil {
			err = tw.WriteCall(names[i], call)
		}
	}
	if err == nil {
		err = tw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
