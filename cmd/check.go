package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"slava0135/shapecheck/config"
	"slava0135/shapecheck/ir"
	"slava0135/shapecheck/libcall"
	"slava0135/shapecheck/report"
	"slava0135/shapecheck/symexec"

	// registers the z3 solver
	_ "slava0135/shapecheck/solver"
)

var (
	immediate  bool
	solverName string
	timeout    time.Duration
	maxSteps   int
	maxPaths   int
	loopUnroll int
	workers    int
	logLevel   string
	exportDir  string
	expect     string
)

var checkCmd = &cobra.Command{
	Use:   "check <program.yaml>",
	Short: "Analyze a program and report its failing paths",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := options()
		if err != nil {
			return err
		}
		opts = overrideOptions(cmd, opts)
		return check(cmd.Context(), fs, cmd.OutOrStdout(), logger, args[0], opts, expect)
	},
}

func init() {
	f := checkCmd.Flags()
	f.BoolVar(&immediate, "immediate", false, "Check every constraint as soon as it is added")
	f.StringVar(&solverName, "solver", "", "Constraint solver (fold or z3)")
	f.DurationVar(&timeout, "timeout", 0, "Abort the analysis after this long")
	f.IntVar(&maxSteps, "max-steps", 0, "Statements a single path may execute")
	f.IntVar(&maxPaths, "max-paths", 0, "Paths alive at once")
	f.IntVar(&loopUnroll, "unroll", 0, "Iterations of a loop with an unknown condition")
	f.IntVar(&workers, "workers", 0, "Paths interpreted in parallel")
	f.StringVar(&logLevel, "log-level", "", "none, result_only, reduced or full")
	f.StringVar(&exportDir, "export", "", "Directory for the constraint export")
	f.StringVar(&expect, "expect", "", "pass or fail: exit non-zero unless the run meets the expectation")
}

// overrideOptions applies the flags given on the command line.
func overrideOptions(cmd *cobra.Command, opts config.Options) config.Options {
	f := cmd.Flags()
	if f.Changed("immediate") {
		opts.ImmediateCheck = immediate
	}
	if f.Changed("solver") {
		opts.Solver = solverName
	}
	if f.Changed("timeout") {
		opts.Timeout = timeout
	}
	if f.Changed("max-steps") {
		opts.MaxSteps = maxSteps
	}
	if f.Changed("max-paths") {
		opts.MaxPaths = maxPaths
	}
	if f.Changed("unroll") {
		opts.LoopUnroll = loopUnroll
	}
	if f.Changed("workers") {
		opts.Workers = workers
	}
	if f.Changed("log-level") {
		opts.LogLevel = config.LogLevel(logLevel)
	}
	if f.Changed("export") {
		opts.ExportPath = exportDir
	}
	return opts
}

func check(ctx context.Context, fs afero.Fs, out io.Writer, logger *zap.Logger, path string, opts config.Options, expect string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if expect != "" && expect != "pass" && expect != "fail" {
		return fmt.Errorf("unknown expectation %q", expect)
	}

	rep := report.New(out, fs, opts)
	f, err := fs.Open(path)
	if err != nil {
		return errors.Wrapf(err, "can't open %s", path)
	}
	defer f.Close()
	prog, err := ir.Decode(f, path)
	if err != nil {
		return err
	}
	rep.Mark("decoding program")

	rt, err := symexec.NewRuntime(opts, libcall.Library{}, logger)
	if err != nil {
		return err
	}
	entry := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	res, err := rt.Run(ctx, entry, prog)
	if err != nil {
		return err
	}
	rep.Mark("running entry file")

	if err := rep.Write(res); err != nil {
		return err
	}
	switch expect {
	case "pass", "fail":
		if !res.Passes(expect == "pass") {
			return fmt.Errorf("%s: expected the analysis to %s", entry, expect)
		}
		return nil
	}
	if n := len(res.Set.Failed()); n > 0 {
		return fmt.Errorf("%s: %d failed paths", entry, n)
	}
	return nil
}
