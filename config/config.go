// Package config holds the analysis options. Options are read once at
// startup and passed down explicitly.
package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

type LogLevel string

const (
	LogNone       LogLevel = "none"
	LogResultOnly LogLevel = "result_only"
	LogReduced    LogLevel = "reduced"
	LogFull       LogLevel = "full"
)

func (l LogLevel) Valid() bool {
	switch l {
	case LogNone, LogResultOnly, LogReduced, LogFull:
		return true
	}
	return false
}

type Options struct {
	// ImmediateCheck asks the solver at every constraint instead of once
	// per finished path.
	ImmediateCheck bool `yaml:"immediate_check"`
	// Solver names a solver registered with the constraints package.
	Solver  string        `yaml:"solver"`
	Timeout time.Duration `yaml:"timeout"`
	// MaxSteps bounds the statements a single path may execute.
	MaxSteps int `yaml:"max_steps"`
	// MaxPaths bounds the number of paths alive at once.
	MaxPaths   int      `yaml:"max_paths"`
	LoopUnroll int      `yaml:"loop_unroll"`
	Workers    int      `yaml:"workers"`
	LogLevel   LogLevel `yaml:"log_level"`
	// ExportPath is the directory the constraint export is written to.
	// Empty disables the export.
	ExportPath string `yaml:"export_path"`
}

func Default() Options {
	return Options{
		ImmediateCheck: false,
		Solver:         "fold",
		Timeout:        time.Minute,
		MaxSteps:       100000,
		MaxPaths:       1000,
		LoopUnroll:     8,
		Workers:        1,
		LogLevel:       LogReduced,
	}
}

func (o Options) Validate() error {
	if o.Solver == "" {
		return fmt.Errorf("solver is not set")
	}
	if !o.LogLevel.Valid() {
		return fmt.Errorf("unknown log level %q", o.LogLevel)
	}
	if o.MaxSteps <= 0 || o.MaxPaths <= 0 {
		return fmt.Errorf("budgets must be positive")
	}
	if o.LoopUnroll < 0 {
		return fmt.Errorf("loop unroll must not be negative")
	}
	if o.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}

// Load reads options from a YAML file. Fields the file omits keep their
// default value; unknown fields are an error.
func Load(fs afero.Fs, path string) (Options, error) {
	opts := Default()
	f, err := fs.Open(path)
	if err != nil {
		return opts, errors.Wrapf(err, "can't open config %s", path)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&opts); err != nil {
		return opts, errors.Wrapf(err, "can't parse config %s", path)
	}
	if err := opts.Validate(); err != nil {
		return opts, errors.Wrapf(err, "invalid config %s", path)
	}
	return opts, nil
}

// Save writes opts as YAML.
func Save(fs afero.Fs, path string, opts Options) error {
	b, err := yaml.Marshal(opts)
	if err != nil {
		return errors.Wrap(err, "can't encode config")
	}
	return errors.Wrapf(afero.WriteFile(fs, path, b, 0o644), "can't write config %s", path)
}
