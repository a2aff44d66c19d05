package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"slava0135/shapecheck/config"
)

var (
	cfgFile string
	verbose bool

	fs     = afero.NewOsFs()
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "shapecheck",
	Short:         "shapecheck - find shape mismatches in tensor programs by symbolic execution",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction(zap.IncreaseLevel(zap.WarnLevel))
		}
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the command line. A panic inside the engine is reported with
// its stack instead of crashing the process.
func Execute() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v\n%s", r, debug.Stack())
		}
	}()
	return rootCmd.Execute()
}

// options reads the config file if one was given.
func options() (config.Options, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.Load(fs, cfgFile)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML file with analysis options")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine events")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(listCmd)
}
