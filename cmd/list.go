package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"slava0135/shapecheck/constraints"
	"slava0135/shapecheck/libcall"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available solvers and library functions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ":: solvers")
		for _, name := range constraints.Names() {
			fmt.Fprintf(out, "  %s\n", name)
		}
		fmt.Fprintln(out, ":: library")
		for _, name := range libcall.Names() {
			fmt.Fprintf(out, "  LibCall.%s\n", name)
		}
	},
}
