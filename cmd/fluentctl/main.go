// Command fluentctl is a small operator CLI over the fluentcore library:
// parse and serialize single files, validate one or more resources
// together, format a message against a locale chain, and watch a
// directory of .ftl files, reloading a Bundle as they change.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fluentctl",
		Short:         "Inspect, validate, and format Fluent translation resources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newParseCmd(),
		newSerializeCmd(),
		newValidateCmd(),
		newFormatCmd(),
		newWatchCmd(),
	)
	return root
}
