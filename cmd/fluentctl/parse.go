package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opal-lang/fluentcore"
)

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file.ftl>",
		Short: "Parse an FTL resource and report syntax errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			_, perrs := fluentcore.Parse(string(source))
			for _, e := range perrs {
				fmt.Fprintln(os.Stderr, e.Error())
			}
			if len(perrs) > 0 {
				return fmt.Errorf("%d syntax error(s) in %s", len(perrs), args[0])
			}
			fmt.Println("ok")
			return nil
		},
	}
	return cmd
}
