package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opal-lang/fluentcore"
)

func newSerializeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serialize <file.ftl>",
		Short: "Parse a resource and print its re-serialized form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res, perrs := fluentcore.Parse(string(source))
			for _, e := range perrs {
				fmt.Fprintln(os.Stderr, e.Error())
			}
			fmt.Print(fluentcore.Serialize(res))
			return nil
		},
	}
	return cmd
}
