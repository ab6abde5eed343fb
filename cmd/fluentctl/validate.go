package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opal-lang/fluentcore"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file.ftl> [more.ftl...]",
		Short: "Parse and cross-validate one or more resources together",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := fluentcore.NewDefault(nil)
			if err != nil {
				return err
			}

			var total int
			for _, path := range args {
				source, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				_, perrs, verrs, err := b.AddResource(string(source))
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				for _, e := range perrs {
					fmt.Fprintf(os.Stderr, "%s: %s\n", path, e.Error())
					total++
				}
				for _, e := range verrs {
					fmt.Fprintf(os.Stderr, "%s: %s\n", path, e.Error())
					total++
				}
			}
			if total > 0 {
				return fmt.Errorf("%d problem(s) found", total)
			}
			fmt.Println("ok")
			return nil
		},
	}
	return cmd
}
