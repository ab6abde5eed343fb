package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opal-lang/fluentcore"
)

func newFormatCmd() *cobra.Command {
	var (
		attr    string
		locale  []string
		argPair []string
	)
	cmd := &cobra.Command{
		Use:   "format <file.ftl> <message-id>",
		Short: "Format a message pattern against a one-shot bundle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if len(locale) == 0 {
				locale = []string{"en"}
			}
			b, err := fluentcore.NewDefault(locale)
			if err != nil {
				return err
			}
			_, perrs, verrs, err := b.AddResource(string(source))
			if err != nil {
				return err
			}
			for _, e := range perrs {
				fmt.Fprintln(os.Stderr, e.Error())
			}
			for _, e := range verrs {
				fmt.Fprintln(os.Stderr, e.Error())
			}

			fargs, err := parseArgs(argPair)
			if err != nil {
				return err
			}

			text, rerrs := b.FormatPattern(args[1], attr, fargs)
			for _, e := range rerrs {
				fmt.Fprintln(os.Stderr, e.Error())
			}
			fmt.Println(text)
			return nil
		},
	}
	cmd.Flags().StringVar(&attr, "attr", "", "Format a message attribute instead of its value")
	cmd.Flags().StringSliceVar(&locale, "locale", nil, "Locale chain, most-specific first (default en)")
	cmd.Flags().StringArrayVar(&argPair, "arg", nil, "Argument as name=value, repeatable")
	return cmd
}

// parseArgs turns a "name=value" slice into Fluent Values, sniffing
// bool/int/float before falling back to string — good enough for a CLI
// where the caller can't express richer types directly.
func parseArgs(pairs []string) (map[string]fluentcore.Value, error) {
	out := make(map[string]fluentcore.Value, len(pairs))
	for _, p := range pairs {
		name, val, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --arg %q, want name=value", p)
		}
		out[name] = sniffValue(val)
	}
	return out, nil
}

func sniffValue(s string) fluentcore.Value {
	if b, err := strconv.ParseBool(s); err == nil {
		return fluentcore.Bool(b)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return fluentcore.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fluentcore.Decimal(f, 0)
	}
	return fluentcore.String(s)
}
