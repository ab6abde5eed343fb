package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/opal-lang/fluentcore"
)

func newWatchCmd() *cobra.Command {
	var locale []string
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory of .ftl files, reloading a bundle as they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(locale) == 0 {
				locale = []string{"en"}
			}
			dir := args[0]

			b, err := fluentcore.NewDefault(locale)
			if err != nil {
				return err
			}
			if err := loadDir(b, dir); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "watching %s (generation %d)\n", dir, b.Generation())

			w, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.Add(dir); err != nil {
				return err
			}

			for {
				select {
				case ev, ok := <-w.Events:
					if !ok {
						return nil
					}
					if !strings.HasSuffix(ev.Name, ".ftl") {
						continue
					}
					if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
						continue
					}
					source, err := os.ReadFile(ev.Name)
					if err != nil {
						fmt.Fprintf(os.Stderr, "reload %s: %v\n", ev.Name, err)
						continue
					}
					_, perrs, verrs, err := b.AddResource(string(source))
					if err != nil {
						fmt.Fprintf(os.Stderr, "reload %s: %v\n", ev.Name, err)
						continue
					}
					for _, e := range perrs {
						fmt.Fprintf(os.Stderr, "%s: %s\n", ev.Name, e.Error())
					}
					for _, e := range verrs {
						fmt.Fprintf(os.Stderr, "%s: %s\n", ev.Name, e.Error())
					}
					fmt.Fprintf(os.Stderr, "reloaded %s (generation %d, cache cleared)\n", ev.Name, b.Generation())
				case err, ok := <-w.Errors:
					if !ok {
						return nil
					}
					fmt.Fprintln(os.Stderr, "watch error:", err)
				}
			}
		},
	}
	cmd.Flags().StringSliceVar(&locale, "locale", nil, "Locale chain, most-specific first (default en)")
	return cmd
}

func loadDir(b *fluentcore.Bundle, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".ftl" {
			continue
		}
		source, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		if _, _, _, err := b.AddResource(string(source)); err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
	}
	return nil
}
