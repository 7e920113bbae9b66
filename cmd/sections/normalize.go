package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-sections/pkg/document"
)

func newNormalizeCommand(a *app) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "normalize <file|->",
		Short: "Rewrite a template document in canonical form",
		Long: `normalize repairs a template document (legacy block lists, missing types,
broken order) and prints it in canonical form. Each repair is reported on
stderr. Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.normalize(args[0], write)
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite the file in place")
	return cmd
}

func (a *app) normalize(path string, write bool) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		if write {
			return fmt.Errorf("--write needs a file, not stdin")
		}
		data, err = io.ReadAll(a.in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	raw, err := document.Decode(data)
	if err != nil {
		return err
	}
	tpl, repairs := document.Normalize(raw)
	for _, repair := range repairs {
		fmt.Fprintf(a.errOut, "repaired %s\n", repair)
	}
	out, err := document.Encode(tpl)
	if err != nil {
		return err
	}
	out = append(out, '\n')

	if !write {
		_, err := a.out.Write(out)
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	a.logger.Info("template normalised", "file", path, "repairs", len(repairs))
	return nil
}
