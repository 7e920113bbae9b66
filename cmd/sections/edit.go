package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-sections/internal/logging"
	"github.com/goliatone/go-sections/pkg/editor"
	"github.com/goliatone/go-sections/pkg/gateway"
	"github.com/goliatone/go-sections/pkg/renderers/tui"
)

func newEditCommand(a *app) *cobra.Command {
	var opts editOptions
	cmd := &cobra.Command{
		Use:     "edit [template-id]",
		Aliases: []string{"e"},
		Short:   "Edit templates in the terminal",
		Long: `edit opens the interactive terminal editor. Templates and schemas are read
from the configured stores, or from a running "sections serve" with --remote.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return a.edit(cmd.Context(), opts, id)
		},
	}
	cmd.Flags().StringVar(&opts.remote, "remote", "", "base URL of a sections server to edit through")
	cmd.Flags().StringVar(&opts.imagesDir, "images-dir", "", "directory offered by the image picker")
	cmd.Flags().StringVar(&opts.imagesURL, "images-url", "", "URL prefix stored for picked images")
	return cmd
}

type editOptions struct {
	remote    string
	imagesDir string
	imagesURL string
}

func (a *app) edit(ctx context.Context, opts editOptions, id string) error {
	tuiOpts := []tui.Option{
		tui.WithOutput(a.out),
		tui.WithPromptDriver(a.driver),
		tui.WithLogger(logging.Component(a.logger, "tui")),
	}
	if dir := strings.TrimSpace(opts.imagesDir); dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("images dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("images dir: %s is not a directory", dir)
		}
		tuiOpts = append(tuiOpts, tui.WithImagePicker(tui.FilePicker{Files: os.DirFS(dir), URLPrefix: opts.imagesURL}))
	}

	gw, closeFn, err := a.editGateway(ctx, opts.remote)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeFn()
	}()

	ctrl := editor.New(gw, a.editorOptions()...)
	session := editor.NewSession("terminal")
	if id != "" {
		ctrl.Dispatch(ctx, session, editor.Refresh{})
		if out := ctrl.Dispatch(ctx, session, editor.SelectTemplate{ID: id}); out.Err != nil {
			return fmt.Errorf("open %q: %w", id, out.Err)
		}
	}

	ed, err := tui.New(ctrl, tuiOpts...)
	if err != nil {
		return err
	}
	if err := ed.Run(ctx, session); err != nil {
		if errors.Is(err, tui.ErrAborted) {
			return nil
		}
		return err
	}
	return nil
}

func (a *app) editGateway(ctx context.Context, remote string) (gateway.Gateway, func() error, error) {
	remote = strings.TrimSpace(remote)
	if remote == "" {
		return a.localGateway(ctx)
	}
	gw, err := gateway.NewHTTP(remote)
	if err != nil {
		return nil, nil, err
	}
	return gw, func() error { return nil }, nil
}
