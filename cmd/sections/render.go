package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	sections "github.com/goliatone/go-sections"
	"github.com/goliatone/go-sections/pkg/editor"
	"github.com/goliatone/go-sections/pkg/form"
	"github.com/goliatone/go-sections/pkg/render"
	"github.com/goliatone/go-sections/pkg/renderers/html"
)

type renderOptions struct {
	format string
	output string
	title  string
	expand bool
	tab    string
}

func newRenderCommand(a *app) *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render <template-id>",
		Short: "Render the editor form of a stored template",
		Long: `render loads a template the way the editor does and writes the form
description as JSON, a standalone HTML page or a text outline.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "output format (json, html, text)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&opts.title, "title", "", "page title")
	cmd.Flags().BoolVar(&opts.expand, "expand", false, "expand every section")
	cmd.Flags().StringVar(&opts.tab, "tab", string(form.TabSettings), "tab shown for expanded sections (settings, blocks)")
	return cmd
}

func (a *app) render(ctx context.Context, id string, opts renderOptions) error {
	registry, err := sections.NewRenderers(html.WithDefaultStyles())
	if err != nil {
		return err
	}
	if !registry.Has(opts.format) {
		_, err := registry.Get(opts.format)
		return err
	}

	gw, closeFn, err := a.localGateway(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeFn()
	}()

	ctrl := editor.New(gw, a.editorOptions()...)
	session := editor.NewSession("render")
	if out := ctrl.Dispatch(ctx, session, editor.Refresh{}); out.Err != nil {
		return out.Err
	}
	if out := ctrl.Dispatch(ctx, session, editor.SelectTemplate{ID: id}); out.Err != nil {
		return fmt.Errorf("open %q: %w", id, out.Err)
	}
	if opts.expand {
		view := session.View()
		for _, sectionID := range session.Template().Order {
			steps := []editor.Intent{editor.SelectTab{SectionID: sectionID, Tab: form.Tab(opts.tab)}}
			if !view.Expanded[sectionID] {
				steps = append([]editor.Intent{editor.ToggleSection{SectionID: sectionID}}, steps...)
			}
			for _, intent := range steps {
				if out := ctrl.Dispatch(ctx, session, intent); out.Err != nil {
					return out.Err
				}
			}
		}
	}

	data, _, err := registry.Render(ctx, opts.format, ctrl.Form(session), render.Options{
		Title:  opts.title,
		Theme:  a.themeConfig(),
		Indent: true,
	})
	if err != nil {
		return err
	}
	if opts.output == "" {
		_, err := a.out.Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	a.logger.Info("form written", "file", opts.output, "format", opts.format)
	return nil
}
