package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-sections/pkg/schema"
)

type listOptions struct {
	sections bool
	query    string
	json     bool
}

func newListCommand(a *app) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored templates or available section types",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.list(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.sections, "sections", false, "list section types instead of templates")
	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "fuzzy filter on ids and names")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print JSON")
	return cmd
}

// listRow is one printed entry, shared by templates and section types.
type listRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (a *app) list(ctx context.Context, opts listOptions) error {
	gw, closeFn, err := a.localGateway(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeFn()
	}()

	var rows []listRow
	if opts.sections {
		registry := schema.NewRegistry(gw)
		if err := registry.Load(ctx); err != nil {
			return err
		}
		summaries := registry.Summaries()
		if opts.query != "" {
			summaries = registry.Search(opts.query)
		}
		for _, s := range summaries {
			rows = append(rows, listRow{ID: s.ID, Name: s.Name, Description: s.Description})
		}
	} else {
		templates, err := gw.ListTemplates(ctx)
		if err != nil {
			return err
		}
		summaries := make([]schema.Summary, 0, len(templates))
		for _, t := range templates {
			summaries = append(summaries, schema.Summary{ID: t.ID, Name: t.Name, Description: t.Description})
		}
		if opts.query != "" {
			summaries = schema.FuzzyFilter(opts.query, summaries)
		}
		for _, s := range summaries {
			rows = append(rows, listRow{ID: s.ID, Name: s.Name, Description: s.Description})
		}
	}

	if opts.json {
		if rows == nil {
			rows = []listRow{}
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(a.out, "nothing found")
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row.ID, row.Name, strings.ReplaceAll(row.Description, "\n", " "))
	}
	return tw.Flush()
}
