package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-sections/pkg/document"
	"github.com/goliatone/go-sections/pkg/schema"
)

func newValidateCommand(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate [template-id...]",
		Short: "Check stored templates against the section schemas",
		Long: `validate loads templates (all of them when no id is given) and reports
settings that do not match their field schema and sections or blocks whose
type is not in the catalog. With --strict, structural repairs made while
loading count as problems too.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validate(cmd.Context(), args, strict)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat structural repairs as problems")
	return cmd
}

// problem is one finding of validate.
type problem struct {
	template string
	path     string
	message  string
}

func (p problem) String() string {
	return fmt.Sprintf("%s: %s: %s", p.template, p.path, p.message)
}

func (a *app) validate(ctx context.Context, ids []string, strict bool) error {
	gw, closeFn, err := a.localGateway(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeFn()
	}()

	registry := schema.NewRegistry(gw)
	if err := registry.Load(ctx); err != nil {
		return err
	}
	if len(ids) == 0 {
		summaries, err := gw.ListTemplates(ctx)
		if err != nil {
			return err
		}
		for _, s := range summaries {
			ids = append(ids, s.ID)
		}
	}

	var problems []problem
	for _, id := range ids {
		tpl, repairs, err := gw.LoadTemplate(ctx, id)
		if err != nil {
			problems = append(problems, problem{template: id, path: "$", message: err.Error()})
			continue
		}
		for _, repair := range repairs {
			if strict {
				problems = append(problems, problem{template: id, path: repair.Path, message: repair.Detail})
				continue
			}
			a.logger.Warn("template repaired", "template", id, "repair", repair.String())
		}
		problems = append(problems, checkTemplate(id, tpl, registry)...)
	}

	for _, p := range problems {
		fmt.Fprintln(a.out, p.String())
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d problem(s) in %d template(s)", len(problems), len(ids))
	}
	fmt.Fprintf(a.out, "%d template(s) ok\n", len(ids))
	return nil
}

func checkTemplate(id string, tpl *document.Template, registry *schema.Registry) []problem {
	var out []problem
	for _, sectionID := range tpl.Order {
		section, ok := tpl.Section(sectionID)
		if !ok {
			continue
		}
		path := "sections." + sectionID
		spec, known := registry.Section(section.TypeID)
		if !known {
			out = append(out, problem{template: id, path: path, message: fmt.Sprintf("unknown section type %q", section.TypeID)})
			continue
		}
		for _, v := range schema.ValidateSettings(spec.Fields, section.Settings) {
			out = append(out, problem{template: id, path: path + ".settings." + v.Key, message: v.Message})
		}
		for _, blockID := range section.Blocks.IDs() {
			block, _ := section.Blocks.Get(blockID)
			blockPath := path + ".blocks." + blockID
			blockSpec, known := registry.Block(section.TypeID, block.TypeID)
			if !known {
				out = append(out, problem{template: id, path: blockPath, message: fmt.Sprintf("unknown block type %q", block.TypeID)})
				continue
			}
			for _, v := range schema.ValidateSettings(blockSpec.Fields, block.Settings) {
				out = append(out, problem{template: id, path: blockPath + ".settings." + v.Key, message: v.Message})
			}
		}
	}
	return out
}
