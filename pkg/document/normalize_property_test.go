//go:build property
// +build property

package document

import (
	"bytes"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genRaw produces loosely shaped documents: valid sections mixed with
// lists, nulls, wrong types and dangling order entries.
func genRaw() gopter.Gen {
	value := gen.OneGenOf(
		gen.Bool().Map(func(bool) any { return nil }),
		gen.AlphaString().Map(func(s string) any { return s }),
		gen.Float64Range(-10, 10).Map(func(f float64) any { return f }),
		gen.Bool().Map(func(b bool) any { return b }),
	)
	block := gen.OneGenOf(
		gen.Bool().Map(func(bool) any { return nil }),
		gen.AlphaString().Map(func(s string) any {
			return map[string]any{"block_type": s, "settings": map[string]any{"k": s}}
		}),
		gen.Identifier().Map(func(s string) any {
			return map[string]any{"id": s, "block_type": "cta"}
		}),
	)
	blocks := gen.OneGenOf(
		gen.SliceOfN(3, block).Map(func(items []any) any { return items }),
		gen.MapOf(gen.Identifier(), block).Map(func(m map[string]any) any { return m }),
		value,
	)
	section := gen.OneGenOf(
		value,
		blocks.Map(func(b any) any { return map[string]any{"section_id": "hero", "blocks": b} }),
	)
	return gopter.CombineGens(
		gen.MapOf(gen.Identifier(), section),
		gen.SliceOf(gen.OneGenOf(gen.Identifier().Map(func(s string) any { return s }), value)),
		gen.Bool(),
	).Map(func(parts []any) any {
		doc := map[string]any{"name": "doc", "sections": parts[0]}
		if parts[2].(bool) {
			doc["order"] = parts[1]
		}
		return doc
	})
}

func TestNormalizeProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("normalize is idempotent", prop.ForAll(
		func(raw any) bool {
			once, _ := Normalize(raw)
			twice, repairs := Normalize(once.Raw())
			a, errA := Encode(once)
			b, errB := Encode(twice)
			return errA == nil && errB == nil && len(repairs) == 0 && bytes.Equal(a, b)
		},
		genRaw(),
	))

	properties.Property("order and sections agree", prop.ForAll(
		func(raw any) bool {
			tpl, _ := Normalize(raw)
			if len(tpl.Order) != len(tpl.Sections) {
				return false
			}
			seen := map[string]bool{}
			for _, id := range tpl.Order {
				if _, ok := tpl.Sections[id]; !ok || seen[id] {
					return false
				}
				seen[id] = true
			}
			return true
		},
		genRaw(),
	))

	properties.Property("every block has a type and settings", prop.ForAll(
		func(raw any) bool {
			tpl, _ := Normalize(raw)
			for _, section := range tpl.Sections {
				if section.Settings == nil || section.Blocks == nil {
					return false
				}
				for _, id := range section.Blocks.IDs() {
					block, _ := section.Blocks.Get(id)
					if block.TypeID == "" || block.Settings == nil {
						return false
					}
				}
			}
			return true
		},
		genRaw(),
	))

	properties.TestingRun(t)
}
