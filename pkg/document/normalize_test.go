package document

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustDecode(t *testing.T, data string) any {
	t.Helper()
	raw, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return raw
}

func blockSet(t *testing.T, pairs ...any) *BlockSet {
	t.Helper()
	set := NewBlockSet()
	for i := 0; i+1 < len(pairs); i += 2 {
		set.Set(pairs[i].(string), pairs[i+1].(*Block))
	}
	return set
}

func repairKinds(repairs []Repair) []RepairKind {
	var out []RepairKind
	for _, r := range repairs {
		out = append(out, r.Kind)
	}
	return out
}

func TestNormalize_AbsentSectionsAndOrder(t *testing.T) {
	got, repairs := Normalize(mustDecode(t, `{"name": "x"}`))

	want := &Template{Name: "x", Sections: map[string]*Section{}, Order: []string{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("template mismatch (-want +got):\n%s", diff)
	}
	if len(repairs) != 0 {
		t.Fatalf("unexpected repairs: %v", repairs)
	}
}

func TestNormalize_DefaultsSettingsAndBlocks(t *testing.T) {
	got, repairs := Normalize(mustDecode(t, `{"sections": {"a": {"section_id": "hero"}}, "order": ["a"]}`))

	want := &Template{
		Sections: map[string]*Section{
			"a": {TypeID: "hero", Settings: map[string]any{}, Blocks: NewBlockSet()},
		},
		Order: []string{"a"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("template mismatch (-want +got):\n%s", diff)
	}
	if len(repairs) != 0 {
		t.Fatalf("unexpected repairs: %v", repairs)
	}
}

func TestNormalize_OrderDerivedFromSectionKeyOrder(t *testing.T) {
	got, _ := Normalize(mustDecode(t, `{"sections": {
		"z": {"section_id": "footer"},
		"a": {"section_id": "hero"},
		"m": {"section_id": "text"}
	}}`))

	if diff := cmp.Diff([]string{"z", "a", "m"}, got.Order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_ConvertsBlockList(t *testing.T) {
	raw := mustDecode(t, `{"sections": {"s1": {"section_id": "hero", "blocks": [
		{"id": "b1", "block_type": "cta", "settings": {"label": "Go"}},
		{"block_type": "quote"}
	]}}, "order": ["s1"]}`)

	got, repairs := Normalize(raw, WithIDGenerator(Sequence()))

	want := blockSet(t,
		"b1", &Block{TypeID: "cta", Settings: map[string]any{"label": "Go"}},
		"block_1_1", &Block{TypeID: "quote", Settings: map[string]any{}},
	)
	if diff := cmp.Diff(want, got.Sections["s1"].Blocks); diff != "" {
		t.Fatalf("blocks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]RepairKind{RepairListConverted, RepairKeySynthesized}, repairKinds(repairs)); diff != "" {
		t.Fatalf("repairs mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_BlockListDuplicateIDsGetFreshKeys(t *testing.T) {
	raw := mustDecode(t, `{"sections": {"s1": {"section_id": "hero", "blocks": [
		{"id": "b1", "block_type": "cta"},
		{"id": "b1", "block_type": "quote"},
		null
	]}}}`)

	got, _ := Normalize(raw, WithIDGenerator(Sequence()))

	ids := got.Sections["s1"].Blocks.IDs()
	if len(ids) != 3 || ids[0] != "b1" || ids[1] == "b1" || ids[2] == ids[1] {
		t.Fatalf("expected three distinct keys, got %v", ids)
	}
	last, _ := got.Sections["s1"].Blocks.Get(ids[2])
	if last.TypeID != UnknownType {
		t.Fatalf("null element should become an unknown block, got %+v", last)
	}
}

func TestNormalize_BlockListReportsUnusableIDs(t *testing.T) {
	raw := mustDecode(t, `{"sections": {"s1": {"section_id": "hero", "blocks": [
		{"id": "b1", "block_type": "cta"},
		{"id": 5, "block_type": "quote"},
		{"id": "b1", "block_type": "quote"}
	]}}, "order": ["s1"]}`)

	got, repairs := Normalize(raw, WithIDGenerator(Sequence()))

	if diff := cmp.Diff([]string{"b1", "block_1_1", "block_2_2"}, got.Sections["s1"].Blocks.IDs()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	var dropped []Repair
	for _, r := range repairs {
		if strings.HasSuffix(r.Path, ".id") {
			dropped = append(dropped, r)
		}
	}
	want := []Repair{
		{Path: "sections.s1.blocks[1].id", Kind: RepairInvalidValue, Detail: "id is a number, not usable as a key"},
		{Path: "sections.s1.blocks[2].id", Kind: RepairInvalidValue, Detail: `id "b1" is already taken`},
	}
	if diff := cmp.Diff(want, dropped); diff != "" {
		t.Fatalf("id repairs mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_NullBlockBecomesUnknown(t *testing.T) {
	got, repairs := Normalize(mustDecode(t, `{"sections": {"s1": {"section_id": "hero", "blocks": {"b1": null}}}}`))

	block, ok := got.Sections["s1"].Blocks.Get("b1")
	if !ok {
		t.Fatalf("block b1 missing")
	}
	if diff := cmp.Diff(&Block{TypeID: UnknownType, Settings: map[string]any{}}, block); diff != "" {
		t.Fatalf("block mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]RepairKind{RepairInvalidValue}, repairKinds(repairs)); diff != "" {
		t.Fatalf("repairs mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_MissingTypesDefaultToUnknown(t *testing.T) {
	got, repairs := Normalize(mustDecode(t, `{"sections": {"s1": {"settings": {}, "blocks": {"b1": {"settings": {"x": 1}}}}}}`))

	section := got.Sections["s1"]
	if section.TypeID != UnknownType {
		t.Fatalf("expected unknown section type, got %q", section.TypeID)
	}
	block, _ := section.Blocks.Get("b1")
	if block.TypeID != UnknownType || block.Settings["x"] != float64(1) {
		t.Fatalf("unexpected block %+v", block)
	}
	if diff := cmp.Diff([]RepairKind{RepairMissingType, RepairMissingType}, repairKinds(repairs)); diff != "" {
		t.Fatalf("repairs mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_RepairsOrder(t *testing.T) {
	raw := mustDecode(t, `{"sections": {"a": {"section_id": "x"}, "b": {"section_id": "y"}, "c": {"section_id": "z"}},
		"order": ["b", "ghost", "b", 7]}`)

	got, repairs := Normalize(raw)

	if diff := cmp.Diff([]string{"b", "a", "c"}, got.Order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if len(repairs) != 5 {
		t.Fatalf("expected 5 order repairs, got %v", repairs)
	}
	for _, r := range repairs {
		if r.Kind != RepairOrder {
			t.Fatalf("unexpected repair kind %v", r)
		}
	}
}

func TestNormalize_InvalidShapes(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{name: "root list", doc: `[1, 2]`},
		{name: "root string", doc: `"hello"`},
		{name: "sections string", doc: `{"sections": "nope"}`},
		{name: "order object", doc: `{"order": {"a": 1}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, repairs := Normalize(mustDecode(t, tc.doc))
			if got == nil || got.Sections == nil || got.Order == nil {
				t.Fatalf("expected an empty canonical template, got %+v", got)
			}
			if len(got.Sections) != 0 || len(got.Order) != 0 {
				t.Fatalf("expected no sections, got %+v", got)
			}
			if len(repairs) == 0 {
				t.Fatalf("expected a repair")
			}
		})
	}
}

func TestNormalize_InvalidSectionAndSettings(t *testing.T) {
	got, repairs := Normalize(mustDecode(t, `{"sections": {"a": 5, "b": {"section_id": "hero", "settings": [1], "blocks": "x"}}}`))

	if got.Sections["a"].TypeID != UnknownType {
		t.Fatalf("invalid section should become unknown")
	}
	b := got.Sections["b"]
	if len(b.Settings) != 0 || b.Blocks.Len() != 0 {
		t.Fatalf("invalid settings/blocks should be emptied: %+v", b)
	}
	if diff := cmp.Diff([]RepairKind{RepairInvalidValue, RepairInvalidValue, RepairInvalidValue}, repairKinds(repairs)); diff != "" {
		t.Fatalf("repairs mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_SectionListUsesIDs(t *testing.T) {
	got, _ := Normalize(mustDecode(t, `{"sections": [{"id": "intro", "section_id": "hero"}, {"section_id": "text"}]}`), WithIDGenerator(Sequence()))

	if diff := cmp.Diff([]string{"intro", "section_1_1"}, got.Order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_PreservesExtrasAndLegacyIdentity(t *testing.T) {
	got, _ := Normalize(mustDecode(t, `{"name": "Landing", "template": true, "_originalId": "landing", "meta": {"a": [1]}}`))

	if got.OriginalID != "landing" {
		t.Fatalf("expected legacy identity, got %q", got.OriginalID)
	}
	want := map[string]any{"template": true, "meta": map[string]any{"a": []any{float64(1)}}}
	if diff := cmp.Diff(want, got.Extra); diff != "" {
		t.Fatalf("extras mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_PlainMapsEnumerateSorted(t *testing.T) {
	raw := map[string]any{
		"sections": map[string]any{
			"b": map[string]any{"section_id": "x", "settings": map[string]any{"n": 3}},
			"a": map[string]any{"section_id": "y"},
		},
	}
	got, repairs := Normalize(raw)

	if diff := cmp.Diff([]string{"a", "b"}, got.Order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if got.Sections["b"].Settings["n"] != float64(3) {
		t.Fatalf("integers should normalise to float64")
	}
	if len(repairs) != 0 {
		t.Fatalf("unexpected repairs: %v", repairs)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	docs := []string{
		`{}`,
		`{"sections": {"s1": {"section_id": "hero", "blocks": [{"block_type": "cta"}, null]}}, "order": ["ghost"]}`,
		`{"name": "x", "extra": {"k": "v"}, "sections": {"b": {"section_id": "t"}, "a": 1}, "order": ["a"]}`,
	}
	for _, doc := range docs {
		once, _ := Normalize(mustDecode(t, doc))
		twice, repairs := Normalize(once.Raw())
		if len(repairs) != 0 {
			t.Fatalf("canonical input reported repairs for %s: %v", doc, repairs)
		}
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("normalize not idempotent for %s (-once +twice):\n%s", doc, diff)
		}
	}
}

func TestRepairString(t *testing.T) {
	r := Repair{Path: "order[1]", Kind: RepairOrder, Detail: "dropped"}
	if !strings.Contains(r.String(), "order[1]") {
		t.Fatalf("unexpected repair string %q", r.String())
	}
}
