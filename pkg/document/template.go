package document

import (
	"reflect"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// UnknownType is assigned to sections and blocks whose type id is missing.
const UnknownType = "unknown"

// DefaultName is the name given to templates created with New.
const DefaultName = "New Template"

// Template is a named, ordered page layout. Every id in Order is a key of
// Sections and every key of Sections appears exactly once in Order.
type Template struct {
	Name        string
	Description string
	Sections    map[string]*Section
	Order       []string
	// Extra holds top-level document keys the editor does not interpret.
	// They are written back unchanged.
	Extra map[string]any
	// OriginalID is the store id the template was loaded under. It is never
	// serialised.
	OriginalID string
	// Unsaved marks templates created in the editor that were never stored.
	Unsaved bool
}

// Section is an instance of a section type placed in a template.
type Section struct {
	TypeID   string
	Settings map[string]any
	Blocks   *BlockSet
}

// Block is an instance of a block type inside a section.
type Block struct {
	TypeID   string
	Settings map[string]any
}

// Section returns the section stored under id.
func (t *Template) Section(id string) (*Section, bool) {
	if t == nil || t.Sections == nil {
		return nil, false
	}
	section, ok := t.Sections[id]
	return section, ok
}

// Clone returns a deep copy of the template.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	out := &Template{
		Name:        t.Name,
		Description: t.Description,
		Sections:    make(map[string]*Section, len(t.Sections)),
		Order:       append([]string{}, t.Order...),
		Extra:       cloneMap(t.Extra),
		OriginalID:  t.OriginalID,
		Unsaved:     t.Unsaved,
	}
	for id, section := range t.Sections {
		out.Sections[id] = section.Clone()
	}
	return out
}

// Clone returns a deep copy of the section.
func (s *Section) Clone() *Section {
	if s == nil {
		return nil
	}
	return &Section{
		TypeID:   s.TypeID,
		Settings: cloneMap(s.Settings),
		Blocks:   s.Blocks.Clone(),
	}
}

// Clone returns a deep copy of the block.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	return &Block{TypeID: b.TypeID, Settings: cloneMap(b.Settings)}
}

// BlockSet is the canonical block container of a section: a map keyed by
// block id that remembers insertion order.
type BlockSet struct {
	items *orderedmap.OrderedMap[string, *Block]
}

// NewBlockSet returns an empty set.
func NewBlockSet() *BlockSet {
	return &BlockSet{items: orderedmap.New[string, *Block]()}
}

// Len returns the number of blocks.
func (b *BlockSet) Len() int {
	if b == nil || b.items == nil {
		return 0
	}
	return b.items.Len()
}

// Get returns the block stored under id.
func (b *BlockSet) Get(id string) (*Block, bool) {
	if b == nil || b.items == nil {
		return nil, false
	}
	return b.items.Get(id)
}

// Has reports whether id is present.
func (b *BlockSet) Has(id string) bool {
	_, ok := b.Get(id)
	return ok
}

// Set stores block under id. Existing ids keep their position; new ids are
// appended.
func (b *BlockSet) Set(id string, block *Block) {
	if b.items == nil {
		b.items = orderedmap.New[string, *Block]()
	}
	b.items.Set(id, block)
}

// Delete removes id and reports whether it was present.
func (b *BlockSet) Delete(id string) bool {
	if b == nil || b.items == nil {
		return false
	}
	_, ok := b.items.Delete(id)
	return ok
}

// IDs returns block ids in display order.
func (b *BlockSet) IDs() []string {
	out := make([]string, 0, b.Len())
	if b.Len() == 0 {
		return out
	}
	for pair := b.items.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Move shifts id by delta positions. It reports false when id is missing or
// the move would leave the bounds of the set.
func (b *BlockSet) Move(id string, delta int) bool {
	ids := b.IDs()
	from := indexOf(ids, id)
	to := from + delta
	if from < 0 || to < 0 || to >= len(ids) {
		return false
	}
	ids[from], ids[to] = ids[to], ids[from]

	reordered := orderedmap.New[string, *Block](len(ids))
	for _, key := range ids {
		block, _ := b.items.Get(key)
		reordered.Set(key, block)
	}
	b.items = reordered
	return true
}

// Clone returns a deep copy of the set.
func (b *BlockSet) Clone() *BlockSet {
	out := NewBlockSet()
	for _, id := range b.IDs() {
		block, _ := b.Get(id)
		out.Set(id, block.Clone())
	}
	return out
}

// Equal reports whether both sets hold equal blocks in the same order.
func (b *BlockSet) Equal(other *BlockSet) bool {
	left, right := b.IDs(), other.IDs()
	if !reflect.DeepEqual(left, right) {
		return false
	}
	for _, id := range left {
		x, _ := b.Get(id)
		y, _ := other.Get(id)
		if !reflect.DeepEqual(x, y) {
			return false
		}
	}
	return true
}

func indexOf(ids []string, id string) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return cloneMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
