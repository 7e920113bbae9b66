package document

import (
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces collision-free ids for sections and blocks.
type IDGenerator interface {
	NewID(prefix string) string
}

// IDFunc adapts a function to IDGenerator.
type IDFunc func(prefix string) string

// NewID implements IDGenerator.
func (f IDFunc) NewID(prefix string) string { return f(prefix) }

type uuidGenerator struct{}

// UUIDs returns the default generator: "<prefix>_<uuid v7 hex>". Version 7
// ids sort by creation time.
func UUIDs() IDGenerator { return uuidGenerator{} }

func (uuidGenerator) NewID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + "_" + strings.ReplaceAll(id.String(), "-", "")
}

// Sequence returns a deterministic generator yielding "<prefix>_1",
// "<prefix>_2", ... with one counter per prefix.
func Sequence() IDGenerator {
	return &sequence{next: make(map[string]int)}
}

type sequence struct {
	mu   sync.Mutex
	next map[string]int
}

func (s *sequence) NewID(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[prefix]++
	return prefix + "_" + strconv.Itoa(s.next[prefix])
}
