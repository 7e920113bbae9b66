// Package store persists raw template documents keyed by template id.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/goliatone/go-sections/pkg/schema"
)

var (
	// ErrNotFound is returned when no document is stored under an id.
	ErrNotFound = errors.New("store: template not found")
	// ErrInvalidID is returned for ids outside [A-Za-z0-9_-].
	ErrInvalidID = errors.New("store: invalid template id")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Summary describes a stored template in the template list.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// TemplateStore is the persistence contract for template documents. Values
// are raw JSON documents; normalisation happens on the reading side.
type TemplateStore interface {
	List(ctx context.Context) ([]Summary, error)
	Get(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, id string, data []byte) error
}

// ValidateID reports ErrInvalidID when id cannot be used as a store key.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// summarize reads the name and description of a stored document. The name
// falls back to the humanised id.
func summarize(id string, data []byte) (Summary, error) {
	var head struct {
		Name        any `json:"name"`
		Description any `json:"description"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Summary{}, err
	}
	summary := Summary{ID: id, Name: schema.HumanizeID(id)}
	if name, ok := head.Name.(string); ok && name != "" {
		summary.Name = name
	}
	if description, ok := head.Description.(string); ok {
		summary.Description = description
	}
	return summary, nil
}

func sortSummaries(summaries []Summary) {
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
}
