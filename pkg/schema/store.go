package schema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"strings"
)

// Store lists available section types and serves their schemas.
type Store interface {
	List(ctx context.Context) ([]Summary, error)
	Schemas(ctx context.Context) ([]SectionType, error)
}

// schemaFileNames are tried in order inside each section directory.
var schemaFileNames = []string{"schema.json", "schema.yaml", "schema.yml"}

// FileStore reads section types from a directory tree laid out as
// <root>/<sectionTypeID>/schema.{json,yaml,yml}. Directories starting with
// "_" or "." are ignored.
type FileStore struct {
	fsys   fs.FS
	logger *slog.Logger
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithLogger sets the logger used to report malformed schema files.
func WithLogger(logger *slog.Logger) FileStoreOption {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileStore returns a store rooted at fsys.
func NewFileStore(fsys fs.FS, options ...FileStoreOption) *FileStore {
	store := &FileStore{
		fsys:   fsys,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(store)
	}
	return store
}

// List returns every available section type sorted by id. A section is
// available when its directory holds a schema file or a section template
// named after the directory.
func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	dirs, err := s.sectionDirs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(dirs))
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		summary := Summary{ID: dir, Name: HumanizeID(dir)}
		if section, ok := s.load(dir); ok {
			summary.Name = section.Name
			summary.Description = section.Description
		} else if !s.hasSectionTemplate(dir) && !s.hasSchemaFile(dir) {
			continue
		}
		out = append(out, summary)
	}
	return out, nil
}

// Schemas returns the parsed schema of every section directory that has a
// readable schema file. Unreadable files are logged and skipped.
func (s *FileStore) Schemas(ctx context.Context) ([]SectionType, error) {
	dirs, err := s.sectionDirs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SectionType, 0, len(dirs))
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if section, ok := s.load(dir); ok {
			out = append(out, section)
		}
	}
	return out, nil
}

func (s *FileStore) sectionDirs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.fsys == nil {
		return nil, errors.New("schema: file store has no filesystem")
	}
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("schema: read sections root: %w", err)
	}
	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

func (s *FileStore) load(dir string) (SectionType, bool) {
	for _, name := range schemaFileNames {
		file := path.Join(dir, name)
		data, err := fs.ReadFile(s.fsys, file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			s.logger.Warn("schema file unreadable", "section", dir, "file", file, "error", err)
			return SectionType{}, false
		}
		section, warnings, err := ParseSectionType(dir, data)
		if err != nil {
			s.logger.Warn("schema file malformed", "section", dir, "file", file, "error", err)
			return SectionType{}, false
		}
		for _, warning := range warnings {
			s.logger.Warn("schema entry skipped", "section", dir, "file", file, "detail", warning)
		}
		section.Source = file
		return section, true
	}
	return SectionType{}, false
}

func (s *FileStore) hasSchemaFile(dir string) bool {
	for _, name := range schemaFileNames {
		if _, err := fs.Stat(s.fsys, path.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

func (s *FileStore) hasSectionTemplate(dir string) bool {
	matches, err := fs.Glob(s.fsys, path.Join(dir, dir+".*"))
	return err == nil && len(matches) > 0
}
