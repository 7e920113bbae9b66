package document

import "errors"

var (
	// ErrSectionNotFound is returned when a section id does not resolve.
	ErrSectionNotFound = errors.New("document: section not found")
	// ErrBlockNotFound is returned when a block id does not resolve.
	ErrBlockNotFound = errors.New("document: block not found")
	// ErrUnknownField is returned by SetField for fields other than name and
	// description.
	ErrUnknownField = errors.New("document: unknown template field")
)
