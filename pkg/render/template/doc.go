// Package template defines the template engine seam used by document
// renderers. The pongo2-backed implementation lives in the pongo
// subpackage.
package template
