// Package render defines the output renderer contract for form descriptions
// and a name-keyed registry of renderers. The JSON renderer lives here; the
// HTML and terminal adapters live under pkg/renderers.
package render
