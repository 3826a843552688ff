// Package template defines the engine seam resume renderers render through.
// The pongo2 backed implementation lives in the gotemplate subpackage.
package template
