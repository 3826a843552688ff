// Package model defines the resume document edited by the component: personal
// fields, an ordered list of experiences, an ordered list of skills and the
// selected template reference. Values here are plain data; behaviour lives in
// pkg/state (the reactive container) and pkg/component (the edit and list
// controllers).
//
// FieldPath addresses either a top-level scalar (`full_name`) or a list item
// subfield (`experiences.1.url`). Positions are recomputed from the current
// sequence on every render, so a path is only meaningful against the document
// it was produced from.
package model
