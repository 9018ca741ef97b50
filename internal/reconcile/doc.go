// Package reconcile links metadata-only assets to files found on a source
// tree after a bulk metadata import.
//
// A run walks the tree once, indexes files by extension, and matches each
// metadata-only asset in scope through three tiers: identifier containment
// in the relative path, exact filename, then filename without extension.
// Applying a match only sets the source path; dispatching the newly
// attached assets is a separate, explicit step.
package reconcile
