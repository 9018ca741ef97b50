// Package pipeline implements the per-kind processing pipelines.
//
// Video: duration probe (with fallback), hero and slate thumbnails, the
// H.264 playable proxy, then an optional H.265 support proxy. Audio: MP3
// conversion, placeholder icons, and best-effort tags. Image: a decode
// branch chosen by extension, then a web variant and a thumbnail. Custom:
// on-demand variants that never touch the primary status.
//
// Every step persists what it produced through field-scoped store updates
// before the next step runs, so a later failure keeps earlier artifacts.
// Fatal errors are returned as stage.StepError values for the dispatcher
// to record; non-fatal ones are written to the ledger here.
package pipeline
