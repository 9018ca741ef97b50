// Package asset persists processable assets and enforces their lifecycle.
//
// Assets move Pending -> Processing -> Completed | Error. Claim is an atomic
// compare-and-swap on status, so only one worker can hold an asset. Pipeline
// code writes artifacts, metadata, and custom variants through field-scoped
// updates; nothing rewrites the whole row. Completed requires the mandatory
// artifacts of the asset's kind, and Error never removes artifacts that were
// persisted before the failing stage.
package asset
