// Package workflow is the dispatcher and bounded worker pool that drives
// assets through their kind's pipeline.
//
// Jobs are queued by Submit and run by a fixed number of workers; each job
// checks that the source resolves, claims the asset, executes the pipeline,
// and on failure flips the asset to error and appends a ledger record.
// Custom encodes share the pool but never touch the primary status.
// The operator operations (retry, bulk retry, stuck sweeps, pending
// dispatch, thumbnail regeneration, delete) live alongside the pool so the
// daemon and the CLI share one implementation. With workers.sync set, jobs
// run inline on the submitting goroutine.
package workflow
