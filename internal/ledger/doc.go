// Package ledger records every caught stage failure for operators.
//
// The ledger is a sink: pipelines append, the CLI lists and toggles the
// resolved flag, and nothing in the processing path reads it back.
package ledger
