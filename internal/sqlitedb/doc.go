// Package sqlitedb opens the Archivist SQLite database and applies embedded
// migrations. It also provides busy-retry and NULL/time helpers shared by
// the asset store and the error ledger.
package sqlitedb
