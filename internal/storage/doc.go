// Package storage records admin actions (scheduler toggles, channel edits,
// manual broadcasts) in an append-only audit log.
//
// Drivers: "file" (JSON Lines) and "sqlite" (modernc.org/sqlite, no cgo).
// An empty driver disables the store; every call then returns ErrDisabled.
package storage
