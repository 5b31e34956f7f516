// Package store provides the SQLite processing journal.
//
// The journal is append-only:
//   - work_items: one row per queued WorkItem
//   - outcomes: at most one row per item, done, failed or abandoned
//
// A work item with no outcome was cut off before it finished. Items released
// at shutdown are journaled as abandoned; run --db closes out the rest with
// AbandonUnfinished after reporting them.
//
// Pragmas are passed in the connection URI, so go-sqlite3 sets them on
// every pooled connection: WAL, synchronous=NORMAL, a 5s busy timeout and
// foreign keys. Schema changes are appended to the migrations list and
// tracked in PRAGMA user_version.
//
// OpenReadOnly is for inspection commands that must not create a journal.
package store
