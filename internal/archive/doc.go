// Package archive persists thread snapshots in a local SQLite
// database.
//
// A snapshot is one full walk of a thread: its pages in order, stored
// as JSON alongside queryable metadata (title, page and post counts,
// save time). Saving a thread replaces its previous snapshot in a
// single transaction, so readers never see a half-written walk.
package archive
