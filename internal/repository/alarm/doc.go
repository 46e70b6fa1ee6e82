// Package alarm implements durable persistence for alarm rows.
//
// The SQLiteRepository stores one row per alarm in a local SQLite database
// and exposes a Repository interface that the service layer depends on.
// The store owns persisted identity only; it has no scheduling knowledge,
// and the in-memory schedule is always rebuildable from this table.
package alarm
