// Package journal records wificam runs and the frames they delivered in a
// SQLite database, so past sessions can be inspected with `wificam history`.
package journal
