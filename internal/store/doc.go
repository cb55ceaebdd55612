// Package store keeps the local place records the batch matcher works
// through, backed by SQLite.
//
// Rows carry the record itself plus the outcome of the last match (status,
// external id, and a JSON payload describing the decision). List pages
// through rows by region, match status, or an explicit id list.
package store
