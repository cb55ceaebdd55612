// Package batch runs the matcher over records from the entity store.
//
// A run lists records, matches them one at a time with a fixed delay between
// provider round-trips, writes the three CSV reports, and in apply mode
// stores each outcome back on the record. Failures for single records become
// error rows; only cancellation or report I/O aborts the run.
package batch
