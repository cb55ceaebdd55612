// Package report writes the batch matcher's CSV outputs.
//
// A run produces three files: matched and review rows carry the chosen
// candidate, unmatched rows carry a reason. Collisions tracks external ids
// claimed by more than one local record so the summary can flag likely
// duplicates.
package report
