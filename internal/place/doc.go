// Package place defines the records exchanged between the matcher, the
// resolver, and the entity store: local place records, provider candidates,
// scored candidates, and match decisions.
package place
