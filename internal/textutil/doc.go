// Package textutil provides the text normalization used when comparing local
// place records against search provider candidates.
//
// The primary use cases are:
//   - Folding names for equality and containment checks (NormalizeName)
//   - Token-set similarity between names and addresses (Similarity, Jaccard)
//   - Extracting zip codes and street numbers from free-form addresses
//   - Normalizing phone numbers before a phone lookup
//
// Every function is pure: no I/O and no package state beyond compiled
// patterns, so results are deterministic for a given input.
package textutil
