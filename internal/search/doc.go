// Package search defines the place search provider contract used by the
// matcher and the retry policy wrapped around every provider call.
//
// Providers translate one lookup into exactly one upstream round-trip and
// report failures as *StatusError (classified transient or permanent by HTTP
// status) or ErrMalformed. Retrying is the caller's job: Do retries transient
// failures with linear backoff and gives up immediately on anything else.
//
// Concrete providers live in the google and elastic subpackages.
package search
