// Package resolver turns hand-curated place definitions into displayable
// records and keeps the results in memory.
//
// A Service owns two TTL caches (by definition id and by external id), a
// single-flight group so concurrent callers for one id share one lookup, and
// an optional snapshot store so a restart does not start cold. Resolved
// records are filtered against places the caller already knows about before
// they are returned.
package resolver
