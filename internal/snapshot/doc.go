// Package snapshot persists resolved entities between runs.
//
// A Store wraps a Blob (a local file guarded by an advisory lock, or an S3
// object) and stores a versioned JSON document. Loads never fail: a missing,
// unreadable, or corrupt document is a cache miss, and a document written
// under a different version is deleted so the caller rebuilds it.
package snapshot
