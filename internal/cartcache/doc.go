// Package cartcache remembers decoded cartridge bodies keyed by the SHA-1 of
// the container bytes.
//
// Entries live in a SQLite database (modernc.org/sqlite, no cgo) with bodies
// compressed by zstd. Schema creation is guarded by a file lock next to the
// database so concurrent decart processes never race on a fresh file. A
// schema_version table pins the layout; a mismatch surfaces
// ErrSchemaMismatch and the operator clears the cache.
package cartcache
