// Package blobs provides the named-blob persistence the storage core is built
// on: a flat key to bytes mapping where each key is one logical document
// (the conversation collection, one conversation key, the reminder list).
//
// # Implementations
//
//   - SQLiteRepository persists blobs in the "blobs" table of a local SQLite
//     database opened with Open, which also applies the embedded goose
//     migrations.
//   - MemoryRepository keeps blobs in a map. It is used by tests and by
//     ephemeral runs (config InMemory).
//
// # Contract
//
// Get returns (nil, nil) for a missing key. SetMany writes all pairs or none.
// Both implementations are safe for concurrent use; higher layers still
// serialise their read-modify-write cycles themselves.
package blobs
