// Package ledger implements the append-only, hash-chained ledger whose
// canonical serialization is embedded into cover images by package stego.
//
// # Core Components
//
// Ledger: an ordered block sequence guarded by a mutex. Blocks are only ever
// appended; Rehash rewrites chain metadata but never removes a block.
//
// Block: one record holding an opaque Payload together with its index, creation
// time and the hash of its predecessor.
//
// Payload: a closed tagged variant (text or record) so that every value reaching
// the canonical serializer has exactly one byte encoding.
//
// # Hashing
//
// A block hash is the hex SHA-256 of the canonical JSON object
// {"index","timestamp","payload","prevHash"} with keys in that order. The genesis
// block links to GenesisPrevHash. The ledger digest is the SHA-256 of the
// canonical JSON array of all blocks, hashes included.
package ledger
