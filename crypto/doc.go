// Package crypto provides the cryptographic primitives used by PrivateCourt.
//
// This package implements:
//
//   - Ed25519 signing keys and signatures for long-term account identities
//   - Ethereum-style 20-byte account addresses derived from public keys,
//     rendered with EIP-55 checksum casing
//   - X25519 + HKDF-SHA256 + AES-256-GCM sealing, used by the decryption
//     oracle to encrypt revealed values to a requester's ephemeral viewing key
//
// Keys include helper methods for serialization and comparison. The sealing
// construction is one-shot: a fresh ephemeral key is generated per Seal call
// and bound into the AEAD's additional data.
package crypto
