// Package fhe provides an in-process stand-in for the external homomorphic
// encryption runtime and its decryption oracle.
//
// The real deployment delegates these operations to a remote encryption
// network; MockRuntime emulates that collaborator for development and tests,
// the same way the original environment runs against a mocked encryption
// backend. It enforces the oracle-side contract faithfully: input proofs bind
// handles to their (contract, submitter) pair, reveals require a valid typed
// signature from the requester, the grant's validity window is checked
// against the runtime clock, access is limited to accounts the record
// contract allowed, and every revealed value is sealed to the grant's
// ephemeral viewing key.
//
// Plaintext is stored in-process rather than under real FHE; nothing outside
// this package depends on that difference.
package fhe
