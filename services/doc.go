// Package services exposes the court ledger and the encryption oracle over
// HTTP and provides the matching clients.
//
// Mutating court endpoints accept Signed envelopes: the request body carries
// the caller's Ed25519 public key and a signature over the serialized payload,
// and the caller's account address is derived from the recovered key. Read
// endpoints are plain GETs; trial records and message entries are public, only
// their contents are ciphertext handles.
//
// The oracle endpoints wrap the encryption runtime: one to encrypt input
// fields into bound handles, one to execute signed user-decrypt requests.
// Trial state is persisted through a TrialStore so a restarted service can
// rebuild its ledger.
package services
