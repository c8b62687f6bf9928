// Package grant implements the user-decryption authorization protocol.
//
// A participant who wants to read ciphertext never shows a long-term key to
// the decryption oracle. Instead, each decrypt attempt:
//
//  1. Generates a fresh X25519 viewing keypair, discarded after the attempt.
//  2. Builds a typed request over exactly {viewing public key, source
//     contract addresses, start timestamp, duration} and has the requester's
//     long-term identity sign its digest. Because the signature commits to
//     all four fields, a captured signature cannot be replayed for other
//     contracts, another time window, or another viewing key.
//  3. Submits the signed request with the target handles to the oracle, which
//     returns each revealed value sealed to the viewing key.
//  4. Unseals locally with the viewing private key and decodes through the
//     field codec.
//
// The protocol holds no state between attempts; concurrent attempts, even for
// the same handles, are independent. Reveals are all-or-nothing: a response
// missing any requested handle fails the whole attempt with
// ErrIncompleteReveal.
package grant
