// Package court implements the trial authorization store and message ledger.
//
// A trial binds one judge and two distinct parties. Trials move through a
// one-way lifecycle: NonExistent -> Active -> Closed. Only participants may
// post messages, only while the trial is active, and only the judge may close
// it. Messages are append-only encrypted entries with dense, zero-based
// indices; entries remain readable after closure.
//
// The Court is an explicit store object: all trial and ledger state lives
// behind it and every mutation is serialized under one lock, so a mutation
// either fully applies or fully fails. Ciphertext validity and decryption
// access control are delegated to the encryption runtime through the
// EncryptionBackend interface; the write-guard consults it immediately before
// every append.
package court
