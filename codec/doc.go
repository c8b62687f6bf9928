// Package codec implements the ciphertext field codec: the fixed-width
// plaintext layout for encrypted trial statements and the typed construction
// of encrypted inputs.
//
// A statement is carried in one 32-byte block. The text occupies at most 31
// bytes; the final byte is always zero and frames the text length, so any
// valid block decodes unambiguously. Author addresses travel as 20-byte
// values and may come back from the oracle as shorter big-endian integers,
// which are left-zero-padded before checksum normalization.
//
// Encryption itself is delegated to an external runtime through the Encryptor
// interface; the codec only validates and lays out plaintext, and decodes
// revealed values.
package codec
