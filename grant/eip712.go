package grant

import (
	"encoding/binary"

	"github.com/bytebloomg/PrivateCourt/crypto"
)

// Typed-data hashing in the EIP-712 style: a two-level keccak construction
// whose outer digest commits to the domain and to every request field.

const (
	domainName    = "PrivateCourt.UserDecrypt"
	domainVersion = "1"
)

var (
	domainTypeHash  = crypto.Keccak256([]byte("EIP712Domain(string name,string version)"))
	requestTypeHash = crypto.Keccak256([]byte("UserDecryptRequestVerification(bytes publicKey,address[] contractAddresses,uint256 startTimestamp,uint256 durationDays)"))

	domainSeparator = crypto.Keccak256(
		domainTypeHash,
		crypto.Keccak256([]byte(domainName)),
		crypto.Keccak256([]byte(domainVersion)),
	)
)

// TypedRequest is the structured message a requester signs to authorize a
// decrypt attempt. It carries exactly the four fields the oracle verifies.
type TypedRequest struct {
	// PublicKey is the ephemeral X25519 viewing key reveals are sealed to.
	PublicKey []byte `json:"public_key"`

	// Contracts lists the source contract identities of the target handles,
	// deduplicated, in first-appearance order.
	Contracts []crypto.Address `json:"contracts"`

	// StartTimestamp is the window start, unix seconds.
	StartTimestamp uint64 `json:"start_timestamp"`

	// DurationDays is the window length. The request is valid in
	// [StartTimestamp, StartTimestamp + DurationDays days).
	DurationDays uint64 `json:"duration_days"`
}

// Digest returns the signing digest: keccak(0x19 || 0x01 || domainSeparator
// || structHash) where the struct hash commits to all four fields.
func (r *TypedRequest) Digest() []byte {
	contractBytes := make([]byte, 0, len(r.Contracts)*32)
	for _, c := range r.Contracts {
		padded := make([]byte, 32)
		copy(padded[12:], c.Bytes())
		contractBytes = append(contractBytes, padded...)
	}

	structHash := crypto.Keccak256(
		requestTypeHash,
		crypto.Keccak256(r.PublicKey),
		crypto.Keccak256(contractBytes),
		uint256Bytes(r.StartTimestamp),
		uint256Bytes(r.DurationDays),
	)

	return crypto.Keccak256([]byte{0x19, 0x01}, domainSeparator, structHash)
}

// Verify checks a signature over the request digest against a public key.
func (r *TypedRequest) Verify(pk crypto.PublicKey, sig crypto.Signature) bool {
	return sig.Verify(pk, r.Digest())
}

func uint256Bytes(v uint64) []byte {
	out := make([]byte, 32)
	binary.BigEndian.PutUint64(out[24:], v)
	return out
}
