package grant

import (
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/bytebloomg/PrivateCourt/codec"
	"github.com/bytebloomg/PrivateCourt/crypto"
)

// DefaultValidityDays is the reference deployment's grant window. It is a
// configuration value, not a protocol constant.
const DefaultValidityDays = 10

// ViewingKeypair is a single-use X25519 keypair generated per decrypt
// attempt. The private key never leaves the requester's process; the oracle
// only ever sees the public half.
type ViewingKeypair struct {
	PublicKey  *ecdh.PublicKey
	PrivateKey *ecdh.PrivateKey
}

// GenerateViewingKeypair generates a fresh viewing keypair.
func GenerateViewingKeypair() (*ViewingKeypair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate viewing key: %w", err)
	}
	return &ViewingKeypair{PublicKey: priv.PublicKey(), PrivateKey: priv}, nil
}

// HandleTarget pairs a ciphertext handle with the contract identity it was
// produced under. A grant only authorizes handles whose contract appears in
// the signed contract list.
type HandleTarget struct {
	Handle   codec.Handle   `json:"handle"`
	Contract crypto.Address `json:"contract"`
}

// Signer is the long-term signing identity as seen by the grant protocol.
// Nothing beyond the verifying key and typed-request signing is reachable
// through it.
type Signer interface {
	// PublicKey returns the identity's verifying key. The account address
	// derives from it.
	PublicKey() crypto.PublicKey

	// SignTypedRequest signs the request digest.
	SignTypedRequest(req *TypedRequest) (crypto.Signature, error)
}

// WalletSigner signs typed requests with an in-memory Ed25519 key.
type WalletSigner struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// NewWalletSigner wraps a private key as a Signer.
func NewWalletSigner(priv crypto.PrivateKey) (*WalletSigner, error) {
	pub, err := priv.PublicKey()
	if err != nil {
		return nil, err
	}
	return &WalletSigner{priv: priv, pub: pub}, nil
}

// PublicKey returns the wallet's verifying key.
func (s *WalletSigner) PublicKey() crypto.PublicKey {
	return s.pub
}

// Address returns the wallet's account address.
func (s *WalletSigner) Address() crypto.Address {
	return crypto.AddressFromPublicKey(s.pub)
}

// SignTypedRequest signs the request digest with the wallet key.
func (s *WalletSigner) SignTypedRequest(req *TypedRequest) (crypto.Signature, error) {
	return crypto.Sign(s.priv, req.Digest())
}

// DecryptionGrant is one decrypt attempt's authorization artifact: the target
// handles, the ephemeral viewing keypair, the signed typed request, and the
// requester identity. Grants are never persisted and must not be reused
// outside their validity window or for handles they were not built for.
type DecryptionGrant struct {
	Targets      []HandleTarget
	Keypair      *ViewingKeypair
	Request      TypedRequest
	Signature    crypto.Signature
	Requester    crypto.Address
	RequesterKey crypto.PublicKey
}

// Build assembles and signs a grant for the given targets. A fresh viewing
// keypair is generated; the window starts at now and spans durationDays.
func Build(signer Signer, targets []HandleTarget, now time.Time, durationDays uint64) (*DecryptionGrant, error) {
	if len(targets) == 0 {
		return nil, errors.New("no handles to reveal")
	}
	if durationDays == 0 {
		return nil, errors.New("grant duration must be positive")
	}

	keypair, err := GenerateViewingKeypair()
	if err != nil {
		return nil, err
	}

	// Contract list in first-appearance order, deduplicated.
	var contracts []crypto.Address
	seen := make(map[crypto.Address]bool)
	for _, t := range targets {
		if t.Contract.IsZero() {
			return nil, fmt.Errorf("handle %s: zero contract address", t.Handle)
		}
		if !seen[t.Contract] {
			seen[t.Contract] = true
			contracts = append(contracts, t.Contract)
		}
	}

	req := TypedRequest{
		PublicKey:      keypair.PublicKey.Bytes(),
		Contracts:      contracts,
		StartTimestamp: uint64(now.Unix()),
		DurationDays:   durationDays,
	}

	sig, err := signer.SignTypedRequest(&req)
	if err != nil {
		return nil, fmt.Errorf("signing declined: %w", err)
	}

	pub := signer.PublicKey()
	return &DecryptionGrant{
		Targets:      append([]HandleTarget(nil), targets...),
		Keypair:      keypair,
		Request:      req,
		Signature:    sig,
		Requester:    crypto.AddressFromPublicKey(pub),
		RequesterKey: pub,
	}, nil
}
