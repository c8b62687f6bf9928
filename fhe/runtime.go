package fhe

import (
	"context"
	"crypto/ecdh"
	"crypto/hmac"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/bytebloomg/PrivateCourt/codec"
	"github.com/bytebloomg/PrivateCourt/crypto"
	"github.com/bytebloomg/PrivateCourt/grant"
)

var (
	// ErrUnknownHandle is returned for handles the runtime never produced.
	ErrUnknownHandle = errors.New("unknown ciphertext handle")

	// ErrInvalidProof is returned when an input proof does not match the
	// claimed (handles, contract, submitter) binding.
	ErrInvalidProof = errors.New("input proof does not match binding")

	// ErrRequesterMismatch is returned when the requester key does not derive
	// to the claimed requester address.
	ErrRequesterMismatch = errors.New("requester key does not match requester address")

	// ErrInvalidSignature is returned when the typed request signature fails
	// verification.
	ErrInvalidSignature = errors.New("invalid decryption request signature")

	// ErrGrantNotYetValid is returned before the grant window opens.
	ErrGrantNotYetValid = errors.New("decryption grant not yet valid")

	// ErrGrantExpired is returned after the grant window closes.
	ErrGrantExpired = errors.New("decryption grant expired")

	// ErrContractNotInGrant is returned when a target's contract is absent
	// from the signed contract list.
	ErrContractNotInGrant = errors.New("handle contract not covered by grant")

	// ErrAccessDenied is returned when the requester was never allowed on a
	// requested handle.
	ErrAccessDenied = errors.New("requester not allowed on handle")
)

// ciphertext is one registered encrypted value.
type ciphertext struct {
	fieldType codec.FieldType
	value     []byte
	contract  crypto.Address
	allowed   map[crypto.Address]bool
}

// MockRuntime emulates the encryption runtime and decryption oracle in one
// process. It implements codec.Encryptor, court.EncryptionBackend and
// grant.Oracle.
type MockRuntime struct {
	macKey []byte
	now    func() time.Time

	mu          sync.RWMutex
	ciphertexts map[codec.Handle]*ciphertext
}

// NewMockRuntime creates a runtime with a random per-instance proof key.
func NewMockRuntime() (*MockRuntime, error) {
	macKey := make([]byte, 32)
	if _, err := rand.Read(macKey); err != nil {
		return nil, fmt.Errorf("generate proof key: %w", err)
	}
	return &MockRuntime{
		macKey:      macKey,
		now:         time.Now,
		ciphertexts: make(map[codec.Handle]*ciphertext),
	}, nil
}

// EncryptInput registers one ciphertext per field and returns the handles
// together with a proof binding them to (contract, submitter). Handles are
// unique per call; encrypting the same plaintext twice yields distinct
// handles.
func (r *MockRuntime) EncryptInput(contract, submitter crypto.Address, fields []codec.Field) (*codec.EncryptedInput, error) {
	if len(fields) == 0 {
		return nil, errors.New("no fields to encrypt")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	handles := make([]codec.Handle, 0, len(fields))
	for _, f := range fields {
		if !f.Type.Valid() {
			return nil, fmt.Errorf("unknown field type %d", f.Type)
		}
		nonce := uuid.New()
		digest := crypto.Keccak256(nonce[:], contract.Bytes(), submitter.Bytes())
		handle, _ := codec.HandleFromBytes(digest)

		value := make([]byte, len(f.Value))
		copy(value, f.Value)
		r.ciphertexts[handle] = &ciphertext{
			fieldType: f.Type,
			value:     value,
			contract:  contract,
			allowed:   make(map[crypto.Address]bool),
		}
		handles = append(handles, handle)
	}

	return &codec.EncryptedInput{
		Handles: handles,
		Proof:   r.proofFor(handles, contract, submitter),
	}, nil
}

// VerifyInput checks an input proof against the claimed binding and confirms
// every handle exists under the claimed contract. This is the write-guard's
// delegation point: handles encrypted for a different contract or submitter
// fail here.
func (r *MockRuntime) VerifyInput(proof []byte, handles []codec.Handle, contract, submitter crypto.Address) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	expected := r.proofFor(handles, contract, submitter)
	if !hmac.Equal(proof, expected) {
		return ErrInvalidProof
	}

	for _, h := range handles {
		ct, ok := r.ciphertexts[h]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
		}
		if ct.contract != contract {
			return fmt.Errorf("%w: %s bound to %s", ErrInvalidProof, h, ct.contract)
		}
	}
	return nil
}

// Allow grants the accounts the right to request decryption of a handle.
func (r *MockRuntime) Allow(handle codec.Handle, accounts ...crypto.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ct, ok := r.ciphertexts[handle]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}
	for _, a := range accounts {
		ct.allowed[a] = true
	}
	return nil
}

// UserDecrypt verifies a decryption grant and returns every requested value
// sealed to the grant's viewing key. The whole call fails if any target is
// unknown, outside the granted contract set, or not allowed for the
// requester; partial reveals are never produced.
func (r *MockRuntime) UserDecrypt(ctx context.Context, call *grant.UserDecryptCall) (map[codec.Handle]*crypto.SealedValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if crypto.AddressFromPublicKey(call.RequesterKey) != call.Requester {
		return nil, ErrRequesterMismatch
	}
	if !call.TypedRequest().Verify(call.RequesterKey, call.Signature) {
		return nil, ErrInvalidSignature
	}

	now := uint64(r.now().Unix())
	if now < call.StartTimestamp {
		return nil, ErrGrantNotYetValid
	}
	expiry := call.StartTimestamp + call.DurationDays*86400
	if now >= expiry {
		return nil, ErrGrantExpired
	}

	granted := make(map[crypto.Address]bool, len(call.Contracts))
	for _, c := range call.Contracts {
		granted[c] = true
	}

	viewingKey, err := ecdh.X25519().NewPublicKey(call.ViewingKey)
	if err != nil {
		return nil, fmt.Errorf("invalid viewing key: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[codec.Handle]*crypto.SealedValue, len(call.Targets))
	for _, target := range call.Targets {
		ct, ok := r.ciphertexts[target.Handle]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, target.Handle)
		}
		if !granted[ct.contract] || ct.contract != target.Contract {
			return nil, fmt.Errorf("%w: %s", ErrContractNotInGrant, target.Handle)
		}
		if !ct.allowed[call.Requester] {
			return nil, fmt.Errorf("%w: %s", ErrAccessDenied, target.Handle)
		}

		sealed, err := crypto.Seal(viewingKey, ct.value)
		if err != nil {
			return nil, fmt.Errorf("sealing %s: %w", target.Handle, err)
		}
		out[target.Handle] = sealed
	}

	return out, nil
}

// SetClock overrides the runtime clock. Tests use this to drive window
// checks; production code leaves it at time.Now.
func (r *MockRuntime) SetClock(now func() time.Time) {
	r.now = now
}

// proofFor computes the binding proof over handles, contract and submitter.
func (r *MockRuntime) proofFor(handles []codec.Handle, contract, submitter crypto.Address) []byte {
	mac := hmac.New(sha3.NewLegacyKeccak256, r.macKey)
	for _, h := range handles {
		mac.Write(h.Bytes())
	}
	mac.Write(contract.Bytes())
	mac.Write(submitter.Bytes())
	return mac.Sum(nil)
}
