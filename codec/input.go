package codec

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/bytebloomg/PrivateCourt/crypto"
)

// HandleLength is the byte width of a ciphertext handle.
const HandleLength = 32

// Handle is an opaque reference to an encrypted value. Handles are meaningful
// only to the encryption runtime and its decryption oracle.
type Handle [HandleLength]byte

// HandleFromBytes converts a byte slice into a Handle.
func HandleFromBytes(b []byte) (Handle, error) {
	var h Handle
	if len(b) != HandleLength {
		return h, fmt.Errorf("invalid handle length: %d bytes", len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HandleFromHex parses a hex-encoded handle, with or without the 0x prefix.
func HandleFromHex(s string) (Handle, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Handle{}, fmt.Errorf("invalid handle hex: %w", err)
	}
	return HandleFromBytes(raw)
}

// Bytes returns the handle as a byte slice.
func (h Handle) Bytes() []byte {
	return h[:]
}

// String returns the 0x-prefixed hex representation of the handle.
func (h Handle) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handle) UnmarshalText(text []byte) error {
	parsed, err := HandleFromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// FieldType identifies the plaintext type carried by an encrypted field.
type FieldType uint8

const (
	// FieldText is a fixed-width text block (see EncodeText).
	FieldText FieldType = iota + 1

	// FieldAddress is a 20-byte account address.
	FieldAddress
)

// Valid returns true if the field type is recognized.
func (t FieldType) Valid() bool {
	return t == FieldText || t == FieldAddress
}

// Field is one typed plaintext value destined for encryption.
type Field struct {
	Type  FieldType
	Value []byte
}

// TextField encodes a text payload into an encryption-ready field.
func TextField(text string) (Field, error) {
	block, err := EncodeText(text)
	if err != nil {
		return Field{}, err
	}
	return Field{Type: FieldText, Value: block.Bytes()}, nil
}

// AddressField wraps an account address into an encryption-ready field.
func AddressField(a crypto.Address) Field {
	return Field{Type: FieldAddress, Value: a.Bytes()}
}

// EncryptedInput is the result of encrypting an ordered list of fields:
// one opaque handle per field plus a proof binding the ciphertext to the
// (contract, submitter) pair it was produced for. Submitting the handles
// under a different contract or submitter fails proof verification.
type EncryptedInput struct {
	Handles []Handle `json:"handles"`
	Proof   []byte   `json:"proof"`
}

// Encryptor is the external encryption runtime boundary. Implementations
// encrypt the given fields under the (contract, submitter) binding and
// return handles in field order.
type Encryptor interface {
	EncryptInput(contract, submitter crypto.Address, fields []Field) (*EncryptedInput, error)
}

// BuildEncryptedInput validates an ordered field list and delegates
// encryption to the runtime.
func BuildEncryptedInput(enc Encryptor, contract, submitter crypto.Address, fields []Field) (*EncryptedInput, error) {
	if len(fields) == 0 {
		return nil, errors.New("no fields to encrypt")
	}
	for i, f := range fields {
		switch f.Type {
		case FieldText:
			if len(f.Value) != BlockSize {
				return nil, fmt.Errorf("field %d: text block must be %d bytes, got %d", i, BlockSize, len(f.Value))
			}
		case FieldAddress:
			if len(f.Value) != crypto.AddressLength {
				return nil, fmt.Errorf("field %d: address must be %d bytes, got %d", i, crypto.AddressLength, len(f.Value))
			}
		default:
			return nil, fmt.Errorf("field %d: unknown field type %d", i, f.Type)
		}
	}

	input, err := enc.EncryptInput(contract, submitter, fields)
	if err != nil {
		return nil, err
	}
	if len(input.Handles) != len(fields) {
		return nil, fmt.Errorf("runtime returned %d handles for %d fields", len(input.Handles), len(fields))
	}
	return input, nil
}
