package codec

import (
	"errors"
	"fmt"

	"github.com/bytebloomg/PrivateCourt/crypto"
)

// BlockSize is the fixed width of an encoded text block.
const BlockSize = 32

// MaxTextLength is the longest text payload that fits in a block. One byte is
// reserved as the zero terminator that frames the text length.
const MaxTextLength = BlockSize - 1

var (
	// ErrEmptyPayload is returned when encoding a zero-length text.
	ErrEmptyPayload = errors.New("payload is empty")

	// ErrPayloadTooLarge is returned when a text exceeds MaxTextLength bytes.
	ErrPayloadTooLarge = errors.New("payload exceeds block capacity")

	// ErrDecodeMismatch is returned when a revealed value's width or framing
	// does not match the expected field type.
	ErrDecodeMismatch = errors.New("revealed value does not match expected type")
)

// Block is a fixed-width plaintext block as submitted for encryption.
type Block [BlockSize]byte

// Bytes returns the block as a byte slice.
func (b Block) Bytes() []byte {
	return b[:]
}

// EncodeText lays a text payload out into a fixed-width block: UTF-8 bytes
// followed by zero padding. Encoding is deterministic; the same text always
// produces the same block.
func EncodeText(text string) (Block, error) {
	var b Block
	raw := []byte(text)
	if len(raw) == 0 {
		return b, ErrEmptyPayload
	}
	if len(raw) > MaxTextLength {
		return b, fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, len(raw), MaxTextLength)
	}
	copy(b[:], raw)
	return b, nil
}

// DecodeText reverses EncodeText on a revealed value. The value must be
// exactly one block wide and carry the zero terminator in its final byte.
func DecodeText(revealed []byte) (string, error) {
	if len(revealed) != BlockSize {
		return "", fmt.Errorf("%w: got %d bytes, want %d", ErrDecodeMismatch, len(revealed), BlockSize)
	}
	if revealed[BlockSize-1] != 0 {
		return "", fmt.Errorf("%w: missing zero terminator", ErrDecodeMismatch)
	}
	end := 0
	for end < BlockSize && revealed[end] != 0 {
		end++
	}
	return string(revealed[:end]), nil
}

// DecodeAddress reverses an address field reveal. Oracles return addresses as
// big-endian integers, so values narrower than the address width are
// left-zero-padded; wider values must carry only zero bytes in the prefix.
func DecodeAddress(revealed []byte) (crypto.Address, error) {
	addr, err := crypto.AddressFromBytes(revealed)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%w: %s", ErrDecodeMismatch, err)
	}
	return addr, nil
}
