package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AddressLength is the byte width of an account address.
const AddressLength = 20

// Address is an Ethereum-style account identifier: the last 20 bytes of the
// Keccak-256 hash of the account's public key. The zero value is the null
// address and never identifies a participant.
type Address [AddressLength]byte

// AddressFromPublicKey derives the account address for a public key.
func AddressFromPublicKey(pk PublicKey) Address {
	var a Address
	h := Keccak256(pk.Bytes())
	copy(a[:], h[12:])
	return a
}

// AddressFromHex parses a hex-encoded address, with or without the 0x prefix.
// Checksum casing is accepted but not required.
func AddressFromHex(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(strings.ToLower(s))
	if err != nil {
		return a, fmt.Errorf("invalid address hex: %w", err)
	}
	if len(raw) != AddressLength {
		return a, fmt.Errorf("invalid address length: %d bytes", len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// AddressFromBytes converts a byte slice into an Address. Slices shorter than
// the address width are left-zero-padded; longer slices must carry only zero
// bytes in the prefix.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) > AddressLength {
		for _, extra := range b[:len(b)-AddressLength] {
			if extra != 0 {
				return a, errors.New("value exceeds address width")
			}
		}
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a, nil
}

// IsZero reports whether the address is the null address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte {
	return a[:]
}

// String returns the EIP-55 checksummed hex representation, 0x-prefixed.
func (a Address) String() string {
	unchecked := hex.EncodeToString(a[:])
	hash := Keccak256([]byte(unchecked))

	buf := []byte(unchecked)
	for i := range buf {
		if buf[i] < 'a' {
			continue
		}
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			buf[i] -= 'a' - 'A'
		}
	}
	return "0x" + string(buf)
}

// MarshalText implements encoding.TextMarshaler with checksummed hex.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := AddressFromHex(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Keccak256 returns the Keccak-256 hash over the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}
