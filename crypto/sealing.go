package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const sealingInfo = "privatecourt-seal-v1"

// SealedValue contains a value encrypted to an X25519 viewing key.
// Format: ephemeral pubkey (32 bytes) || nonce (12 bytes) || ciphertext+tag.
type SealedValue struct {
	EphemeralPubKey []byte `json:"ephemeral_pub_key"`
	Nonce           []byte `json:"nonce"`
	Ciphertext      []byte `json:"ciphertext"`
}

// Seal encrypts plaintext to a recipient's X25519 public key.
// Uses ephemeral ECDH key agreement, HKDF-SHA256 key derivation and
// AES-256-GCM authenticated encryption.
func Seal(recipient *ecdh.PublicKey, plaintext []byte) (*SealedValue, error) {
	ephemeral, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}

	sharedSecret, err := ephemeral.ECDH(recipient)
	if err != nil {
		return nil, fmt.Errorf("ECDH: %w", err)
	}

	gcm, err := newSealingAEAD(sharedSecret)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	// Additional data binds the ciphertext to the ephemeral key.
	ciphertext := gcm.Seal(nil, nonce, plaintext, ephemeral.PublicKey().Bytes())

	return &SealedValue{
		EphemeralPubKey: ephemeral.PublicKey().Bytes(),
		Nonce:           nonce,
		Ciphertext:      ciphertext,
	}, nil
}

// Open decrypts a sealed value using the recipient's X25519 private key.
func Open(recipient *ecdh.PrivateKey, sv *SealedValue) ([]byte, error) {
	ephemeralPub, err := ecdh.X25519().NewPublicKey(sv.EphemeralPubKey)
	if err != nil {
		return nil, fmt.Errorf("parse ephemeral key: %w", err)
	}

	sharedSecret, err := recipient.ECDH(ephemeralPub)
	if err != nil {
		return nil, fmt.Errorf("ECDH: %w", err)
	}

	gcm, err := newSealingAEAD(sharedSecret)
	if err != nil {
		return nil, err
	}

	if len(sv.Nonce) != gcm.NonceSize() {
		return nil, errors.New("invalid nonce size")
	}

	plaintext, err := gcm.Open(nil, sv.Nonce, sv.Ciphertext, sv.EphemeralPubKey)
	if err != nil {
		return nil, fmt.Errorf("open sealed value: %w", err)
	}

	return plaintext, nil
}

func newSealingAEAD(sharedSecret []byte) (cipher.AEAD, error) {
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, sharedSecret, nil, []byte(sealingInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive sealing key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	return cipher.NewGCM(block)
}
