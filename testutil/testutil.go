package testutil

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bytebloomg/PrivateCourt/codec"
	"github.com/bytebloomg/PrivateCourt/court"
	"github.com/bytebloomg/PrivateCourt/crypto"
	"github.com/bytebloomg/PrivateCourt/fhe"
	"github.com/bytebloomg/PrivateCourt/grant"
)

// Identity bundles one account's key material with its derived address.
type Identity struct {
	PublicKey  crypto.PublicKey
	PrivateKey crypto.PrivateKey
	Address    crypto.Address
}

// NewIdentity generates a fresh account identity.
func NewIdentity(t *testing.T) *Identity {
	t.Helper()
	pub, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return &Identity{
		PublicKey:  pub,
		PrivateKey: priv,
		Address:    crypto.AddressFromPublicKey(pub),
	}
}

// Signer wraps the identity as a grant signer.
func (id *Identity) Signer(t *testing.T) *grant.WalletSigner {
	t.Helper()
	signer, err := grant.NewWalletSigner(id.PrivateKey)
	require.NoError(t, err)
	return signer
}

// RandomAddress returns a random non-zero account address.
func RandomAddress(t *testing.T) crypto.Address {
	t.Helper()
	var raw [20]byte
	_, err := rand.Read(raw[:])
	require.NoError(t, err)
	addr, err := crypto.AddressFromBytes(raw[:])
	require.NoError(t, err)
	return addr
}

// NewRuntimeAndCourt wires a fresh mock runtime to an empty court under a
// random contract identity.
func NewRuntimeAndCourt(t *testing.T) (*fhe.MockRuntime, *court.Court) {
	t.Helper()
	runtime, err := fhe.NewMockRuntime()
	require.NoError(t, err)
	c := court.NewCourt(RandomAddress(t), runtime)
	return runtime, c
}

// EncryptMessageFields encrypts a statement text and a pen-name address for
// the given sender, returning the resulting input.
func EncryptMessageFields(t *testing.T, enc codec.Encryptor, contract, sender crypto.Address, text string, penName crypto.Address) *codec.EncryptedInput {
	t.Helper()
	textField, err := codec.TextField(text)
	require.NoError(t, err)
	input, err := codec.BuildEncryptedInput(enc, contract, sender, []codec.Field{textField, codec.AddressField(penName)})
	require.NoError(t, err)
	return input
}

// PostMessage encrypts and posts a statement, returning its ledger index and
// the input it was built from.
func PostMessage(t *testing.T, runtime *fhe.MockRuntime, c *court.Court, trialID uint64, sender *Identity, text string, penName crypto.Address) (uint64, *codec.EncryptedInput) {
	t.Helper()
	input := EncryptMessageFields(t, runtime, c.Contract(), sender.Address, text, penName)
	index, err := c.SendMessage(trialID, sender.Address, input.Handles[0], input.Handles[1], input.Proof)
	require.NoError(t, err)
	return index, input
}

// PartialOracle wraps an oracle and drops one handle from every response,
// for exercising incomplete-reveal handling.
type PartialOracle struct {
	Inner grant.Oracle
	Drop  codec.Handle
}

// UserDecrypt forwards to the inner oracle and removes the dropped handle.
func (o *PartialOracle) UserDecrypt(ctx context.Context, call *grant.UserDecryptCall) (map[codec.Handle]*crypto.SealedValue, error) {
	values, err := o.Inner.UserDecrypt(ctx, call)
	if err != nil {
		return nil, err
	}
	delete(values, o.Drop)
	return values, nil
}
