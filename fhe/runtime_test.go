package fhe_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytebloomg/PrivateCourt/codec"
	"github.com/bytebloomg/PrivateCourt/crypto"
	"github.com/bytebloomg/PrivateCourt/fhe"
	"github.com/bytebloomg/PrivateCourt/grant"
	"github.com/bytebloomg/PrivateCourt/testutil"
)

func encryptText(t *testing.T, runtime *fhe.MockRuntime, contract, submitter crypto.Address, text string) *codec.EncryptedInput {
	t.Helper()
	field, err := codec.TextField(text)
	require.NoError(t, err)
	input, err := codec.BuildEncryptedInput(runtime, contract, submitter, []codec.Field{field})
	require.NoError(t, err)
	return input
}

func buildCall(t *testing.T, signer *grant.WalletSigner, targets []grant.HandleTarget, now time.Time, days uint64) (*grant.UserDecryptCall, *grant.DecryptionGrant) {
	t.Helper()
	g, err := grant.Build(signer, targets, now, days)
	require.NoError(t, err)
	return &grant.UserDecryptCall{
		Targets:        g.Targets,
		ViewingKey:     g.Request.PublicKey,
		Signature:      g.Signature,
		Contracts:      g.Request.Contracts,
		Requester:      g.Requester,
		RequesterKey:   g.RequesterKey,
		StartTimestamp: g.Request.StartTimestamp,
		DurationDays:   g.Request.DurationDays,
	}, g
}

func TestEncryptInputProducesUniqueHandles(t *testing.T) {
	runtime, err := fhe.NewMockRuntime()
	require.NoError(t, err)
	contract := testutil.RandomAddress(t)
	submitter := testutil.RandomAddress(t)

	a := encryptText(t, runtime, contract, submitter, "same text")
	b := encryptText(t, runtime, contract, submitter, "same text")

	assert.NotEqual(t, a.Handles[0], b.Handles[0])
}

func TestVerifyInputBinding(t *testing.T) {
	runtime, err := fhe.NewMockRuntime()
	require.NoError(t, err)
	contract := testutil.RandomAddress(t)
	submitter := testutil.RandomAddress(t)

	input := encryptText(t, runtime, contract, submitter, "bound")

	require.NoError(t, runtime.VerifyInput(input.Proof, input.Handles, contract, submitter))

	err = runtime.VerifyInput(input.Proof, input.Handles, contract, testutil.RandomAddress(t))
	assert.ErrorIs(t, err, fhe.ErrInvalidProof)

	err = runtime.VerifyInput(input.Proof, input.Handles, testutil.RandomAddress(t), submitter)
	assert.ErrorIs(t, err, fhe.ErrInvalidProof)

	tampered := append([]byte(nil), input.Proof...)
	tampered[0] ^= 0xff
	err = runtime.VerifyInput(tampered, input.Handles, contract, submitter)
	assert.ErrorIs(t, err, fhe.ErrInvalidProof)
}

func TestVerifyInputRejectsForeignHandles(t *testing.T) {
	runtime, err := fhe.NewMockRuntime()
	require.NoError(t, err)
	contract := testutil.RandomAddress(t)
	submitter := testutil.RandomAddress(t)

	// Proofs from one runtime mean nothing to another.
	other, err := fhe.NewMockRuntime()
	require.NoError(t, err)
	foreign := encryptText(t, other, contract, submitter, "foreign")

	err = runtime.VerifyInput(foreign.Proof, foreign.Handles, contract, submitter)
	assert.ErrorIs(t, err, fhe.ErrInvalidProof)
}

func TestAllowUnknownHandle(t *testing.T) {
	runtime, err := fhe.NewMockRuntime()
	require.NoError(t, err)

	err = runtime.Allow(codec.Handle{0x01}, testutil.RandomAddress(t))
	assert.ErrorIs(t, err, fhe.ErrUnknownHandle)
}

func TestUserDecryptHappyPath(t *testing.T) {
	runtime, err := fhe.NewMockRuntime()
	require.NoError(t, err)
	contract := testutil.RandomAddress(t)
	reader := testutil.NewIdentity(t)

	input := encryptText(t, runtime, contract, reader.Address, "revealed text")
	require.NoError(t, runtime.Allow(input.Handles[0], reader.Address))

	call, g := buildCall(t, reader.Signer(t), []grant.HandleTarget{
		{Handle: input.Handles[0], Contract: contract},
	}, time.Now(), grant.DefaultValidityDays)

	values, err := runtime.UserDecrypt(context.Background(), call)
	require.NoError(t, err)
	require.Contains(t, values, input.Handles[0])

	plaintext, err := crypto.Open(g.Keypair.PrivateKey, values[input.Handles[0]])
	require.NoError(t, err)
	text, err := codec.DecodeText(plaintext)
	require.NoError(t, err)
	assert.Equal(t, "revealed text", text)
}

func TestUserDecryptRejectsUnauthorizedRequester(t *testing.T) {
	runtime, err := fhe.NewMockRuntime()
	require.NoError(t, err)
	contract := testutil.RandomAddress(t)
	reader := testutil.NewIdentity(t)
	outsider := testutil.NewIdentity(t)

	input := encryptText(t, runtime, contract, reader.Address, "private")
	require.NoError(t, runtime.Allow(input.Handles[0], reader.Address))

	call, _ := buildCall(t, outsider.Signer(t), []grant.HandleTarget{
		{Handle: input.Handles[0], Contract: contract},
	}, time.Now(), grant.DefaultValidityDays)

	_, err = runtime.UserDecrypt(context.Background(), call)
	assert.ErrorIs(t, err, fhe.ErrAccessDenied)
}

func TestUserDecryptRejectsTamperedCall(t *testing.T) {
	runtime, err := fhe.NewMockRuntime()
	require.NoError(t, err)
	contract := testutil.RandomAddress(t)
	reader := testutil.NewIdentity(t)
	outsider := testutil.NewIdentity(t)

	input := encryptText(t, runtime, contract, reader.Address, "private")
	require.NoError(t, runtime.Allow(input.Handles[0], reader.Address))

	call, _ := buildCall(t, reader.Signer(t), []grant.HandleTarget{
		{Handle: input.Handles[0], Contract: contract},
	}, time.Now(), grant.DefaultValidityDays)

	// Stretching the window after signing invalidates the signature.
	tampered := *call
	tampered.DurationDays = 3650
	_, err = runtime.UserDecrypt(context.Background(), &tampered)
	assert.ErrorIs(t, err, fhe.ErrInvalidSignature)

	// Claiming someone else's address with the signer's key fails.
	tampered = *call
	tampered.Requester = outsider.Address
	_, err = runtime.UserDecrypt(context.Background(), &tampered)
	assert.ErrorIs(t, err, fhe.ErrRequesterMismatch)
}

func TestUserDecryptWindow(t *testing.T) {
	runtime, err := fhe.NewMockRuntime()
	require.NoError(t, err)
	contract := testutil.RandomAddress(t)
	reader := testutil.NewIdentity(t)

	input := encryptText(t, runtime, contract, reader.Address, "windowed")
	require.NoError(t, runtime.Allow(input.Handles[0], reader.Address))

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	call, _ := buildCall(t, reader.Signer(t), []grant.HandleTarget{
		{Handle: input.Handles[0], Contract: contract},
	}, start, 10)

	// Before the window opens.
	runtime.SetClock(func() time.Time { return start.Add(-time.Second) })
	_, err = runtime.UserDecrypt(context.Background(), call)
	assert.ErrorIs(t, err, fhe.ErrGrantNotYetValid)

	// Inside the window.
	runtime.SetClock(func() time.Time { return start.Add(9 * 24 * time.Hour) })
	_, err = runtime.UserDecrypt(context.Background(), call)
	assert.NoError(t, err)

	// The expiry instant is already outside.
	runtime.SetClock(func() time.Time { return start.Add(10 * 24 * time.Hour) })
	_, err = runtime.UserDecrypt(context.Background(), call)
	assert.ErrorIs(t, err, fhe.ErrGrantExpired)
}

func TestUserDecryptContractCoverage(t *testing.T) {
	runtime, err := fhe.NewMockRuntime()
	require.NoError(t, err)
	contract := testutil.RandomAddress(t)
	otherContract := testutil.RandomAddress(t)
	reader := testutil.NewIdentity(t)

	input := encryptText(t, runtime, contract, reader.Address, "covered")
	require.NoError(t, runtime.Allow(input.Handles[0], reader.Address))

	// Grant names a different contract than the handle was produced under.
	call, _ := buildCall(t, reader.Signer(t), []grant.HandleTarget{
		{Handle: input.Handles[0], Contract: otherContract},
	}, time.Now(), grant.DefaultValidityDays)

	_, err = runtime.UserDecrypt(context.Background(), call)
	assert.ErrorIs(t, err, fhe.ErrContractNotInGrant)
}

func TestUserDecryptAtomicFailure(t *testing.T) {
	runtime, err := fhe.NewMockRuntime()
	require.NoError(t, err)
	contract := testutil.RandomAddress(t)
	reader := testutil.NewIdentity(t)

	allowed := encryptText(t, runtime, contract, reader.Address, "allowed")
	require.NoError(t, runtime.Allow(allowed.Handles[0], reader.Address))
	denied := encryptText(t, runtime, contract, reader.Address, "denied")

	call, _ := buildCall(t, reader.Signer(t), []grant.HandleTarget{
		{Handle: allowed.Handles[0], Contract: contract},
		{Handle: denied.Handles[0], Contract: contract},
	}, time.Now(), grant.DefaultValidityDays)

	values, err := runtime.UserDecrypt(context.Background(), call)
	assert.ErrorIs(t, err, fhe.ErrAccessDenied)
	assert.Nil(t, values)
}

func TestUserDecryptUnknownHandle(t *testing.T) {
	runtime, err := fhe.NewMockRuntime()
	require.NoError(t, err)
	reader := testutil.NewIdentity(t)
	contract := testutil.RandomAddress(t)

	call, _ := buildCall(t, reader.Signer(t), []grant.HandleTarget{
		{Handle: codec.Handle{0xde, 0xad}, Contract: contract},
	}, time.Now(), grant.DefaultValidityDays)

	_, err = runtime.UserDecrypt(context.Background(), call)
	assert.ErrorIs(t, err, fhe.ErrUnknownHandle)
}

func TestUserDecryptHonorsContextCancellation(t *testing.T) {
	runtime, err := fhe.NewMockRuntime()
	require.NoError(t, err)
	reader := testutil.NewIdentity(t)
	contract := testutil.RandomAddress(t)

	call, _ := buildCall(t, reader.Signer(t), []grant.HandleTarget{
		{Handle: codec.Handle{0x01}, Contract: contract},
	}, time.Now(), grant.DefaultValidityDays)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = runtime.UserDecrypt(ctx, call)
	assert.ErrorIs(t, err, context.Canceled)
}
