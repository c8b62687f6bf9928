package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytebloomg/PrivateCourt/grant"
	"github.com/bytebloomg/PrivateCourt/services"
	"github.com/bytebloomg/PrivateCourt/testutil"
)

// TestTrialLifecycleEndToEnd drives the whole flow over HTTP: open a trial,
// post an encrypted statement under a pen name, reveal it as a participant,
// get refused as an outsider, and close the trial.
func TestTrialLifecycleEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	judge := testutil.NewIdentity(t)
	partyA := testutil.NewIdentity(t)
	partyB := testutil.NewIdentity(t)
	outsider := testutil.NewIdentity(t)

	judgeClient := services.NewCourtClient(env.server.URL, judge.PrivateKey)
	partyAClient := services.NewCourtClient(env.server.URL, partyA.PrivateKey)
	oracle := services.NewOracleClient(env.server.URL)

	trialID, err := judgeClient.CreateTrial(ctx, partyA.Address, partyB.Address)
	require.NoError(t, err)

	contract, err := judgeClient.Contract(ctx)
	require.NoError(t, err)

	// Party A posts a statement attributed to a fresh pen name.
	penName := testutil.RandomAddress(t)
	input := testutil.EncryptMessageFields(t, oracle, contract, partyA.Address, "Test message", penName)
	index, err := partyAClient.SendMessage(ctx, trialID, input.Handles[0], input.Handles[1], input.Proof)
	require.NoError(t, err)
	assert.Zero(t, index)

	// The public ledger shows the sender account and opaque handles only.
	entry, err := judgeClient.GetMessage(ctx, trialID, index)
	require.NoError(t, err)
	assert.Equal(t, partyA.Address, entry.Sender)
	assert.Equal(t, input.Handles[0], entry.EncryptedContent)
	assert.Equal(t, input.Handles[1], entry.EncryptedAuthor)

	// Every participant can reveal the statement.
	decryptor := grant.NewDecryptor(oracle)
	for _, participant := range []*testutil.Identity{judge, partyA, partyB} {
		text, author, err := decryptor.DecryptMessage(ctx, participant.Signer(t), contract,
			entry.EncryptedContent, entry.EncryptedAuthor)
		require.NoError(t, err)
		assert.Equal(t, "Test message", text)
		assert.Equal(t, penName, author)
	}

	// Outsiders hold no access grant.
	_, _, err = decryptor.DecryptMessage(ctx, outsider.Signer(t), contract,
		entry.EncryptedContent, entry.EncryptedAuthor)
	assert.Error(t, err)

	// Closure stops writes but not reads or reveals.
	require.NoError(t, judgeClient.CloseTrial(ctx, trialID))

	lateInput := testutil.EncryptMessageFields(t, oracle, contract, partyA.Address, "too late", testutil.RandomAddress(t))
	_, err = partyAClient.SendMessage(ctx, trialID, lateInput.Handles[0], lateInput.Handles[1], lateInput.Proof)
	assert.Error(t, err)

	list, err := judgeClient.ListMessages(ctx, trialID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), list.Count)

	text, _, err := decryptor.DecryptMessage(ctx, judge.Signer(t), contract,
		entry.EncryptedContent, entry.EncryptedAuthor)
	require.NoError(t, err)
	assert.Equal(t, "Test message", text)
}

// TestIncompleteRevealFailsAtomically covers an oracle that withholds one of
// the requested handles.
func TestIncompleteRevealFailsAtomically(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	judge := testutil.NewIdentity(t)
	partyA := testutil.NewIdentity(t)
	partyB := testutil.NewIdentity(t)

	judgeClient := services.NewCourtClient(env.server.URL, judge.PrivateKey)
	trialID, err := judgeClient.CreateTrial(ctx, partyA.Address, partyB.Address)
	require.NoError(t, err)

	oracle := services.NewOracleClient(env.server.URL)
	contract, err := judgeClient.Contract(ctx)
	require.NoError(t, err)

	input := testutil.EncryptMessageFields(t, oracle, contract, partyA.Address, "withheld", testutil.RandomAddress(t))
	partyAClient := services.NewCourtClient(env.server.URL, partyA.PrivateKey)
	_, err = partyAClient.SendMessage(ctx, trialID, input.Handles[0], input.Handles[1], input.Proof)
	require.NoError(t, err)

	lossy := &testutil.PartialOracle{Inner: oracle, Drop: input.Handles[1]}
	_, _, err = grant.NewDecryptor(lossy).DecryptMessage(ctx, judge.Signer(t), contract,
		input.Handles[0], input.Handles[1])
	assert.ErrorIs(t, err, grant.ErrIncompleteReveal)
}

// TestSignedEnvelopeRoundTrip pins the envelope's recover semantics.
func TestSignedEnvelopeRoundTrip(t *testing.T) {
	id := testutil.NewIdentity(t)

	signed, err := services.NewSigned(id.PrivateKey, &services.CreateTrialRequest{
		PartyA: testutil.RandomAddress(t),
		PartyB: testutil.RandomAddress(t),
	})
	require.NoError(t, err)

	obj, signer, err := signed.Recover()
	require.NoError(t, err)
	assert.True(t, id.PublicKey.Equal(signer))
	assert.Equal(t, signed.UnsafeObject(), obj)

	// Swapping the object breaks the signature.
	signed.Object = &services.CreateTrialRequest{
		PartyA: testutil.RandomAddress(t),
		PartyB: testutil.RandomAddress(t),
	}
	_, _, err = signed.Recover()
	assert.Error(t, err)
}
