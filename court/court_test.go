package court

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytebloomg/PrivateCourt/codec"
	"github.com/bytebloomg/PrivateCourt/crypto"
)

// stubBackend accepts every input and records access grants, unless told to
// fail a specific step.
type stubBackend struct {
	verifyErr error
	allowErr  error

	verified int
	allowed  map[codec.Handle][]crypto.Address
}

func newStubBackend() *stubBackend {
	return &stubBackend{allowed: make(map[codec.Handle][]crypto.Address)}
}

func (b *stubBackend) VerifyInput(proof []byte, handles []codec.Handle, contract, submitter crypto.Address) error {
	if b.verifyErr != nil {
		return b.verifyErr
	}
	b.verified++
	return nil
}

func (b *stubBackend) Allow(handle codec.Handle, accounts ...crypto.Address) error {
	if b.allowErr != nil {
		return b.allowErr
	}
	b.allowed[handle] = append(b.allowed[handle], accounts...)
	return nil
}

func addr(b byte) crypto.Address {
	var a crypto.Address
	a[19] = b
	return a
}

func handle(b byte) codec.Handle {
	var h codec.Handle
	h[0] = b
	return h
}

func newTestCourt() (*Court, *stubBackend) {
	backend := newStubBackend()
	return NewCourt(addr(0xcc), backend), backend
}

func TestCreateTrialAllocatesSequentialIDs(t *testing.T) {
	c, _ := newTestCourt()

	for want := uint64(1); want <= 3; want++ {
		id, err := c.CreateTrial(addr(1), addr(2), addr(3))
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}

	trial, err := c.GetTrial(1)
	require.NoError(t, err)
	assert.Equal(t, addr(1), trial.Judge)
	assert.Equal(t, addr(2), trial.PartyA)
	assert.Equal(t, addr(3), trial.PartyB)
	assert.True(t, trial.IsActive)
	assert.Zero(t, trial.MessageCount)
}

func TestCreateTrialValidation(t *testing.T) {
	c, _ := newTestCourt()

	_, err := c.CreateTrial(crypto.Address{}, addr(2), addr(3))
	assert.ErrorIs(t, err, ErrZeroAddress)
	_, err = c.CreateTrial(addr(1), crypto.Address{}, addr(3))
	assert.ErrorIs(t, err, ErrZeroAddress)
	_, err = c.CreateTrial(addr(1), addr(2), crypto.Address{})
	assert.ErrorIs(t, err, ErrZeroAddress)

	_, err = c.CreateTrial(addr(1), addr(2), addr(2))
	assert.ErrorIs(t, err, ErrDuplicateParty)

	// Nothing was allocated; the next id is still 1.
	id, err := c.CreateTrial(addr(1), addr(2), addr(3))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestCreateTrialJudgeMayBeParty(t *testing.T) {
	c, _ := newTestCourt()

	id, err := c.CreateTrial(addr(1), addr(1), addr(2))
	require.NoError(t, err)

	// The double role is indexed once.
	assert.Equal(t, []uint64{id}, c.TrialsForAddress(addr(1)))
}

func TestCreateTrialUsesInjectedClock(t *testing.T) {
	c, _ := newTestCourt()
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	id, err := c.CreateTrial(addr(1), addr(2), addr(3))
	require.NoError(t, err)

	trial, err := c.GetTrial(id)
	require.NoError(t, err)
	assert.Equal(t, fixed, trial.CreatedAt)
}

func TestCloseTrial(t *testing.T) {
	c, _ := newTestCourt()
	id, err := c.CreateTrial(addr(1), addr(2), addr(3))
	require.NoError(t, err)

	err = c.CloseTrial(99, addr(1))
	assert.ErrorIs(t, err, ErrTrialDoesNotExist)

	err = c.CloseTrial(id, addr(2))
	assert.ErrorIs(t, err, ErrNotJudge)

	require.NoError(t, c.CloseTrial(id, addr(1)))

	trial, err := c.GetTrial(id)
	require.NoError(t, err)
	assert.False(t, trial.IsActive)

	// Closing twice fails, and the role check still runs first.
	err = c.CloseTrial(id, addr(1))
	assert.ErrorIs(t, err, ErrTrialAlreadyClosed)
	err = c.CloseTrial(id, addr(2))
	assert.ErrorIs(t, err, ErrNotJudge)
}

func TestAuthorizeWrite(t *testing.T) {
	c, _ := newTestCourt()
	id, err := c.CreateTrial(addr(1), addr(2), addr(3))
	require.NoError(t, err)

	assert.ErrorIs(t, c.AuthorizeWrite(99, addr(1)), ErrTrialDoesNotExist)
	assert.ErrorIs(t, c.AuthorizeWrite(id, addr(9)), ErrSenderNotParticipant)

	for _, participant := range []crypto.Address{addr(1), addr(2), addr(3)} {
		assert.NoError(t, c.AuthorizeWrite(id, participant))
	}

	require.NoError(t, c.CloseTrial(id, addr(1)))
	assert.ErrorIs(t, c.AuthorizeWrite(id, addr(1)), ErrTrialAlreadyClosed)
}

func TestSendMessageAppendsDenseIndices(t *testing.T) {
	c, backend := newTestCourt()
	id, err := c.CreateTrial(addr(1), addr(2), addr(3))
	require.NoError(t, err)

	for want := uint64(0); want < 3; want++ {
		index, err := c.SendMessage(id, addr(2), handle(byte(10+want)), handle(byte(20+want)), []byte("proof"))
		require.NoError(t, err)
		assert.Equal(t, want, index)
	}

	count, err := c.MessageCount(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	entry, err := c.GetMessage(id, 1)
	require.NoError(t, err)
	assert.Equal(t, addr(2), entry.Sender)
	assert.Equal(t, handle(11), entry.EncryptedContent)
	assert.Equal(t, handle(21), entry.EncryptedAuthor)
	assert.Equal(t, 3, backend.verified)
}

func TestSendMessageGrantsAllParticipants(t *testing.T) {
	c, backend := newTestCourt()
	id, err := c.CreateTrial(addr(1), addr(2), addr(3))
	require.NoError(t, err)

	_, err = c.SendMessage(id, addr(3), handle(1), handle(2), []byte("proof"))
	require.NoError(t, err)

	want := []crypto.Address{addr(1), addr(2), addr(3)}
	assert.Equal(t, want, backend.allowed[handle(1)])
	assert.Equal(t, want, backend.allowed[handle(2)])
}

func TestSendMessageGuards(t *testing.T) {
	c, _ := newTestCourt()
	id, err := c.CreateTrial(addr(1), addr(2), addr(3))
	require.NoError(t, err)

	_, err = c.SendMessage(99, addr(1), handle(1), handle(2), []byte("proof"))
	assert.ErrorIs(t, err, ErrTrialDoesNotExist)

	_, err = c.SendMessage(id, addr(9), handle(1), handle(2), []byte("proof"))
	assert.ErrorIs(t, err, ErrSenderNotParticipant)

	require.NoError(t, c.CloseTrial(id, addr(1)))
	_, err = c.SendMessage(id, addr(2), handle(1), handle(2), []byte("proof"))
	assert.ErrorIs(t, err, ErrTrialAlreadyClosed)
}

func TestSendMessageBackendFailuresLeaveNoState(t *testing.T) {
	c, backend := newTestCourt()
	id, err := c.CreateTrial(addr(1), addr(2), addr(3))
	require.NoError(t, err)

	backend.verifyErr = errors.New("bad proof")
	_, err = c.SendMessage(id, addr(2), handle(1), handle(2), []byte("proof"))
	assert.Error(t, err)

	backend.verifyErr = nil
	backend.allowErr = errors.New("grant refused")
	_, err = c.SendMessage(id, addr(2), handle(1), handle(2), []byte("proof"))
	assert.Error(t, err)

	count, err := c.MessageCount(id)
	require.NoError(t, err)
	assert.Zero(t, count)
	_, err = c.GetMessage(id, 0)
	assert.ErrorIs(t, err, ErrMessageOutOfBounds)
}

func TestMessagesSurviveClosure(t *testing.T) {
	c, _ := newTestCourt()
	id, err := c.CreateTrial(addr(1), addr(2), addr(3))
	require.NoError(t, err)

	_, err = c.SendMessage(id, addr(2), handle(1), handle(2), []byte("proof"))
	require.NoError(t, err)
	require.NoError(t, c.CloseTrial(id, addr(1)))

	entry, err := c.GetMessage(id, 0)
	require.NoError(t, err)
	assert.Equal(t, handle(1), entry.EncryptedContent)

	count, err := c.MessageCount(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestGetMessageBounds(t *testing.T) {
	c, _ := newTestCourt()
	id, err := c.CreateTrial(addr(1), addr(2), addr(3))
	require.NoError(t, err)

	_, err = c.GetMessage(id, 0)
	assert.ErrorIs(t, err, ErrMessageOutOfBounds)

	_, err = c.GetMessage(99, 0)
	assert.ErrorIs(t, err, ErrTrialDoesNotExist)
	_, err = c.MessageCount(99)
	assert.ErrorIs(t, err, ErrTrialDoesNotExist)
}

func TestTrialsForAddress(t *testing.T) {
	c, _ := newTestCourt()

	first, err := c.CreateTrial(addr(1), addr(2), addr(3))
	require.NoError(t, err)
	second, err := c.CreateTrial(addr(4), addr(2), addr(5))
	require.NoError(t, err)

	assert.Equal(t, []uint64{first, second}, c.TrialsForAddress(addr(2)))
	assert.Equal(t, []uint64{first}, c.TrialsForAddress(addr(3)))
	assert.Empty(t, c.TrialsForAddress(addr(9)))

	// Closure does not remove trials from the listing.
	require.NoError(t, c.CloseTrial(first, addr(1)))
	assert.Equal(t, []uint64{first, second}, c.TrialsForAddress(addr(2)))
}

func TestRestoreRebuildsState(t *testing.T) {
	c, _ := newTestCourt()
	first, err := c.CreateTrial(addr(1), addr(2), addr(3))
	require.NoError(t, err)
	second, err := c.CreateTrial(addr(4), addr(5), addr(6))
	require.NoError(t, err)
	_, err = c.SendMessage(first, addr(2), handle(1), handle(2), []byte("proof"))
	require.NoError(t, err)
	require.NoError(t, c.CloseTrial(second, addr(4)))

	var trials []Trial
	messages := make(map[uint64][]MessageEntry)
	for _, id := range []uint64{first, second} {
		trial, err := c.GetTrial(id)
		require.NoError(t, err)
		trials = append(trials, trial)
		for i := uint64(0); i < trial.MessageCount; i++ {
			entry, err := c.GetMessage(id, i)
			require.NoError(t, err)
			messages[id] = append(messages[id], entry)
		}
	}

	restored, _ := newTestCourt()
	require.NoError(t, restored.Restore(trials, messages))

	trial, err := restored.GetTrial(first)
	require.NoError(t, err)
	assert.True(t, trial.IsActive)
	assert.Equal(t, uint64(1), trial.MessageCount)

	entry, err := restored.GetMessage(first, 0)
	require.NoError(t, err)
	assert.Equal(t, handle(1), entry.EncryptedContent)

	trial, err = restored.GetTrial(second)
	require.NoError(t, err)
	assert.False(t, trial.IsActive)

	assert.Equal(t, []uint64{first}, restored.TrialsForAddress(addr(2)))

	// Allocation continues after the highest restored id.
	next, err := restored.CreateTrial(addr(7), addr(8), addr(9))
	require.NoError(t, err)
	assert.Equal(t, second+1, next)
}

func TestRestoreValidation(t *testing.T) {
	trial := Trial{ID: 1, Judge: addr(1), PartyA: addr(2), PartyB: addr(3), IsActive: true, MessageCount: 2}

	c, _ := newTestCourt()
	err := c.Restore([]Trial{trial}, nil)
	assert.Error(t, err)

	c2, _ := newTestCourt()
	_, err = c2.CreateTrial(addr(1), addr(2), addr(3))
	require.NoError(t, err)
	trial.MessageCount = 0
	err = c2.Restore([]Trial{trial}, nil)
	assert.Error(t, err)
}

func TestConcurrentSendsStayDense(t *testing.T) {
	c, _ := newTestCourt()
	id, err := c.CreateTrial(addr(1), addr(2), addr(3))
	require.NoError(t, err)

	const writers = 8
	const perWriter = 25
	done := make(chan struct{})
	for w := 0; w < writers; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < perWriter; i++ {
				_, err := c.SendMessage(id, addr(2), handle(byte(w)), handle(byte(w+100)), []byte("proof"))
				if err != nil {
					t.Error(err)
					return
				}
			}
		}(w)
	}
	for w := 0; w < writers; w++ {
		<-done
	}

	count, err := c.MessageCount(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(writers*perWriter), count)

	// Every index up to the count is readable.
	for i := uint64(0); i < count; i++ {
		_, err := c.GetMessage(id, i)
		require.NoError(t, err)
	}
}
