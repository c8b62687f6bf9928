package court

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/bytebloomg/PrivateCourt/codec"
	"github.com/bytebloomg/PrivateCourt/crypto"
)

// Trial is the authorization record binding one judge and two parties.
// Roles are fixed at creation; only IsActive and MessageCount change.
type Trial struct {
	ID           uint64         `json:"id"`
	Judge        crypto.Address `json:"judge"`
	PartyA       crypto.Address `json:"party_a"`
	PartyB       crypto.Address `json:"party_b"`
	IsActive     bool           `json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	MessageCount uint64         `json:"message_count"`
}

// HasParticipant reports whether the account holds any role in the trial.
func (t *Trial) HasParticipant(account crypto.Address) bool {
	return account == t.Judge || account == t.PartyA || account == t.PartyB
}

// MessageEntry is one posted encrypted statement. Entries are immutable once
// appended and persist after trial closure for audit reads.
type MessageEntry struct {
	Sender           crypto.Address `json:"sender"`
	EncryptedContent codec.Handle   `json:"encrypted_content"`
	EncryptedAuthor  codec.Handle   `json:"encrypted_author"`
	Timestamp        time.Time      `json:"timestamp"`
}

// InputVerifier checks that an encrypted input's proof binds its handles to
// the expected (contract, submitter) pair.
type InputVerifier interface {
	VerifyInput(proof []byte, handles []codec.Handle, contract, submitter crypto.Address) error
}

// AccessGrantor marks accounts as entitled to request decryption of a handle.
type AccessGrantor interface {
	Allow(handle codec.Handle, accounts ...crypto.Address) error
}

// EncryptionBackend is the encryption runtime as seen by the court: input
// proof verification for the write-guard and per-handle access grants.
type EncryptionBackend interface {
	InputVerifier
	AccessGrantor
}

// Court is the authorization store and message ledger for one contract
// identity. All mutations are serialized; reads may run concurrently and
// observe either the pre- or post-mutation state, never a mix.
type Court struct {
	contract crypto.Address
	backend  EncryptionBackend
	now      func() time.Time

	mu        sync.RWMutex
	nextID    uint64
	trials    map[uint64]*Trial
	byAccount map[crypto.Address][]uint64
	messages  map[uint64][]MessageEntry
}

// NewCourt creates an empty court bound to a contract identity. The backend
// validates encrypted inputs and records decryption access grants.
func NewCourt(contract crypto.Address, backend EncryptionBackend) *Court {
	return &Court{
		contract:  contract,
		backend:   backend,
		now:       time.Now,
		nextID:    1,
		trials:    make(map[uint64]*Trial),
		byAccount: make(map[crypto.Address][]uint64),
		messages:  make(map[uint64][]MessageEntry),
	}
}

// Contract returns the contract identity this court's ciphertexts are bound to.
func (c *Court) Contract() crypto.Address {
	return c.contract
}

// CreateTrial allocates the next trial id for the given roles. Ids start at 1,
// increase monotonically and are never reused, even after closure. All three
// roles are indexed for TrialsForAddress lookups.
func (c *Court) CreateTrial(judge, partyA, partyB crypto.Address) (uint64, error) {
	if judge.IsZero() {
		return 0, fmt.Errorf("%w: judge", ErrZeroAddress)
	}
	if partyA.IsZero() {
		return 0, fmt.Errorf("%w: partyA", ErrZeroAddress)
	}
	if partyB.IsZero() {
		return 0, fmt.Errorf("%w: partyB", ErrZeroAddress)
	}
	if partyA == partyB {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateParty, partyA)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nextID == math.MaxUint64 {
		return 0, ErrIDSpaceExhausted
	}

	id := c.nextID
	c.nextID++

	c.trials[id] = &Trial{
		ID:        id,
		Judge:     judge,
		PartyA:    partyA,
		PartyB:    partyB,
		IsActive:  true,
		CreatedAt: c.now(),
	}
	c.indexParticipantLocked(judge, id)
	c.indexParticipantLocked(partyA, id)
	c.indexParticipantLocked(partyB, id)

	return id, nil
}

// indexParticipantLocked records a trial id for an account exactly once, even
// when the account holds multiple roles in the same trial.
func (c *Court) indexParticipantLocked(account crypto.Address, id uint64) {
	ids := c.byAccount[account]
	if len(ids) > 0 && ids[len(ids)-1] == id {
		return
	}
	c.byAccount[account] = append(ids, id)
}

// CloseTrial transitions a trial from Active to Closed. Only the judge may
// close, and only once; the transition is one-way. The participant index is
// not touched, so closed trials remain listed and readable.
func (c *Court) CloseTrial(id uint64, caller crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	trial, ok := c.trials[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrTrialDoesNotExist, id)
	}
	if caller != trial.Judge {
		return fmt.Errorf("%w: caller %s", ErrNotJudge, caller)
	}
	if !trial.IsActive {
		return fmt.Errorf("%w: id %d", ErrTrialAlreadyClosed, id)
	}

	trial.IsActive = false
	return nil
}

// AuthorizeWrite is the write-guard: it reports whether the caller may post
// to the trial right now. It never mutates state.
func (c *Court) AuthorizeWrite(id uint64, caller crypto.Address) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authorizeWriteLocked(id, caller)
}

func (c *Court) authorizeWriteLocked(id uint64, caller crypto.Address) error {
	trial, ok := c.trials[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrTrialDoesNotExist, id)
	}
	if !trial.IsActive {
		return fmt.Errorf("%w: id %d", ErrTrialAlreadyClosed, id)
	}
	if !trial.HasParticipant(caller) {
		return fmt.Errorf("%w: sender %s", ErrSenderNotParticipant, caller)
	}
	return nil
}

// SendMessage appends an encrypted statement to a trial's ledger and returns
// its index. The write-guard and the input proof are checked immediately
// before the append; decryption access for all three participants is granted
// before any state changes so a failed grant leaves no partial update.
func (c *Court) SendMessage(id uint64, sender crypto.Address, content, author codec.Handle, proof []byte) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.authorizeWriteLocked(id, sender); err != nil {
		return 0, err
	}

	if err := c.backend.VerifyInput(proof, []codec.Handle{content, author}, c.contract, sender); err != nil {
		return 0, fmt.Errorf("input proof rejected: %w", err)
	}

	trial := c.trials[id]
	participants := []crypto.Address{trial.Judge, trial.PartyA, trial.PartyB}
	if err := c.backend.Allow(content, participants...); err != nil {
		return 0, fmt.Errorf("granting content access: %w", err)
	}
	if err := c.backend.Allow(author, participants...); err != nil {
		return 0, fmt.Errorf("granting author access: %w", err)
	}

	index := trial.MessageCount
	c.messages[id] = append(c.messages[id], MessageEntry{
		Sender:           sender,
		EncryptedContent: content,
		EncryptedAuthor:  author,
		Timestamp:        c.now(),
	})
	trial.MessageCount++

	return index, nil
}

// GetTrial returns a copy of the trial record.
func (c *Court) GetTrial(id uint64) (Trial, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	trial, ok := c.trials[id]
	if !ok {
		return Trial{}, fmt.Errorf("%w: id %d", ErrTrialDoesNotExist, id)
	}
	return *trial, nil
}

// GetMessage returns the entry at a zero-based index within a trial.
func (c *Court) GetMessage(id, index uint64) (MessageEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	trial, ok := c.trials[id]
	if !ok {
		return MessageEntry{}, fmt.Errorf("%w: id %d", ErrTrialDoesNotExist, id)
	}
	if index >= trial.MessageCount {
		return MessageEntry{}, fmt.Errorf("%w: index %d, count %d", ErrMessageOutOfBounds, index, trial.MessageCount)
	}
	return c.messages[id][index], nil
}

// MessageCount returns the number of entries in a trial's ledger.
func (c *Court) MessageCount(id uint64) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	trial, ok := c.trials[id]
	if !ok {
		return 0, fmt.Errorf("%w: id %d", ErrTrialDoesNotExist, id)
	}
	return trial.MessageCount, nil
}

// TrialsForAddress returns the ids of every trial where the account holds a
// role, in creation order. The result is a copy and may be empty.
func (c *Court) TrialsForAddress(account crypto.Address) []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := c.byAccount[account]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

// Restore rebuilds the court from persisted state. It is meant for startup
// only: the court must be empty, and trials must be supplied with their full
// message sequences.
func (c *Court) Restore(trials []Trial, messages map[uint64][]MessageEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.trials) != 0 {
		return fmt.Errorf("restore into non-empty court")
	}

	maxID := uint64(0)
	for i := range trials {
		t := trials[i]
		entries := messages[t.ID]
		if uint64(len(entries)) != t.MessageCount {
			return fmt.Errorf("trial %d: %d persisted messages, count says %d", t.ID, len(entries), t.MessageCount)
		}
		c.trials[t.ID] = &t
		c.messages[t.ID] = append([]MessageEntry(nil), entries...)
		if t.ID > maxID {
			maxID = t.ID
		}
	}

	// Rebuild the participant index in creation (id) order.
	for id := uint64(1); id <= maxID; id++ {
		t, ok := c.trials[id]
		if !ok {
			continue
		}
		c.indexParticipantLocked(t.Judge, id)
		c.indexParticipantLocked(t.PartyA, id)
		c.indexParticipantLocked(t.PartyB, id)
	}

	c.nextID = maxID + 1
	return nil
}
