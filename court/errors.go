package court

import "errors"

var (
	// ErrZeroAddress is returned when a trial role is the null address.
	ErrZeroAddress = errors.New("trial role is the zero address")

	// ErrDuplicateParty is returned when both parties are the same address.
	ErrDuplicateParty = errors.New("party addresses must differ")

	// ErrTrialDoesNotExist is returned for unallocated trial ids.
	ErrTrialDoesNotExist = errors.New("trial does not exist")

	// ErrTrialAlreadyClosed is returned when mutating a closed trial.
	ErrTrialAlreadyClosed = errors.New("trial already closed")

	// ErrNotJudge is returned when a non-judge attempts to close a trial.
	ErrNotJudge = errors.New("caller is not the trial judge")

	// ErrSenderNotParticipant is returned when a message sender is not the
	// judge or one of the parties.
	ErrSenderNotParticipant = errors.New("sender is not a trial participant")

	// ErrMessageOutOfBounds is returned for message indices at or past the
	// trial's message count.
	ErrMessageOutOfBounds = errors.New("message index out of bounds")

	// ErrIDSpaceExhausted is returned when no further trial id can be
	// allocated. Ids are never reused, so this is permanent.
	ErrIDSpaceExhausted = errors.New("trial id space exhausted")
)
