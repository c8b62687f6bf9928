package grant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytebloomg/PrivateCourt/codec"
	"github.com/bytebloomg/PrivateCourt/crypto"
)

// ErrIncompleteReveal is returned when the oracle's response is missing any
// requested handle. The attempt fails as a whole; no partial results are
// returned.
var ErrIncompleteReveal = errors.New("oracle response missing requested handle")

// UserDecryptCall is the request submitted to the decryption oracle. It
// carries only the viewing public key; the private half stays with the
// caller and is used to unseal the response.
type UserDecryptCall struct {
	Targets        []HandleTarget   `json:"targets"`
	ViewingKey     []byte           `json:"viewing_key"`
	Signature      crypto.Signature `json:"signature"`
	Contracts      []crypto.Address `json:"contracts"`
	Requester      crypto.Address   `json:"requester"`
	RequesterKey   crypto.PublicKey `json:"requester_key"`
	StartTimestamp uint64           `json:"start_timestamp"`
	DurationDays   uint64           `json:"duration_days"`
}

// TypedRequest reassembles the signed structure from the call fields.
func (c *UserDecryptCall) TypedRequest() *TypedRequest {
	return &TypedRequest{
		PublicKey:      c.ViewingKey,
		Contracts:      c.Contracts,
		StartTimestamp: c.StartTimestamp,
		DurationDays:   c.DurationDays,
	}
}

// Oracle is the external decryption oracle boundary. It returns one sealed
// value per handle it agrees to reveal, keyed by handle.
type Oracle interface {
	UserDecrypt(ctx context.Context, call *UserDecryptCall) (map[codec.Handle]*crypto.SealedValue, error)
}

// Decryptor runs grant-authorized decrypt attempts against an oracle.
// It is stateless and safe for concurrent use.
type Decryptor struct {
	oracle Oracle
}

// NewDecryptor creates a Decryptor backed by the given oracle.
func NewDecryptor(oracle Oracle) *Decryptor {
	return &Decryptor{oracle: oracle}
}

// Decrypt submits a grant to the oracle and returns the revealed plaintext
// bytes per handle. Every requested handle must be present in the response;
// otherwise the attempt fails with ErrIncompleteReveal and no values are
// returned.
func (d *Decryptor) Decrypt(ctx context.Context, g *DecryptionGrant) (map[codec.Handle][]byte, error) {
	call := &UserDecryptCall{
		Targets:        g.Targets,
		ViewingKey:     g.Request.PublicKey,
		Signature:      g.Signature,
		Contracts:      g.Request.Contracts,
		Requester:      g.Requester,
		RequesterKey:   g.RequesterKey,
		StartTimestamp: g.Request.StartTimestamp,
		DurationDays:   g.Request.DurationDays,
	}

	sealed, err := d.oracle.UserDecrypt(ctx, call)
	if err != nil {
		return nil, err
	}

	revealed := make(map[codec.Handle][]byte, len(g.Targets))
	for _, target := range g.Targets {
		sv, ok := sealed[target.Handle]
		if !ok || sv == nil {
			return nil, fmt.Errorf("%w: %s", ErrIncompleteReveal, target.Handle)
		}
		plaintext, err := crypto.Open(g.Keypair.PrivateKey, sv)
		if err != nil {
			return nil, fmt.Errorf("unsealing %s: %w", target.Handle, err)
		}
		revealed[target.Handle] = plaintext
	}

	return revealed, nil
}

// DecryptMessage runs the full flow for one court message: build a grant over
// the content and author handles, decrypt, and decode the text and the
// ephemeral author address.
func (d *Decryptor) DecryptMessage(ctx context.Context, signer Signer, contract crypto.Address, content, author codec.Handle) (string, crypto.Address, error) {
	g, err := Build(signer, []HandleTarget{
		{Handle: content, Contract: contract},
		{Handle: author, Contract: contract},
	}, time.Now(), DefaultValidityDays)
	if err != nil {
		return "", crypto.Address{}, err
	}

	revealed, err := d.Decrypt(ctx, g)
	if err != nil {
		return "", crypto.Address{}, err
	}

	text, err := codec.DecodeText(revealed[content])
	if err != nil {
		return "", crypto.Address{}, fmt.Errorf("decoding content: %w", err)
	}
	addr, err := codec.DecodeAddress(revealed[author])
	if err != nil {
		return "", crypto.Address{}, fmt.Errorf("decoding author: %w", err)
	}

	return text, addr, nil
}
