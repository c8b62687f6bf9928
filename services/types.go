package services

import (
	"github.com/bytebloomg/PrivateCourt/codec"
	"github.com/bytebloomg/PrivateCourt/court"
	"github.com/bytebloomg/PrivateCourt/crypto"
	"github.com/bytebloomg/PrivateCourt/grant"
)

// CreateTrialRequest opens a new trial. The signer of the envelope becomes
// the judge.
type CreateTrialRequest struct {
	PartyA crypto.Address `json:"party_a"`
	PartyB crypto.Address `json:"party_b"`
}

// CreateTrialResponse carries the allocated trial id.
type CreateTrialResponse struct {
	TrialID uint64 `json:"trial_id"`
}

// CloseTrialRequest closes a trial. Only the judge's signature is accepted.
type CloseTrialRequest struct {
	TrialID uint64 `json:"trial_id"`
}

// SendMessageRequest posts an encrypted statement. The handles and proof come
// from a prior encrypt-input call bound to the envelope's signer.
type SendMessageRequest struct {
	TrialID       uint64       `json:"trial_id"`
	ContentHandle codec.Handle `json:"content_handle"`
	AuthorHandle  codec.Handle `json:"author_handle"`
	Proof         []byte       `json:"proof"`
}

// SendMessageResponse carries the ledger index of the appended entry.
type SendMessageResponse struct {
	TrialID uint64 `json:"trial_id"`
	Index   uint64 `json:"index"`
}

// TrialResponse is the public trial record.
type TrialResponse struct {
	Trial court.Trial `json:"trial"`
}

// MessageResponse is one ledger entry with its index.
type MessageResponse struct {
	TrialID uint64             `json:"trial_id"`
	Index   uint64             `json:"index"`
	Entry   court.MessageEntry `json:"entry"`
}

// MessageListResponse is a trial's full ledger in index order.
type MessageListResponse struct {
	TrialID  uint64               `json:"trial_id"`
	Count    uint64               `json:"count"`
	Messages []court.MessageEntry `json:"messages"`
}

// TrialListResponse lists the trials an account participates in.
type TrialListResponse struct {
	Account  crypto.Address `json:"account"`
	TrialIDs []uint64       `json:"trial_ids"`
}

// ContractResponse identifies the contract the court's ciphertexts are
// bound to. Clients need it to encrypt inputs and build grants.
type ContractResponse struct {
	Contract crypto.Address `json:"contract"`
}

// FieldPayload is one plaintext field of an encrypt-input request.
// Type selects which of Text and Address is used.
type FieldPayload struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Address crypto.Address `json:"address,omitempty"`
}

const (
	// FieldPayloadText marks a FieldPayload carrying a short text value.
	FieldPayloadText = "text"
	// FieldPayloadAddress marks a FieldPayload carrying an address value.
	FieldPayloadAddress = "address"
)

// EncryptInputRequest asks the oracle to encrypt fields under a contract on
// behalf of a submitter. The returned proof is only valid for that pair.
type EncryptInputRequest struct {
	Contract  crypto.Address `json:"contract"`
	Submitter crypto.Address `json:"submitter"`
	Fields    []FieldPayload `json:"fields"`
}

// EncryptInputResponse carries the handles and their binding proof.
type EncryptInputResponse struct {
	Handles []codec.Handle `json:"handles"`
	Proof   []byte         `json:"proof"`
}

// UserDecryptRequest is the oracle-side decrypt call.
type UserDecryptRequest struct {
	Call *grant.UserDecryptCall `json:"call"`
}

// UserDecryptResponse maps each revealed handle to its sealed value.
type UserDecryptResponse struct {
	Values map[codec.Handle]*crypto.SealedValue `json:"values"`
}

// StatusResponse acknowledges a mutation that returns no data.
type StatusResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
