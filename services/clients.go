package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytebloomg/PrivateCourt/codec"
	"github.com/bytebloomg/PrivateCourt/court"
	"github.com/bytebloomg/PrivateCourt/crypto"
	"github.com/bytebloomg/PrivateCourt/grant"
)

const defaultClientTimeout = 30 * time.Second

// CourtClient talks to a CourtService. Mutations are signed with the
// client's private key; the service derives the acting address from it.
type CourtClient struct {
	baseURL    string
	signingKey crypto.PrivateKey
	httpClient *http.Client
}

// NewCourtClient creates a client for the court service at baseURL.
func NewCourtClient(baseURL string, signingKey crypto.PrivateKey) *CourtClient {
	return &CourtClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		signingKey: signingKey,
		httpClient: &http.Client{Timeout: defaultClientTimeout},
	}
}

// Address returns the account address the client acts as.
func (c *CourtClient) Address() (crypto.Address, error) {
	pub, err := c.signingKey.PublicKey()
	if err != nil {
		return crypto.Address{}, err
	}
	return crypto.AddressFromPublicKey(pub), nil
}

// Contract fetches the contract identity the court is bound to.
func (c *CourtClient) Contract(ctx context.Context) (crypto.Address, error) {
	resp, err := doJSON[ContractResponse](ctx, c.httpClient, http.MethodGet, c.baseURL+"/court/contract", nil)
	if err != nil {
		return crypto.Address{}, err
	}
	return resp.Contract, nil
}

// CreateTrial opens a trial with the client as judge and returns its id.
func (c *CourtClient) CreateTrial(ctx context.Context, partyA, partyB crypto.Address) (uint64, error) {
	signed, err := NewSigned(c.signingKey, &CreateTrialRequest{PartyA: partyA, PartyB: partyB})
	if err != nil {
		return 0, err
	}
	resp, err := doJSON[CreateTrialResponse](ctx, c.httpClient, http.MethodPost, c.baseURL+"/court/trials", signed)
	if err != nil {
		return 0, err
	}
	return resp.TrialID, nil
}

// CloseTrial closes a trial the client judges.
func (c *CourtClient) CloseTrial(ctx context.Context, trialID uint64) error {
	signed, err := NewSigned(c.signingKey, &CloseTrialRequest{TrialID: trialID})
	if err != nil {
		return err
	}
	_, err = doJSON[StatusResponse](ctx, c.httpClient, http.MethodPost, c.baseURL+"/court/trials/close", signed)
	return err
}

// SendMessage posts an encrypted statement and returns its ledger index.
// The handles and proof must come from an encrypt-input call bound to this
// client's address.
func (c *CourtClient) SendMessage(ctx context.Context, trialID uint64, content, author codec.Handle, proof []byte) (uint64, error) {
	signed, err := NewSigned(c.signingKey, &SendMessageRequest{
		TrialID:       trialID,
		ContentHandle: content,
		AuthorHandle:  author,
		Proof:         proof,
	})
	if err != nil {
		return 0, err
	}
	resp, err := doJSON[SendMessageResponse](ctx, c.httpClient, http.MethodPost, c.baseURL+"/court/messages", signed)
	if err != nil {
		return 0, err
	}
	return resp.Index, nil
}

// GetTrial fetches one trial record.
func (c *CourtClient) GetTrial(ctx context.Context, trialID uint64) (court.Trial, error) {
	resp, err := doJSON[TrialResponse](ctx, c.httpClient, http.MethodGet,
		fmt.Sprintf("%s/court/trials/%d", c.baseURL, trialID), nil)
	if err != nil {
		return court.Trial{}, err
	}
	return resp.Trial, nil
}

// GetMessage fetches one ledger entry.
func (c *CourtClient) GetMessage(ctx context.Context, trialID, index uint64) (court.MessageEntry, error) {
	resp, err := doJSON[MessageResponse](ctx, c.httpClient, http.MethodGet,
		fmt.Sprintf("%s/court/trials/%d/messages/%d", c.baseURL, trialID, index), nil)
	if err != nil {
		return court.MessageEntry{}, err
	}
	return resp.Entry, nil
}

// ListMessages fetches a trial's full ledger.
func (c *CourtClient) ListMessages(ctx context.Context, trialID uint64) (*MessageListResponse, error) {
	return doJSON[MessageListResponse](ctx, c.httpClient, http.MethodGet,
		fmt.Sprintf("%s/court/trials/%d/messages", c.baseURL, trialID), nil)
}

// TrialsForAddress fetches the trial ids an account participates in.
func (c *CourtClient) TrialsForAddress(ctx context.Context, account crypto.Address) ([]uint64, error) {
	resp, err := doJSON[TrialListResponse](ctx, c.httpClient, http.MethodGet,
		fmt.Sprintf("%s/court/accounts/%s/trials", c.baseURL, account), nil)
	if err != nil {
		return nil, err
	}
	return resp.TrialIDs, nil
}

// OracleClient talks to an OracleService. It satisfies both the
// codec.Encryptor and grant.Oracle boundaries, so encryption and decryption
// flows can run against a remote runtime unchanged.
type OracleClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOracleClient creates a client for the oracle service at baseURL.
func NewOracleClient(baseURL string) *OracleClient {
	return &OracleClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultClientTimeout},
	}
}

// EncryptInput submits typed fields for encryption under the given binding.
func (o *OracleClient) EncryptInput(contract, submitter crypto.Address, fields []codec.Field) (*codec.EncryptedInput, error) {
	payloads := make([]FieldPayload, 0, len(fields))
	for i, f := range fields {
		p, err := payloadFromField(f)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		payloads = append(payloads, p)
	}

	req := &EncryptInputRequest{Contract: contract, Submitter: submitter, Fields: payloads}
	resp, err := doJSON[EncryptInputResponse](context.Background(), o.httpClient, http.MethodPost,
		o.baseURL+"/oracle/encrypt-input", req)
	if err != nil {
		return nil, err
	}
	return &codec.EncryptedInput{Handles: resp.Handles, Proof: resp.Proof}, nil
}

// UserDecrypt submits a grant-backed decrypt call and returns the sealed
// values per handle.
func (o *OracleClient) UserDecrypt(ctx context.Context, call *grant.UserDecryptCall) (map[codec.Handle]*crypto.SealedValue, error) {
	resp, err := doJSON[UserDecryptResponse](ctx, o.httpClient, http.MethodPost,
		o.baseURL+"/oracle/user-decrypt", &UserDecryptRequest{Call: call})
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// payloadFromField converts a typed field back into its wire payload.
func payloadFromField(f codec.Field) (FieldPayload, error) {
	switch f.Type {
	case codec.FieldText:
		text, err := codec.DecodeText(f.Value)
		if err != nil {
			return FieldPayload{}, err
		}
		return FieldPayload{Type: FieldPayloadText, Text: text}, nil
	case codec.FieldAddress:
		addr, err := codec.DecodeAddress(f.Value)
		if err != nil {
			return FieldPayload{}, err
		}
		return FieldPayload{Type: FieldPayloadAddress, Address: addr}, nil
	default:
		return FieldPayload{}, fmt.Errorf("unknown field type %d", f.Type)
	}
}

// doJSON runs one JSON request/response round trip. Non-200 responses are
// surfaced as errors carrying the service's error body.
func doJSON[R any](ctx context.Context, hc *http.Client, method, url string, body any) (*R, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%s %s: %s (status %d)", method, url, apiErr.Error, resp.StatusCode)
		}
		return nil, fmt.Errorf("%s %s: status %d", method, url, resp.StatusCode)
	}

	var out R
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &out, nil
}
