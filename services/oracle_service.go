package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"

	"github.com/bytebloomg/PrivateCourt/codec"
	"github.com/bytebloomg/PrivateCourt/fhe"
)

var (
	inputsEncryptedTotal  = metrics.NewCounter("privatecourt_oracle_inputs_encrypted_total")
	decryptsGrantedTotal  = metrics.NewCounter("privatecourt_oracle_decrypts_granted_total")
	decryptsRejectedTotal = metrics.NewCounter("privatecourt_oracle_decrypts_rejected_total")
)

// OracleService exposes the encryption runtime: input encryption for writers
// and grant-verified decryption for readers.
type OracleService struct {
	runtime *fhe.MockRuntime
	log     *slog.Logger
}

// NewOracleService wraps a runtime.
func NewOracleService(runtime *fhe.MockRuntime, log *slog.Logger) *OracleService {
	return &OracleService{
		runtime: runtime,
		log:     log.With("service", "oracle"),
	}
}

// RegisterRoutes registers the oracle endpoints.
func (s *OracleService) RegisterRoutes(r chi.Router) {
	r.Post("/oracle/encrypt-input", s.handleEncryptInput)
	r.Post("/oracle/user-decrypt", s.handleUserDecrypt)
}

func (s *OracleService) handleEncryptInput(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeMessage[EncryptInputRequest](r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	fields := make([]codec.Field, 0, len(req.Fields))
	for i, p := range req.Fields {
		field, err := p.toField()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("field %d: %w", i, err))
			return
		}
		fields = append(fields, field)
	}

	input, err := codec.BuildEncryptedInput(s.runtime, req.Contract, req.Submitter, fields)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	inputsEncryptedTotal.Inc()
	writeJSON(w, http.StatusOK, &EncryptInputResponse{Handles: input.Handles, Proof: input.Proof})
}

func (s *OracleService) handleUserDecrypt(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeMessage[UserDecryptRequest](r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Call == nil {
		writeError(w, http.StatusBadRequest, errors.New("missing decrypt call"))
		return
	}

	values, err := s.runtime.UserDecrypt(r.Context(), req.Call)
	if err != nil {
		decryptsRejectedTotal.Inc()
		s.log.Warn("decrypt rejected", "requester", req.Call.Requester, "err", err)
		writeError(w, statusForOracleError(err), err)
		return
	}

	decryptsGrantedTotal.Inc()
	s.log.Info("decrypt granted", "requester", req.Call.Requester, "handles", len(values))
	writeJSON(w, http.StatusOK, &UserDecryptResponse{Values: values})
}

// statusForOracleError maps runtime refusals onto HTTP statuses. Everything
// the requester could fix is 400 or 403; unknown handles are 404.
func statusForOracleError(err error) int {
	switch {
	case errors.Is(err, fhe.ErrInvalidProof),
		errors.Is(err, fhe.ErrRequesterMismatch),
		errors.Is(err, fhe.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, fhe.ErrGrantNotYetValid),
		errors.Is(err, fhe.ErrGrantExpired),
		errors.Is(err, fhe.ErrContractNotInGrant),
		errors.Is(err, fhe.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, fhe.ErrUnknownHandle):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// toField converts the wire payload into a typed codec field.
func (p *FieldPayload) toField() (codec.Field, error) {
	switch p.Type {
	case FieldPayloadText:
		return codec.TextField(p.Text)
	case FieldPayloadAddress:
		return codec.AddressField(p.Address), nil
	default:
		return codec.Field{}, fmt.Errorf("unknown field payload type %q", p.Type)
	}
}
