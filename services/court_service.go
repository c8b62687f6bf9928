package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"

	"github.com/bytebloomg/PrivateCourt/court"
	"github.com/bytebloomg/PrivateCourt/crypto"
	"github.com/bytebloomg/PrivateCourt/fhe"
)

var (
	trialsCreatedTotal  = metrics.NewCounter("privatecourt_trials_created_total")
	trialsClosedTotal   = metrics.NewCounter("privatecourt_trials_closed_total")
	messagesPostedTotal = metrics.NewCounter("privatecourt_messages_posted_total")
	writesRejectedTotal = metrics.NewCounter("privatecourt_writes_rejected_total")
)

// CourtService serves the trial registry and message ledger over HTTP.
// Mutations require a Signed envelope; the signer's derived address is the
// acting account, so callers cannot act on behalf of other identities.
type CourtService struct {
	court *court.Court
	store TrialStore
	log   *slog.Logger
}

// NewCourtService wires a court to its persistence store.
func NewCourtService(c *court.Court, store TrialStore, log *slog.Logger) *CourtService {
	return &CourtService{
		court: c,
		store: store,
		log:   log.With("service", "court"),
	}
}

// RegisterRoutes registers the court endpoints.
func (s *CourtService) RegisterRoutes(r chi.Router) {
	r.Get("/court/contract", s.handleContract)
	r.Post("/court/trials", s.handleCreateTrial)
	r.Post("/court/trials/close", s.handleCloseTrial)
	r.Post("/court/messages", s.handleSendMessage)
	r.Get("/court/trials/{id}", s.handleGetTrial)
	r.Get("/court/trials/{id}/messages", s.handleListMessages)
	r.Get("/court/trials/{id}/messages/{index}", s.handleGetMessage)
	r.Get("/court/accounts/{address}/trials", s.handleAccountTrials)
}

func (s *CourtService) handleContract(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &ContractResponse{Contract: s.court.Contract()})
}

func (s *CourtService) handleCreateTrial(w http.ResponseWriter, r *http.Request) {
	signed, err := DecodeMessage[Signed[CreateTrialRequest]](r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	req, signer, err := signed.Recover()
	if err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}

	judge := crypto.AddressFromPublicKey(signer)
	id, err := s.court.CreateTrial(judge, req.PartyA, req.PartyB)
	if err != nil {
		s.rejected(w, "create trial", err)
		return
	}

	s.persistTrial(id)
	trialsCreatedTotal.Inc()
	s.log.Info("trial created", "trial_id", id, "judge", judge)
	writeJSON(w, http.StatusOK, &CreateTrialResponse{TrialID: id})
}

func (s *CourtService) handleCloseTrial(w http.ResponseWriter, r *http.Request) {
	signed, err := DecodeMessage[Signed[CloseTrialRequest]](r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	req, signer, err := signed.Recover()
	if err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}

	caller := crypto.AddressFromPublicKey(signer)
	if err := s.court.CloseTrial(req.TrialID, caller); err != nil {
		s.rejected(w, "close trial", err)
		return
	}

	s.persistTrial(req.TrialID)
	trialsClosedTotal.Inc()
	s.log.Info("trial closed", "trial_id", req.TrialID)
	writeJSON(w, http.StatusOK, &StatusResponse{Success: true})
}

func (s *CourtService) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	signed, err := DecodeMessage[Signed[SendMessageRequest]](r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	req, signer, err := signed.Recover()
	if err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}

	sender := crypto.AddressFromPublicKey(signer)
	index, err := s.court.SendMessage(req.TrialID, sender, req.ContentHandle, req.AuthorHandle, req.Proof)
	if err != nil {
		s.rejected(w, "send message", err)
		return
	}

	if entry, err := s.court.GetMessage(req.TrialID, index); err == nil {
		if err := s.store.SaveMessage(req.TrialID, index, &entry); err != nil {
			s.log.Error("persisting message failed", "trial_id", req.TrialID, "index", index, "err", err)
		}
	}
	s.persistTrial(req.TrialID)

	messagesPostedTotal.Inc()
	s.log.Info("message posted", "trial_id", req.TrialID, "index", index, "sender", sender)
	writeJSON(w, http.StatusOK, &SendMessageResponse{TrialID: req.TrialID, Index: index})
}

func (s *CourtService) handleGetTrial(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	trial, err := s.court.GetTrial(id)
	if err != nil {
		writeError(w, statusForCourtError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, &TrialResponse{Trial: trial})
}

func (s *CourtService) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	count, err := s.court.MessageCount(id)
	if err != nil {
		writeError(w, statusForCourtError(err), err)
		return
	}

	entries := make([]court.MessageEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		entry, err := s.court.GetMessage(id, i)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		entries = append(entries, entry)
	}
	writeJSON(w, http.StatusOK, &MessageListResponse{TrialID: id, Count: count, Messages: entries})
}

func (s *CourtService) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	index, err := parseUintParam(r, "index")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	entry, err := s.court.GetMessage(id, index)
	if err != nil {
		writeError(w, statusForCourtError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, &MessageResponse{TrialID: id, Index: index, Entry: entry})
}

func (s *CourtService) handleAccountTrials(w http.ResponseWriter, r *http.Request) {
	account, err := crypto.AddressFromHex(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ids := s.court.TrialsForAddress(account)
	writeJSON(w, http.StatusOK, &TrialListResponse{Account: account, TrialIDs: ids})
}

// persistTrial snapshots a trial into the store. Persistence failures are
// logged, not surfaced: the in-memory court stays authoritative and the
// request already succeeded.
func (s *CourtService) persistTrial(id uint64) {
	trial, err := s.court.GetTrial(id)
	if err != nil {
		return
	}
	if err := s.store.SaveTrial(&trial); err != nil {
		s.log.Error("persisting trial failed", "trial_id", id, "err", err)
	}
}

func (s *CourtService) rejected(w http.ResponseWriter, op string, err error) {
	writesRejectedTotal.Inc()
	s.log.Warn("request rejected", "op", op, "err", err)
	writeError(w, statusForCourtError(err), err)
}

// statusForCourtError maps the error taxonomy onto HTTP statuses: validation
// failures to 400, authorization failures to 403, missing state to 404 and
// state conflicts to 409.
func statusForCourtError(err error) int {
	switch {
	case errors.Is(err, court.ErrZeroAddress),
		errors.Is(err, court.ErrDuplicateParty),
		errors.Is(err, fhe.ErrInvalidProof),
		errors.Is(err, fhe.ErrUnknownHandle):
		return http.StatusBadRequest
	case errors.Is(err, court.ErrNotJudge),
		errors.Is(err, court.ErrSenderNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, court.ErrTrialDoesNotExist),
		errors.Is(err, court.ErrMessageOutOfBounds):
		return http.StatusNotFound
	case errors.Is(err, court.ErrTrialAlreadyClosed):
		return http.StatusConflict
	case errors.Is(err, court.ErrIDSpaceExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func parseUintParam(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, name), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, &ErrorResponse{Error: err.Error()})
}
