package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vibecheck/api/internal/core/domain"
	"github.com/vibecheck/api/internal/core/ports"
)

// User-visible failure messages (the widget shows these verbatim).
const (
	MsgLoadFailed = "Failed to load votes"
	MsgVoteFailed = "Vote failed, please try again"
)

// EventScope resolves the event id from the request's query parameters,
// falling back to the default sentinel when absent.
func EventScope(r *http.Request) string {
	event := strings.TrimSpace(r.URL.Query().Get("event"))
	if event == "" {
		return domain.DefaultEvent
	}
	return event
}

type VoteHandler struct {
	service ports.VoteService
}

func NewVoteHandler(service ports.VoteService) *VoteHandler {
	return &VoteHandler{
		service: service,
	}
}

type voteRequest struct {
	Vibe string `json:"vibe"`
}

type countsResponse struct {
	Event  string        `json:"event"`
	Counts domain.Counts `json:"counts"`
}

func (h *VoteHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	vibe, err := domain.ParseVibe(req.Vibe)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	input := ports.SubmitVoteInput{
		EventID: EventScope(r),
		Vibe:    vibe,
	}

	vote, err := h.service.Submit(r.Context(), input)
	if err != nil {
		http.Error(w, MsgVoteFailed, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(vote); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *VoteHandler) GetCounts(w http.ResponseWriter, r *http.Request) {
	event := EventScope(r)

	counts, err := h.service.Counts(r.Context(), event)
	if err != nil {
		if errors.Is(err, domain.ErrLoadFailed) {
			http.Error(w, MsgLoadFailed, http.StatusInternalServerError)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(countsResponse{Event: event, Counts: counts}); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
