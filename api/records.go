package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/talentmatch/internal/apperr"
	"github.com/garnizeh/talentmatch/internal/match"
	"github.com/garnizeh/talentmatch/internal/persist"
	"github.com/garnizeh/talentmatch/pkg/models"
	"github.com/garnizeh/talentmatch/pkg/repository"
)

// RecordHandler serves CRUD and match lookups for one entity type T, built
// from request bodies of type I. C is the counterpart type matches return.
type RecordHandler[T repository.Record, I any, C match.Summarizer] struct {
	coord    *persist.Coordinator[T, I]
	notifier *match.Notifier[T, C]
}

func NewRecordHandler[T repository.Record, I any, C match.Summarizer](coord *persist.Coordinator[T, I], notifier *match.Notifier[T, C]) *RecordHandler[T, I, C] {
	return &RecordHandler[T, I, C]{coord: coord, notifier: notifier}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *RecordHandler[T, I, C]) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput[I](w, r)
	if !ok {
		return
	}
	rec, err := h.coord.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, h.writeStatus(http.StatusCreated), rec)
}

func (h *RecordHandler[T, I, C]) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.coord.Get(r.Context(), keyFromPath(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *RecordHandler[T, I, C]) Update(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput[I](w, r)
	if !ok {
		return
	}
	rec, err := h.coord.Update(r.Context(), keyFromPath(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, h.writeStatus(http.StatusOK), rec)
}

func (h *RecordHandler[T, I, C]) Delete(w http.ResponseWriter, r *http.Request) {
	rec, err := h.coord.Delete(r.Context(), keyFromPath(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, h.writeStatus(http.StatusOK), rec)
}

// Matches runs the matcher for a stored record, publishing the summary the
// same way the worker does, and returns the counterparts found.
func (h *RecordHandler[T, I, C]) Matches(w http.ResponseWriter, r *http.Request) {
	rec, err := h.coord.Get(r.Context(), keyFromPath(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	found, err := h.notifier.Match(r.Context(), *rec)
	if err != nil {
		writeError(w, err)
		return
	}
	if found == nil {
		found = []C{}
	}
	writeJSON(w, http.StatusOK, found)
}

// writeStatus is 202 for queued writes, since nothing is stored yet.
func (h *RecordHandler[T, I, C]) writeStatus(direct int) int {
	if h.coord.Mode() == persist.Deferred {
		return http.StatusAccepted
	}
	return direct
}

// decodeInput reads the request body. An empty body yields a nil input,
// which the validators reject with their missing-data message.
func decodeInput[I any](w http.ResponseWriter, r *http.Request) (*I, bool) {
	var in I
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, true
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return nil, false
	}
	return &in, true
}

func keyFromPath(r *http.Request) models.Key {
	vars := mux.Vars(r)
	return models.Key{ID: vars["id"], Segment: vars["segment"]}
}

func writeError(w http.ResponseWriter, err error) {
	if apperr.IsUser(err) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: apperr.Message(err)})
		return
	}
	logger.Error("request failed", slog.Any("err", err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}
