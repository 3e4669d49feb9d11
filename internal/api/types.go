package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/patitas/patitas-backend/internal/animals"
	"github.com/patitas/patitas-backend/internal/chat"
	"github.com/patitas/patitas-backend/internal/db/entities"
	"github.com/patitas/patitas-backend/internal/feed"
	"github.com/patitas/patitas-backend/internal/moderation"
	"github.com/patitas/patitas-backend/internal/session"
	"github.com/patitas/patitas-backend/internal/stories"
	"github.com/patitas/patitas-backend/internal/wizard"
)

type errorResponse struct {
	Error string `json:"error"`
}

type feedResponse struct {
	Items   []entities.Animal `json:"items"`
	HasMore bool              `json:"has_more"`
	Filter  feed.Filter       `json:"filter"`
}

type reportResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Created bool   `json:"created"`
}

type markReadResponse struct {
	Updated int64 `json:"updated"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps domain errors onto the HTTP status taxonomy:
// validation 400, auth 401, policy 403, missing 404, duplicates 409,
// cooldowns 429, everything else 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNoToken), errors.Is(err, session.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, session.ErrBanned),
		errors.Is(err, wizard.ErrBanned):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, animals.ErrForbidden),
		errors.Is(err, stories.ErrForbidden),
		errors.Is(err, moderation.ErrForbidden),
		errors.Is(err, chat.ErrNotParticipant):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, animals.ErrNotFound),
		errors.Is(err, stories.ErrNotFound),
		errors.Is(err, moderation.ErrNotFound),
		errors.Is(err, moderation.ErrTargetMissing),
		errors.Is(err, chat.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, wizard.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, wizard.ErrNoImages),
		errors.Is(err, wizard.ErrTooManyImages),
		errors.Is(err, wizard.ErrNoAntiSaleAck),
		errors.Is(err, wizard.ErrIncomplete),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrMessageTooLong),
		errors.Is(err, chat.ErrSelfChat),
		errors.Is(err, moderation.ErrEmptyReason),
		errors.Is(err, stories.ErrMissingField):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dest interface{}) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}
