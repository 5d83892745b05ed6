package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chrisjgf/portfolio/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeAppError maps the error taxonomy onto HTTP statuses. Locked sessions
// and failed decryption both come back 401; the body never distinguishes a
// wrong password from a corrupt blob.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrLocked):
		writeJSON(w, http.StatusUnauthorized, errorBody("vault is locked"))
	case errors.Is(err, apperr.ErrAuthentication):
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid password"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusBadRequest, errorBody("vault already exists"))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrSchema):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid vault file format"))
	case errors.Is(err, apperr.ErrInvalidIndex):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid index"))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
