package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/scribe/internal/apperr"
)

const maxBodyBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

func failure(message string) FailureResponse {
	return FailureResponse{Success: false, Message: message}
}

// writeError renders err as a failure envelope. Authentication failures are
// 401; every other contract failure travels in a 200 envelope.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusOK
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrUpstream):
		slog.Error(op+" failed",
			slog.String("request_id", requestID(r)),
			slog.String("error", err.Error()))
	}
	writeJSON(w, status, failure(apperr.Message(err)))
}

// decodeBody reads a JSON body into v. A missing or malformed body leaves v
// zero so field validation reports it.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Debug("ignoring unreadable request body", slog.String("error", err.Error()))
	}
}
