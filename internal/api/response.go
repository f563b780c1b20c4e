package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/najdeno/internal/lifecycle"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// errorResponse is the body of every error reply.
type errorResponse struct {
	Error string         `json:"error"`
	Kind  lifecycle.Kind `json:"kind"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response for kind.
func jsonError(w http.ResponseWriter, kind lifecycle.Kind, message string) {
	jsonResponse(w, statusFor(kind), errorResponse{Error: message, Kind: kind})
}

// writeError replies with err's kind and message. Unclassified errors are
// logged and reported as store failures.
func writeError(w http.ResponseWriter, op string, err error) {
	var e *lifecycle.Error
	if !errors.As(err, &e) {
		e = lifecycle.StoreFailure(op, err)
	}
	jsonError(w, e.Kind, e.Message)
}

func statusFor(kind lifecycle.Kind) int {
	switch kind {
	case lifecycle.KindUnauthenticated:
		return http.StatusUnauthorized
	case lifecycle.KindForbidden:
		return http.StatusForbidden
	case lifecycle.KindNotFound:
		return http.StatusNotFound
	case lifecycle.KindValidation:
		return http.StatusBadRequest
	case lifecycle.KindInvalidOperation:
		return http.StatusConflict
	case lifecycle.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusServiceUnavailable
	}
}

// decodeJSON decodes a JSON request body into target. Unknown fields are
// rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return lifecycle.NewError(lifecycle.KindValidation, "invalid request body: %v", err)
	}
	return nil
}

// pathID parses the {id} path value.
func pathID(r *http.Request, what string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, lifecycle.NewError(lifecycle.KindValidation, "invalid %s id", what)
	}
	return id, nil
}
