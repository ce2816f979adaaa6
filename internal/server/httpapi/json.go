package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/postboard/internal/common"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body must not be empty")

// decodeJSON rejects unknown fields and trailing data, so clients cannot
// smuggle attributes such as authorId into a request.
func decodeJSON(w http.ResponseWriter, r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %w", common.ErrorValidation, errEmptyBody)
		}
		return fmt.Errorf("%w: invalid request body: %v", common.ErrorValidation, err)
	}
	if decoder.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", common.ErrorValidation)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// statusFor maps the common error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorConstraint):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides storage detail. Validation, auth and conflict
// messages are written for clients; everything else collapses to its
// sentinel text.
func publicMessage(err error, status int) string {
	switch {
	case status == http.StatusInternalServerError:
		return common.ErrorInternal.Error()
	case errors.Is(err, common.ErrorConstraint):
		return common.ErrorConstraint.Error()
	case errors.Is(err, common.ErrorNotFound):
		return common.ErrorNotFound.Error()
	case errors.Is(err, common.ErrorForbidden):
		return common.ErrorForbidden.Error()
	default:
		return err.Error()
	}
}

func (s *Server) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed", "error", err)
	}
	writeError(w, status, publicMessage(err, status))
}
