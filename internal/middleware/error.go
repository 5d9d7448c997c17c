package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"flower-shop/internal/domain"

	"go.uber.org/zap"
)

// ConflictMessage is shown when a write loses an optimistic concurrency race.
const ConflictMessage = "This record was changed by someone else. Review the current values and try again."

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// RespondWithError sends a structured error response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithErrorDetails(w, statusCode, message, nil)
}

// RespondWithErrorDetails sends a structured error response with additional details
func RespondWithErrorDetails(w http.ResponseWriter, statusCode int, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: ErrorDetail{
			Code:      http.StatusText(statusCode),
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	json.NewEncoder(w).Encode(response)
}

// RespondWithValidationErrors sends validation error response
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	details := make(map[string]interface{})
	details["validation_errors"] = errors

	RespondWithErrorDetails(w, http.StatusBadRequest, "validation failed", details)
}

// RespondWithConflict reports a stale version together with the record as it
// is now stored, so the client can show both.
func RespondWithConflict(w http.ResponseWriter, current interface{}) {
	var details map[string]interface{}
	if current != nil {
		details = map[string]interface{}{"current": current}
	}
	RespondWithErrorDetails(w, http.StatusConflict, ConflictMessage, details)
}

// RespondWithServiceError maps an error returned by a service to a response.
// Unknown errors are logged and reported as 500.
func RespondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var inUse *domain.CategoryInUseError

	switch {
	case errors.As(err, &inUse):
		RespondWithErrorDetails(w, http.StatusConflict,
			fmt.Sprintf("Cannot delete. This category has %d flower(s).", inUse.Count),
			map[string]interface{}{"dependent_flowers": inUse.Count},
		)
	case errors.Is(err, domain.ErrNotFound):
		RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		RespondWithConflict(w, nil)
	case errors.Is(err, domain.ErrDuplicateName):
		RespondWithValidationErrors(w, []ValidationError{{Field: "name", Message: "Name must be unique"}})
	case errors.Is(err, domain.ErrInvalidCategory):
		RespondWithValidationErrors(w, []ValidationError{{Field: "category_id", Message: "Category does not exist"}})
	case errors.Is(err, domain.ErrInvalidImage):
		RespondWithValidationErrors(w, []ValidationError{{Field: "image_url", Message: "Image can only be kept or cleared"}})
	default:
		logger.Error("Request failed", zap.Error(err))
		RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
