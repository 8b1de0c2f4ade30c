package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/patternlens/transaction-pattern-backend/internal/domain/errors"
)

// Response is the envelope every endpoint returns. The cached, mock, and
// partial flags tell the caller how the payload was produced; they are
// omitted when false.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Cached    bool        `json:"cached,omitempty"`
	Mock      bool        `json:"mock,omitempty"`
	Partial   bool        `json:"partial,omitempty"`
	Message   string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	resp.Timestamp = time.Now().UTC()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("response encode failed", "error", err.Error())
	}
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// writeError maps domain errors to HTTP status codes and hides internal
// detail behind a generic message.
func writeError(w http.ResponseWriter, err error) {
	status := errors.GetStatusCode(err)
	message := err.Error()
	if status >= 500 {
		message = "an internal error occurred"
	}
	writeJSON(w, status, Response{Success: false, Message: message})
}
