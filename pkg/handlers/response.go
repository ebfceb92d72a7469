package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/GSN-OMG/Prism/pkg/redaction"
)

// WriteJSON writes data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// ErrorResponse writes a machine-readable error code plus a human message.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// SensitiveDataResponse reports a guard rejection. Only the rule name and
// structural path are exposed, never the matched text.
func SensitiveDataResponse(w http.ResponseWriter, unredacted *redaction.UnredactedDataError) error {
	return WriteJSON(w, http.StatusBadRequest, map[string]string{
		"error": "sensitive_data_detected",
		"rule":  unredacted.RuleName,
		"path":  unredacted.JSONPath,
	})
}
