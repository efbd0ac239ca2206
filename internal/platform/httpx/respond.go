// Package httpx provides HTTP response utilities implementing the
// novadent envelope convention: every body carries a success flag and,
// on failure, an error message.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the wire shape of every API response.
type Envelope struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Data    map[string]any `json:"-"`
}

// MarshalJSON flattens Data fields next to the success/error keys.
func (e Envelope) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Data)+2)
	for k, v := range e.Data {
		out[k] = v
	}
	out["success"] = e.Success
	if e.Error != "" {
		out["error"] = e.Error
	}
	return json.Marshal(out)
}

// OK sends a success envelope with the given payload fields.
func OK(w http.ResponseWriter, status int, data map[string]any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

// Fail sends a failure envelope with the given message.
func Fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Error: message})
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
