package response

import (
	"net/http"

	"github.com/goccy/go-json"
)

// ErrorBody is the envelope of every failed request. Manifest and Logs carry
// partial results of a failed backup or restore.
type ErrorBody struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error"`
	Manifest any    `json:"manifest,omitempty"`
	Logs     any    `json:"logs,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes {ok:false, error:code}.
func WriteError(w http.ResponseWriter, status int, code string) {
	WriteJSON(w, status, ErrorBody{Error: code})
}

// WriteErrorBody writes a prepared error envelope. OK is forced to false.
func WriteErrorBody(w http.ResponseWriter, status int, body ErrorBody) {
	body.OK = false
	WriteJSON(w, status, body)
}
