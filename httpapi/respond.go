package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// envelope is the uniform response shape. Extra payload fields are merged
// next to success and message.
type envelope map[string]any

func respond(w http.ResponseWriter, status int, body envelope) {
	if body == nil {
		body = envelope{}
	}
	if _, ok := body["success"]; !ok {
		body["success"] = status < 400
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respond(w, status, envelope{"message": message})
}
