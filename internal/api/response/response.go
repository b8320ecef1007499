package response

import (
	"encoding/json"
	"net/http"
)

// Success is the body returned by accepted domain requests.
type Success struct {
	IsSuccessful bool `json:"isSuccessful"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

func WriteSuccess(w http.ResponseWriter) {
	WriteJSON(w, http.StatusOK, Success{IsSuccessful: true})
}
