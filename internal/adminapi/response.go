package adminapi

import (
	"encoding/json"
	"net/http"
	"time"
)

// response is the envelope every admin endpoint replies with, grounded on
// marmos91-dittofs/pkg/api.Response.
type response struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, response{Status: "ok", Timestamp: time.Now().UTC(), Data: data})
}

func fail(w http.ResponseWriter, status int, errMsg string) {
	writeJSON(w, status, response{Status: "error", Timestamp: time.Now().UTC(), Error: errMsg})
}
