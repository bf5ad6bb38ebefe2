package api

import "net/http"

// health reports liveness. It carries no dependencies so it answers even
// when the database or model API is down.
func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
