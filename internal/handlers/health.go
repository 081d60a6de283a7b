package handlers

import "net/http"

// Health reports that the frontend is serving
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok","service":"tickets-web"}`))
}
