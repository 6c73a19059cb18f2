// Package rest exposes the HTTP surface around the room: the socket endpoint,
// media upload and download, health and metrics.
package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	RouteSocket  = "/ws"
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
	RouteUpload  = "/upload"
	RouteMedia   = "/media/{key}"
)

// OnlineCounter reports how many connections the room holds.
type OnlineCounter interface {
	OnlineCount() int
}

func NewRouter(log *slog.Logger, socket http.Handler, media *MediaHandler,
	room OnlineCounter, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.Handle(RouteSocket, socket).Methods(http.MethodGet)
	r.HandleFunc(RouteHealth, healthz(room)).Methods(http.MethodGet)
	r.Handle(RouteMetrics, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{ErrorLog: slog.NewLogLogger(log.Handler(), slog.LevelError)})).
		Methods(http.MethodGet)
	r.HandleFunc(RouteUpload, media.Upload).Methods(http.MethodPost)
	r.HandleFunc(RouteMedia, media.Get).Methods(http.MethodGet, http.MethodHead)
	return r
}

func healthz(room OnlineCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "online": room.OnlineCount()})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
