package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/parksync/internal/api/handler"
	"github.com/mcoot/parksync/internal/api/middleware"
	"github.com/mcoot/parksync/internal/api/sse"
	basemw "github.com/mcoot/parksync/internal/middleware"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger *slog.Logger
	Status handler.StatusProvider
	// Events serves /events when set
	Events *sse.Hub
}

// NewRouter creates the status API router
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	statusHandler := handler.NewStatusHandler(cfg.Status)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(basemw.Logging(cfg.Logger))

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/info", statusHandler.Info).Methods(http.MethodGet)
	api.HandleFunc("/players", statusHandler.Players).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}", statusHandler.Player).Methods(http.MethodGet)
	api.HandleFunc("/groups", statusHandler.Groups).Methods(http.MethodGet)
	api.HandleFunc("/groups/{id}", statusHandler.Group).Methods(http.MethodGet)
	if cfg.Events != nil {
		api.Handle("/events", cfg.Events).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
