package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/puyokura/odysseychat/model"
)

// NewRouter wires the websocket endpoint and the facts API.
func NewRouter(hub *Hub, store *Store, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	api := &factsAPI{store: store, log: log}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, log, http.StatusOK, map[string]any{
			"status":  "running",
			"message": hub.config.ServerName + " is live",
			"endpoints": map[string]string{
				"websocket": "/ws",
				"health":    "/health",
				"facts":     "/api/facts",
			},
		})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ai := "canned"
		if _, ok := hub.responder.(*EinoResponder); ok {
			ai = "initialized"
		}
		RespondJSON(w, log, http.StatusOK, map[string]any{
			"status":       "healthy",
			"database":     "connected",
			"ai":           ai,
			"active_users": len(hub.Who()),
		})
	})
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r)
	})

	r.Route("/api/facts", func(fr chi.Router) {
		fr.Get("/", api.list)
		fr.Delete("/{id}", api.delete)
		fr.Patch("/{id}", api.update)
	})

	return r
}

type factsAPI struct {
	store *Store
	log   *zap.Logger
}

func (a *factsAPI) list(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		RespondJSON(w, a.log, http.StatusBadRequest, model.APIResponse[[]model.Fact]{Error: "username query parameter is required"})
		return
	}
	facts, err := a.store.ListFacts(r.Context(), username)
	if err != nil {
		a.log.Error("list facts", zap.String("username", username), zap.Error(err))
		RespondJSON(w, a.log, http.StatusInternalServerError, model.APIResponse[[]model.Fact]{Error: "Internal server error fetching facts"})
		return
	}
	resp := model.APIResponse[[]model.Fact]{OK: true, Data: facts}
	if len(facts) == 0 {
		resp.Note = "no facts found or facts table missing"
	}
	RespondJSON(w, a.log, http.StatusOK, resp)
}

func (a *factsAPI) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.store.DeleteFact(r.Context(), id); err != nil {
		a.respondStoreError(w, err)
		return
	}
	RespondJSON(w, a.log, http.StatusOK, model.APIResponse[any]{OK: true, Result: map[string]string{"id": id}})
}

func (a *factsAPI) update(w http.ResponseWriter, r *http.Request) {
	var patch FactPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		RespondJSON(w, a.log, http.StatusBadRequest, model.APIResponse[any]{Error: "invalid JSON body"})
		return
	}
	fact, err := a.store.UpdateFact(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		a.respondStoreError(w, err)
		return
	}
	RespondJSON(w, a.log, http.StatusOK, model.APIResponse[any]{OK: true, Result: fact})
}

func (a *factsAPI) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrFactNotFound) {
		RespondJSON(w, a.log, http.StatusNotFound, model.APIResponse[any]{Error: err.Error()})
		return
	}
	a.log.Error("facts store", zap.Error(err))
	RespondJSON(w, a.log, http.StatusInternalServerError, model.APIResponse[any]{Error: err.Error()})
}

// RespondJSON writes payload as a JSON response.
func RespondJSON(w http.ResponseWriter, log *zap.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn("failed to encode response", zap.Error(err))
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
