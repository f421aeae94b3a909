package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmenanno/inventory-browser/internal/config"
	"github.com/mmenanno/inventory-browser/internal/items"
	"github.com/mmenanno/inventory-browser/internal/stats"
	"github.com/mmenanno/inventory-browser/internal/store"
)

// Server holds the application state
type Server struct {
	store      store.ItemStore
	config     *config.Config
	statsCache *stats.Cache
	limiter    *RateLimiter
	registry   *prometheus.Registry
	version    string
}

// NewServer creates a new server instance. The stats cache is owned by the
// caller so that other invalidation sources (the data file watcher) can
// share it.
func NewServer(st store.ItemStore, cache *stats.Cache, cfg *config.Config, reg *prometheus.Registry, version string) *Server {
	srv := &Server{
		store:      st,
		config:     cfg,
		statsCache: cache,
		registry:   reg,
		version:    version,
	}

	if cfg.RateLimitRPS > 0 {
		srv.limiter = NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	return srv
}

// HandleListItems serves GET /api/items?q=&limit=
func (s *Server) HandleListItems(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ReadAll(r.Context())
	if err != nil {
		log.Printf("[%s] Failed to read items: %v", GetRequestID(r.Context()), err)
		respondError(w, http.StatusInternalServerError, "Failed to read items")
		return
	}

	results := items.Filter(list, r.URL.Query().Get("q"))
	if limit, ok := parseLimit(r.URL.Query().Get("limit")); ok {
		results = items.Limit(results, limit)
	}
	if results == nil {
		results = []items.Item{}
	}

	respondJSON(w, http.StatusOK, results)
}

// HandleGetItem serves GET /api/items/{id}
func (s *Server) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseItemID(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusNotFound, "Item not found")
		return
	}

	item, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Item not found")
		return
	}
	if err != nil {
		log.Printf("[%s] Failed to get item %d: %v", GetRequestID(r.Context()), id, err)
		respondError(w, http.StatusInternalServerError, "Failed to read items")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// HandleCreateItem serves POST /api/items
func (s *Server) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "Request body must be a JSON object")
		return
	}

	newItem, err := items.Validate(raw)
	if err != nil {
		var verr *items.ValidationError
		if errors.As(err, &verr) {
			respondValidationError(w, verr)
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.store.Create(r.Context(), newItem)
	if err != nil {
		log.Printf("[%s] Failed to create item: %v", GetRequestID(r.Context()), err)
		respondError(w, http.StatusInternalServerError, "Failed to save item")
		return
	}

	// The file watcher will fire as well; this covers backends it can't see
	s.statsCache.Invalidate()

	respondJSON(w, http.StatusCreated, created)
}

// HandleStats serves GET /api/stats
func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	snap, cached, err := s.statsCache.Get(r.Context())
	if err != nil {
		log.Printf("[%s] Failed to calculate stats: %v", GetRequestID(r.Context()), err)
		respondError(w, http.StatusInternalServerError, "Failed to calculate stats")
		return
	}

	respondJSON(w, http.StatusOK, StatsResponse{
		Total:        snap.Total,
		AveragePrice: snap.AveragePrice,
		Categories:   snap.CategoryCount,
		LastUpdated:  snap.ComputedAt,
		Cached:       cached,
	})
}

// HandleHealth reports whether the item store is readable
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK

	storeCheck := StoreHealthCheck{Status: "ok", Backend: s.config.StoreBackend}
	list, err := s.store.ReadAll(r.Context())
	if err != nil {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
		storeCheck.Status = "error"
		storeCheck.Error = err.Error()
	} else {
		storeCheck.Items = len(list)
	}

	respondJSON(w, code, HealthResponse{
		Status:  status,
		Version: s.version,
		Checks: HealthChecks{
			Store: storeCheck,
			StatsCache: CacheHealthCheck{
				Status: "ok",
				TTL:    s.statsCache.TTL().String(),
			},
		},
	})
}
