// Package api serves the HTTP trigger and manifest inspection endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mfenderov/docsync/internal/ingestion"
	"github.com/mfenderov/docsync/internal/manifest"
	"github.com/mfenderov/docsync/internal/runlock"
)

// Syncer runs every configured scheme.
type Syncer interface {
	RunAll(ctx context.Context) ingestion.Results
}

// Server wires the HTTP routes.
type Server struct {
	syncer    Syncer
	manifests manifest.Store
	lock      *runlock.Lock
	metrics   http.Handler
}

// New creates a server. metrics may be nil.
func New(syncer Syncer, manifests manifest.Store, lock *runlock.Lock, metrics http.Handler) *Server {
	return &Server{syncer: syncer, manifests: manifests, lock: lock, metrics: metrics}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.health)
	r.Post("/gather-data", s.gatherData)
	r.Route("/files", func(r chi.Router) {
		r.Get("/", s.listFiles)
		r.Get("/{fileName}", s.getFile)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return r
}

type schemeCounts struct {
	AddedGrants int    `json:"addedGrants"`
	ChunkCount  int    `json:"chunkCount"`
	Error       string `json:"error,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

func (s *Server) gatherData(w http.ResponseWriter, r *http.Request) {
	release, err := s.lock.TryAcquire()
	if errors.Is(err, runlock.ErrLocked) {
		writeJSON(w, http.StatusConflict, map[string]string{"message": err.Error()})
		return
	}
	if err != nil {
		slog.Error("failed to acquire run lock", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}
	defer release()

	slog.Info("gather data started", "at", time.Now().UTC().Format(time.RFC3339))

	// The run outlives a disconnected client.
	results := s.syncer.RunAll(context.WithoutCancel(r.Context()))

	counts := make(map[string]schemeCounts, len(results))
	for _, res := range results {
		counts[res.Scheme] = schemeCounts{
			AddedGrants: res.DocumentsAdded,
			ChunkCount:  res.ChunkCount,
			Error:       res.Error,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "success", "results": counts})
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	keys, err := s.manifests.List(r.Context())
	if err != nil {
		slog.Error("failed to list manifests", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "success", "entities": keys})
}

func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "fileName")

	keys, err := s.manifests.List(r.Context())
	if err != nil {
		slog.Error("failed to list manifests", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}
	if !slices.Contains(keys, name) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}

	m, err := s.manifests.Get(r.Context(), name)
	if err != nil {
		slog.Error("failed to load manifest", "file", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "success", "entity": m})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

// requestLogger logs each request with slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}
