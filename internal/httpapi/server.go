// Package httpapi exposes the sync engine to a local UI or scripting
// clients: run control, an SSE event feed, history and CSV export.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/driftwatch/audiosync/internal/config"
	"github.com/driftwatch/audiosync/internal/engine"
	"github.com/driftwatch/audiosync/internal/media"
	"github.com/driftwatch/audiosync/internal/results"
)

type runtimeSettingsStore interface {
	GetRuntimeSettings() (config.RuntimeSettings, error)
	UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type runtimeSettingsApplier func(next config.RuntimeSettings) error

type prober interface {
	Probe(ctx context.Context, path string) (media.ProbeInfo, error)
}

type Server struct {
	engine   *engine.Engine
	store    *results.Store
	prober   prober
	settings runtimeSettingsStore
	apply    runtimeSettingsApplier

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithProber(p prober) Option {
	return func(s *Server) {
		s.prober = p
	}
}

func WithRuntimeSettingsStore(store runtimeSettingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

func WithRuntimeSettingsApplier(apply runtimeSettingsApplier) Option {
	return func(s *Server) {
		s.apply = apply
	}
}

func NewServer(eng *engine.Engine, store *results.Store, opts ...Option) *Server {
	s := &Server{
		engine: eng,
		store:  store,
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/files", s.handleListFiles)
	s.mux.HandleFunc("/api/sync/start", s.handleSyncStart)
	s.mux.HandleFunc("/api/sync/stream", s.handleSyncStream)
	s.mux.HandleFunc("/api/sync/cancel", s.handleSyncCancel)
	s.mux.HandleFunc("/api/sync/status", s.handleSyncStatus)
	s.mux.HandleFunc("/api/probe", s.handleProbe)
	s.mux.HandleFunc("/api/history", s.handleHistory)
	s.mux.HandleFunc("/api/history/", s.handleHistoryEntry)
	s.mux.HandleFunc("/api/export", s.handleExport)
	s.mux.HandleFunc("/api/settings", s.handleSettings)
}
