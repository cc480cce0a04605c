// Package web serves the rendered import graph and live updates over HTTP.
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/pyimport-graph/pkg/analysis"
	"github.com/ritzau/pyimport-graph/pkg/graph"
	"github.com/ritzau/pyimport-graph/pkg/logging"
	"github.com/ritzau/pyimport-graph/pkg/pubsub"
	"github.com/ritzau/pyimport-graph/pkg/render"
)

//go:embed static/*
var staticFiles embed.FS

const reloadScript = `<script src="/static/reload.js"></script>`

// NodeInfo describes one node for the node API.
type NodeInfo struct {
	Label      string   `json:"label"`
	Kind       string   `json:"kind"`
	OutDegree  int      `json:"outDegree"`
	InDegree   int      `json:"inDegree"`
	Hub        bool     `json:"hub"`
	Imports    []string `json:"imports"`
	ImportedBy []string `json:"importedBy"`
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	publisher *pubsub.SSEPublisher
	metrics   *analysis.Metrics
	title     string

	mu       sync.RWMutex
	snapshot *analysis.Snapshot
}

// NewServer creates a new web server. metrics may be nil.
func NewServer(title string, metrics *analysis.Metrics) *Server {
	ssePublisher := pubsub.NewSSEPublisher()

	// status: buffer recent progress, replay only the current state
	ssePublisher.ConfigureTopic(pubsub.TopicStatus, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})
	// graph: new subscribers learn the current version
	ssePublisher.ConfigureTopic(pubsub.TopicGraph, pubsub.TopicConfig{
		BufferSize: 1,
		ReplayAll:  false,
	})

	s := &Server{
		router:    mux.NewRouter(),
		publisher: ssePublisher,
		metrics:   metrics,
		title:     title,
	}
	s.setupRoutes()
	return s
}

// PublishStatus publishes a scan status event
func (s *Server) PublishStatus(state, message string, step, total int) {
	status := pubsub.Status{
		State:   state,
		Message: message,
		Step:    step,
		Total:   total,
	}
	if err := s.publisher.Publish(pubsub.TopicStatus, state, status); err != nil {
		logging.Warn("failed to publish status", "state", state, "error", err)
	}
}

// PublishSnapshot makes snap the served graph and notifies subscribers.
func (s *Server) PublishSnapshot(snap *analysis.Snapshot) {
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	summary := pubsub.GraphSummary{
		Version: snap.Version,
		Reason:  snap.Reason,
		Files:   snap.Scan.Files,
		Skipped: len(snap.Scan.Skipped),
		Nodes:   snap.Graph.NodeCount(),
		Edges:   snap.Graph.EdgeCount(),
		Hubs:    len(snap.Graph.Hubs(snap.Threshold)),
	}
	if err := s.publisher.Publish(pubsub.TopicGraph, "ready", summary); err != nil {
		logging.Warn("failed to publish graph", "version", snap.Version, "error", err)
	}
}

// Snapshot returns the graph currently served, or nil before the first run.
func (s *Server) Snapshot() *analysis.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Handler returns the router wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
	s.router.HandleFunc("/graph.svg", s.handleFormat(render.FormatSVG, "image/svg+xml")).Methods("GET")
	s.router.HandleFunc("/graph.dot", s.handleFormat(render.FormatDOT, "text/vnd.graphviz; charset=utf-8")).Methods("GET")
	s.router.HandleFunc("/api/graph", s.handleFormat(render.FormatJSON, "application/json")).Methods("GET")
	s.router.HandleFunc("/api/node/{label}", s.handleNode).Methods("GET")

	s.router.HandleFunc("/api/subscribe/status", s.handleSubscribe(pubsub.TopicStatus)).Methods("GET")
	s.router.HandleFunc("/api/subscribe/graph", s.handleSubscribe(pubsub.TopicGraph)).Methods("GET")

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
}

func (s *Server) options(snap *analysis.Snapshot, format render.Format) render.Options {
	return render.Options{
		Format:    format,
		Threshold: snap.Threshold,
		Title:     s.title,
		Root:      snap.Root,
		Scan:      snap.Scan,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.Snapshot()
	if snap == nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>%s</title></head><body><p>Scanning...</p>%s</body></html>\n",
			html.EscapeString(s.title), reloadScript)
		return
	}

	var buf bytes.Buffer
	if err := render.HTML(&buf, snap.Graph, s.options(snap, render.FormatHTML)); err != nil {
		logging.ErrorContext(r.Context(), "failed to render page", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	page := buf.String()
	if i := strings.LastIndex(page, "</body>"); i >= 0 {
		page = page[:i] + reloadScript + "\n" + page[i:]
	} else {
		page += reloadScript
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, page)
}

func (s *Server) handleFormat(format render.Format, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.Snapshot()
		if snap == nil {
			http.Error(w, "no graph yet", http.StatusServiceUnavailable)
			return
		}

		var buf bytes.Buffer
		if err := render.Render(&buf, snap.Graph, s.options(snap, format)); err != nil {
			logging.ErrorContext(r.Context(), "failed to render graph", "format", string(format), "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Write(buf.Bytes())
	}
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	snap := s.Snapshot()
	if snap == nil {
		http.Error(w, "no graph yet", http.StatusServiceUnavailable)
		return
	}

	label := mux.Vars(r)["label"]
	g := snap.Graph
	if !g.HasNode(label) {
		http.Error(w, fmt.Sprintf("node %q not found", label), http.StatusNotFound)
		return
	}

	out := g.OutDegree(label)
	info := NodeInfo{
		Label:      label,
		Kind:       g.Kind(label).String(),
		OutDegree:  out,
		InDegree:   g.InDegree(label),
		Hub:        graph.IsHub(out, snap.Threshold),
		Imports:    g.Imports(label),
		ImportedBy: g.ImportedBy(label),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

func (s *Server) handleSubscribe(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Set SSE headers
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flusher, _ := w.(http.Flusher)

		// Send initial comment to establish connection (Safari compatibility)
		fmt.Fprintf(w, ": connected\n\n")
		if flusher != nil {
			flusher.Flush()
		}

		sub, err := s.publisher.Subscribe(r.Context(), topic)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		defer sub.Close()

		for {
			select {
			case <-r.Context().Done():
				return
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				if err := pubsub.WriteSSE(w, event); err != nil {
					logging.DebugContext(r.Context(), "error writing SSE event", "topic", topic, "error", err)
					return
				}
				if flusher != nil {
					flusher.Flush()
				}
			}
		}
	}
}

// Start serves on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	// SSE streams end when the publisher closes their subscriptions
	s.publisher.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down web server: %w", err)
	}
	logging.Info("web server stopped")
	return nil
}
