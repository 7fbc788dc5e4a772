package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vincentbai/pageview-bridge/internal/app"
	"github.com/vincentbai/pageview-bridge/internal/metrics"
	"github.com/vincentbai/pageview-bridge/internal/models"
)

const maxBodyBytes = 1 << 20

// PageviewReader exposes the locally recorded pageviews.
type PageviewReader interface {
	RecentPageviews(limit int) ([]models.Pageview, error)
	PageCounts() ([]models.PageCount, error)
}

type Option func(*Server)

// WithPageviews enables the /pageviews endpoints.
func WithPageviews(reader PageviewReader) Option {
	return func(s *Server) { s.pageviews = reader }
}

func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = gatherer }
}

// WithStaticDir hosts the built page application, falling back to
// index.html for client-side routes.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// WithQueueSize bounds how many page events may wait for delivery.
func WithQueueSize(size int) Option {
	return func(s *Server) { s.queueSize = size }
}

func WithIngressMetrics(m *metrics.Ingress) Option {
	return func(s *Server) { s.ingress = m }
}

type Server struct {
	app       *app.App
	address   string
	pageviews PageviewReader
	gatherer  prometheus.Gatherer
	staticDir string
	queueSize int
	ingress   *metrics.Ingress
	queue     *dispatcher
	server    *http.Server
}

// NewServer starts the delivery goroutine; call Close to drain and stop it.
func NewServer(application *app.App, address string, opts ...Option) *Server {
	s := &Server{
		app:       application,
		address:   address,
		gatherer:  prometheus.DefaultGatherer,
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = newDispatcher(s.queueSize, s.emit, s.ingress)
	return s
}

// Close delivers every queued page event, then stops delivery. Events
// posted afterwards are dropped.
func (s *Server) Close() {
	s.queue.close()
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

func (s *Server) handleEvents(w http.ResponseWriter, request *http.Request) {
	var batch models.Batch
	if !decodeBody(w, request, &batch) {
		return
	}
	for _, event := range batch.Events {
		s.queue.enqueue(event.Page)
	}
	w.WriteHeader(http.StatusNoContent) // accepted, delivery is asynchronous
}

func (s *Server) handlePageview(w http.ResponseWriter, request *http.Request) {
	var event models.PageEvent
	if !decodeBody(w, request, &event) {
		return
	}
	s.queue.enqueue(event.Page)
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, request *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, request.Body, maxBodyBytes)).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return false
	}
	http.Error(w, "Invalid JSON format", http.StatusBadRequest)
	return false
}

func (s *Server) emit(page string) {
	if !s.app.Navigate(page) {
		slog.Debug("no listener on port, page event dropped", "port", app.UpdateAnalyticsPort, "page", page)
	}
}

func (s *Server) handleRecentPageviews(w http.ResponseWriter, request *http.Request) {
	if s.pageviews == nil {
		http.Error(w, "Local pageview store is not enabled", http.StatusNotFound)
		return
	}
	limit := 100
	if raw := request.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	pageviews, err := s.pageviews.RecentPageviews(limit)
	if err != nil {
		slog.Error("database error", "error", err)
		http.Error(w, "Failed to read pageviews", http.StatusInternalServerError)
		return
	}
	writeJSON(w, pageviews)
}

func (s *Server) handlePageCounts(w http.ResponseWriter, _ *http.Request) {
	if s.pageviews == nil {
		http.Error(w, "Local pageview store is not enabled", http.StatusNotFound)
		return
	}
	counts, err := s.pageviews.PageCounts()
	if err != nil {
		slog.Error("database error", "error", err)
		http.Error(w, "Failed to read page counts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, counts)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealthz)
	r.Post("/events", s.handleEvents)
	r.Post("/pageview", s.handlePageview)
	r.Get("/pageviews", s.handleRecentPageviews)
	r.Get("/pageviews/counts", s.handlePageCounts)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	if s.staticDir != "" {
		r.NotFound(spaHandler(s.staticDir))
	}
	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      s.setupRoutes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	shutdownChannel := make(chan os.Signal, 1)
	signal.Notify(shutdownChannel, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("pageview bridge listening", "addr", s.address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.Close()
		return err
	case <-shutdownChannel:
	}
	slog.Info("shutting down server")

	shutdownContext, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownErr := s.server.Shutdown(shutdownContext)
	s.Close()
	if shutdownErr != nil {
		return shutdownErr
	}

	slog.Info("server exited")
	return nil
}
