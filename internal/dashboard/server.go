// Package dashboard serves widget snapshots, one-off transfer actions
// and transient report URLs over a local JSON API.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BadgerOps/transferwatch/internal/gateway"
	"github.com/BadgerOps/transferwatch/internal/metrics"
	"github.com/BadgerOps/transferwatch/internal/store"
)

// Options wires the server's collaborators. Store and Metrics are
// optional.
type Options struct {
	Client       *gateway.Client
	Panels       []Panel
	Store        *store.Store
	Metrics      *metrics.Metrics
	ReleaseDelay time.Duration
	Logger       *slog.Logger
}

// Server is the local dashboard.
type Server struct {
	client     *gateway.Client
	panels     map[string]Panel
	order      []string
	store      *store.Store
	metrics    *metrics.Metrics
	objects    *ObjectURLs
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a new Server instance.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		client:  opts.Client,
		panels:  make(map[string]Panel, len(opts.Panels)),
		store:   opts.Store,
		metrics: opts.Metrics,
		logger:  logger,
	}
	for _, p := range opts.Panels {
		s.panels[p.Name()] = p
		s.order = append(s.order, p.Name())
	}

	var onChange func(int)
	if opts.Metrics != nil {
		onChange = opts.Metrics.SetObjectURLs
	}
	s.objects = NewObjectURLs(opts.ReleaseDelay, onChange)
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", s.handleHealthz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Get("/reports/{token}", s.handleServeReport)

	r.Route("/api", func(r chi.Router) {
		r.Get("/widgets", s.handleWidgets)
		r.Get("/widgets/{name}", s.handleWidget)
		r.Get("/sync-health", s.handleSyncHealth)

		r.Post("/transfers", s.handleCreateTransfer)
		r.Route("/transfers/{id}", func(r chi.Router) {
			r.Get("/", s.handleTransferDetail)
			r.Delete("/", s.handleDeleteTransfer)
			r.Post("/cancel", s.handleCancelTransfer)
			r.Post("/pause-watch", s.handlePauseWatch)
			r.Post("/resume-watch", s.handleResumeWatch)
			r.Post("/report", s.handleCreateReportURL)
		})

		r.Get("/volumes", s.handleVolumes)
		r.Post("/volumes/reload", s.handleReloadVolumes)
		r.Get("/volumes/validate", s.handleValidatePath)
	})

	return r
}

// Start starts every panel and serves HTTP on listenAddr until Shutdown.
func (s *Server) Start(ctx context.Context, listenAddr string) error {
	for _, name := range s.order {
		s.panels[name].Start(ctx)
	}

	s.httpServer = &http.Server{
		Addr:         listenAddr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting dashboard", "addr", listenAddr, "panels", s.order)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops the panels, releases every report URL and drains HTTP.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, name := range s.order {
		s.panels[name].Stop()
	}
	s.objects.Close()

	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down dashboard")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
