package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

// Control API routes.
const (
	StatePath   = "/v1/state"
	EventsPath  = "/v1/events"
	MetricsPath = "/metrics"
	HealthPath  = "/healthz"
)

const controlShutdownTimeout = 5 * time.Second

// StateResponse is the body of GET /v1/state.
type StateResponse struct {
	State domain.State `json:"state"`
}

// EventResponse is the body of an accepted POST /v1/events/{event}.
type EventResponse struct {
	Event       domain.EventKind `json:"event"`
	Redelivered bool             `json:"redelivered,omitempty"`
}

// ErrorResponse is the body of every failed control request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ControlServer exposes the tracker over HTTP: the persisted state, event
// injection, metrics and a health probe.
type ControlServer struct {
	addr     string
	store    ports.StateRepository
	injector ports.EventInjector
	metrics  http.Handler
	logger   ports.Logger
}

// NewControlServer creates a control server. metrics may be nil.
func NewControlServer(addr string, store ports.StateRepository, injector ports.EventInjector, metrics http.Handler, logger ports.Logger) *ControlServer {
	return &ControlServer{
		addr:     addr,
		store:    store,
		injector: injector,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handler returns the router of the control API.
func (s *ControlServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get(StatePath, s.handleState)
	r.Post(EventsPath+"/{event}", s.handleEvent)
	r.Get(HealthPath, s.handleHealth)
	if s.metrics != nil {
		r.Handle(MetricsPath, s.metrics)
	}
	return r
}

// Run serves the control API until ctx is done, then shuts down gracefully.
func (s *ControlServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("control API listening", ports.String("addr", s.addr))

	var err error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), controlShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err = <-errCh
	case err = <-errCh:
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *ControlServer) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.store.Load(r.Context())
	if err != nil {
		s.logger.Error("control: load state failed", ports.Err(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{State: state})
}

func (s *ControlServer) handleEvent(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseEventKind(chi.URLParam(r, "event"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ev := domain.NewEvent(kind)
	if v := r.URL.Query().Get("redelivered"); v != "" {
		redelivered, perr := strconv.ParseBool(v)
		if perr != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "redelivered: " + perr.Error()})
			return
		}
		ev.Redelivered = redelivered
	}

	s.injector.Inject(ev)
	s.logger.Info("control: event injected",
		ports.String("event", kind.String()),
		ports.Bool("redelivered", ev.Redelivered))
	writeJSON(w, http.StatusAccepted, EventResponse{Event: kind, Redelivered: ev.Redelivered})
}

func (s *ControlServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Load(r.Context()); err != nil {
		s.logger.Error("control: readiness check failed", ports.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("NOT_READY"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("READY"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
