// Package httpapi exposes the tuner and metronome over HTTP and streams
// beats over a websocket.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/metalblueberry/bard/pkg/metronome"
	"github.com/metalblueberry/bard/pkg/progression"
	"github.com/metalblueberry/bard/pkg/tuner"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// TunerSource provides the latest analysis result.
type TunerSource interface {
	Snapshot() tuner.Snapshot
}

// Clock is the metronome controlled remotely.
type Clock interface {
	Start(bpm int)
	Stop()
	SetTempo(bpm int)
	State() metronome.State
	Subscribe(buffer int) (<-chan metronome.Beat, func())
}

// Server routes the remote API.
type Server struct {
	router      *mux.Router
	clock       Clock
	tuner       TunerSource
	progression *progression.Progression
	logger      *zap.Logger

	tap *metronome.TapTempo
	now func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithTuner enables GET /api/tuner.
func WithTuner(src TunerSource) Option {
	return func(s *Server) {
		s.tuner = src
	}
}

// WithProgression adds chord positions to streamed beats.
func WithProgression(p progression.Progression) Option {
	return func(s *Server) {
		s.progression = &p
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds the router around clock.
func New(clock Clock, opts ...Option) *Server {
	s := &Server{
		clock:  clock,
		logger: zap.NewNop(),
		tap:    metronome.NewTapTempo(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "httpapi"))

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/api/tuner", s.handleTuner).Methods(http.MethodGet)
	router.HandleFunc("/api/metronome", s.handleState).Methods(http.MethodGet)
	router.HandleFunc("/api/metronome/start", s.handleStart).Methods(http.MethodPost)
	router.HandleFunc("/api/metronome/stop", s.handleStop).Methods(http.MethodPost)
	router.HandleFunc("/api/metronome/tempo", s.handleTempo).Methods(http.MethodPut)
	router.HandleFunc("/api/metronome/tap", s.handleTap).Methods(http.MethodPost)
	router.HandleFunc("/ws/beats", s.handleBeats).Methods(http.MethodGet)
	s.router = router

	return s
}

// Handler returns the router wrapped with CORS handling.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type tempoRequest struct {
	BPM int `json:"bpm"`
}

type tapResponse struct {
	BPM int  `json:"bpm"`
	OK  bool `json:"ok"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.clock.State())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req tempoRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "body must be {\"bpm\": n}")
			return
		}
	}

	bpm := req.BPM
	if bpm <= 0 {
		bpm = s.clock.State().BPM
	}

	s.clock.Start(bpm)
	s.logger.Info("metronome started", zap.Int("bpm", metronome.ClampBPM(bpm)))
	writeJSON(w, http.StatusOK, s.clock.State())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.clock.Stop()
	s.logger.Info("metronome stopped")
	writeJSON(w, http.StatusOK, s.clock.State())
}

func (s *Server) handleTempo(w http.ResponseWriter, r *http.Request) {
	var req tempoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BPM <= 0 {
		writeError(w, http.StatusBadRequest, "body must be {\"bpm\": n} with n > 0")
		return
	}

	s.clock.SetTempo(req.BPM)
	writeJSON(w, http.StatusOK, s.clock.State())
}

func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	bpm, ok := s.tap.Tap(s.now())

	if ok {
		s.clock.SetTempo(bpm)
	}
	writeJSON(w, http.StatusOK, tapResponse{BPM: bpm, OK: ok})
}

func (s *Server) handleTuner(w http.ResponseWriter, r *http.Request) {
	if s.tuner == nil {
		writeError(w, http.StatusNotFound, "tuner is not running")
		return
	}
	writeJSON(w, http.StatusOK, newTunerResponse(s.tuner.Snapshot()))
}
