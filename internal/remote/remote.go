// Package remote serves a small HTTP surface for controlling playback from
// another device or script: control actions, notification intents, the
// session state, a websocket feed and metrics.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/KoTeuKa404/pymusic/control"
	"github.com/KoTeuKa404/pymusic/internal/metrics"
	"github.com/KoTeuKa404/pymusic/log"
	"github.com/KoTeuKa404/pymusic/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// Session is the playback state the server reports and adjusts.
type Session interface {
	Snapshot() session.Snapshot
	Seek(ms int64) bool
	SetRepeat(repeat bool)
}

// Dispatcher routes control signals. *control.Router implements it.
type Dispatcher interface {
	Dispatch(source control.Source, action control.Action) bool
	HandleIntent(intent string) bool
}

// Options configures a Server.
type Options struct {
	// Feed serves the websocket state feed on /ws. Optional.
	Feed http.Handler
	// ControlLimit is the number of control requests accepted per client per ControlWindow.
	ControlLimit  int
	ControlWindow time.Duration
}

type Server struct {
	session    Session
	dispatcher Dispatcher
	opts       Options
	router     chi.Router
}

func New(sess Session, dispatcher Dispatcher, opts Options) *Server {
	if opts.ControlLimit <= 0 {
		opts.ControlLimit = 20
	}
	if opts.ControlWindow <= 0 {
		opts.ControlWindow = 10 * time.Second
	}

	s := &Server{session: sess, dispatcher: dispatcher, opts: opts}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/state", s.handleState)
	r.Handle("/metrics", metrics.Handler())
	if s.opts.Feed != nil {
		r.Handle("/ws", s.opts.Feed)
	}

	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(
			s.opts.ControlLimit,
			s.opts.ControlWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", strconv.Itoa(int(s.opts.ControlWindow.Seconds())))
				writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate_limit_exceeded"})
			}),
		))
		r.Post("/control/{action}", s.handleControl)
		r.Post("/intent/{intent}", s.handleIntent)
		r.Post("/seek/{ms}", s.handleSeek)
		r.Post("/repeat/{state}", s.handleRepeat)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("remote: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Infof("remote: listening on %s", ln.Addr())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("remote: shutdown: %w", err)
		}
		<-errc
		return nil
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type acceptedBody struct {
	Action   string `json:"action"`
	Accepted bool   `json:"accepted"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	action, err := control.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	accepted := s.dispatcher.Dispatch(control.Remote, action)
	writeJSON(w, http.StatusOK, acceptedBody{Action: action.String(), Accepted: accepted})
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	intent := chi.URLParam(r, "intent")
	if !s.dispatcher.HandleIntent(intent) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown intent"})
		return
	}
	writeJSON(w, http.StatusOK, acceptedBody{Action: intent, Accepted: true})
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	ms, err := strconv.ParseInt(chi.URLParam(r, "ms"), 10, 64)
	if err != nil || ms < 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "position must be a non-negative number of milliseconds"})
		return
	}
	if !s.session.Seek(ms) {
		writeJSON(w, http.StatusConflict, errorBody{Error: "nothing is prepared"})
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleRepeat(w http.ResponseWriter, r *http.Request) {
	on, err := strconv.ParseBool(chi.URLParam(r, "state"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	s.session.SetRepeat(on)
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("remote: encode response: %v", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.WithFields(map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Debug("remote: request")
	})
}
