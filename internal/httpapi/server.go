package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/downwatch/internal/domain"
	apimw "github.com/hamed0406/downwatch/internal/httpapi/middleware"
	"github.com/hamed0406/downwatch/internal/metrics"
	"github.com/hamed0406/downwatch/internal/monitor"
	"github.com/hamed0406/downwatch/internal/repo"
)

// Cycler runs one evaluation cycle; *monitor.Engine implements it.
type Cycler interface {
	RunCycle(ctx context.Context, opts monitor.CycleOptions) (domain.CycleResult, error)
}

type Server struct {
	Logger  *zap.Logger
	Engine  Cycler
	Store   repo.StateStore
	Metrics *metrics.Metrics

	// CycleTimeout bounds a triggered cycle independently of the caller.
	CycleTimeout time.Duration
	// AllowDebugQuery lets ?debug=1 switch on diagnostic messages.
	AllowDebugQuery bool
}

func NewServer(l *zap.Logger, engine Cycler, store repo.StateStore, m *metrics.Metrics) *Server {
	return &Server{
		Logger:          l,
		Engine:          engine,
		Store:           store,
		Metrics:         m,
		CycleTimeout:    60 * time.Second,
		AllowDebugQuery: true,
	}
}

func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, ratePerMin, burst int) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(s.accessLog)

	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
			ExposedHeaders: []string{headerStatus, headerHardOutage, headerDownHTTP},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(ratePerMin, burst))
		r.Use(apimw.RequireAny(keys))
		r.Get("/check", s.handleCheck)
		r.Post("/check", s.handleCheck)
		r.Get("/api/state", s.handleState)
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(ratePerMin, burst))
		r.Use(apimw.RequireAdmin(keys))
		r.Post("/api/mute", s.handleSetMuted(true))
		r.Post("/api/unmute", s.handleSetMuted(false))
	})

	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Debug("http_request",
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (s *Server) fail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{OK: false, Error: msg})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.Store.Load(r.Context())
	if err != nil {
		s.Logger.Warn("state_read_failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":      st,
		"violations": st.Violations(),
	})
}

func (s *Server) handleSetMuted(muted bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.Store.Update(r.Context(), func(st *domain.MonitorState) {
			st.Muted = muted
		})
		if err != nil {
			s.Logger.Warn("state_write_failed", zap.String("step", "api_mute"), zap.Error(err))
			s.fail(w, http.StatusInternalServerError, "could not persist state")
			return
		}
		s.Metrics.State(st.Muted, 0)
		s.Logger.Info("mute_changed", zap.Bool("muted", st.Muted), zap.String("via", "api"))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "muted": st.Muted})
	}
}

var errCyclePanic = errors.New("cycle panicked")

func (s *Server) runCycle(ctx context.Context, opts monitor.CycleOptions) (res domain.CycleResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.Logger.Error("cycle_panic", zap.Any("panic", rec), zap.Stack("stack"))
			err = fmt.Errorf("%w: %v", errCyclePanic, rec)
		}
	}()
	return s.Engine.RunCycle(ctx, opts)
}
