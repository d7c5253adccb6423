package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hamed0406/downwatch/internal/domain"
	"github.com/hamed0406/downwatch/internal/monitor"
)

const (
	headerStatus     = "X-Monitor-Status"
	headerHardOutage = "X-Monitor-Hard-Outage"
	headerDownHTTP   = "X-Monitor-Configured-Down-Http"
)

// handleCheck runs one cycle. The cycle is detached from the client
// connection so a caller hanging up cannot leave state half written.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	opts := monitor.CycleOptions{
		Debug: s.AllowDebugQuery && r.URL.Query().Get("debug") == "1",
	}

	ctx := context.WithoutCancel(r.Context())
	if s.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.CycleTimeout)
		defer cancel()
	}

	res, err := s.runCycle(ctx, opts)
	if err != nil {
		msg := "internal error"
		if errors.Is(err, monitor.ErrStateUnavailable) {
			msg = "no writable location for state"
		}
		s.Logger.Error("cycle_failed", zap.Error(err))
		s.fail(w, http.StatusInternalServerError, msg)
		return
	}

	w.Header().Set(headerStatus, string(res.Outcome))
	if res.Outcome == domain.OutcomeDown {
		hard := "0"
		if res.HardOutage {
			hard = "1"
		}
		w.Header().Set(headerHardOutage, hard)
		w.Header().Set(headerDownHTTP, strconv.Itoa(res.ConfiguredDownHTTP))
	}
	writeJSON(w, res.HTTPStatus, res.Summary)
}
