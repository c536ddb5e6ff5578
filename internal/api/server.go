package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"quantai-bot/internal/logger"
	"quantai-bot/internal/runner"
	"quantai-bot/internal/types"
)

const defaultLogLimit = 50

// Controller is the narrow surface the HTTP layer needs from the bot.
type Controller interface {
	Running() bool
	DryRun() bool
	StartContinuous(cycles int, interval time.Duration) error
	StopContinuous() error
	TriggerCycle(ctx context.Context) (types.CycleReport, error)
	ResetState() error

	PortfolioSummary() types.PortfolioSummary
	PerformanceMetrics() types.PerformanceMetrics
	Snapshot() types.StateSnapshot
	TradeHistory(limit int) []types.TradeRecord
	FailedTradeHistory(limit int) []types.FailedTradeRecord
	Errors(limit int) []types.ErrorEntry
	CurrentCycle() types.CycleScratch
	CycleCount() int
	LastRunTime() time.Time
}

type Server struct {
	ctrl Controller
	srv  *http.Server
}

func NewServer(addr string, ctrl Controller) *Server {
	s := &Server{ctrl: ctrl}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/portfolio", s.handlePortfolio)
	mux.HandleFunc("/api/performance", s.handlePerformance)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/cycle/current", s.handleCurrentCycle)
	mux.HandleFunc("/api/logs", s.handleLogs)
	mux.HandleFunc("/api/start", s.handleStart)
	mux.HandleFunc("/api/stop", s.handleStop)
	mux.HandleFunc("/api/cycle", s.handleCycle)
	mux.HandleFunc("/api/reset", s.handleReset)
	return mux
}

func (s *Server) Start() error {
	logger.Info(context.Background(), "API server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeControlError maps runner lifecycle conflicts to 409.
func writeControlError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, runner.ErrAlreadyRunning),
		errors.Is(err, runner.ErrNotRunning),
		errors.Is(err, runner.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func limitParam(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// GET /api/health reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/status reports the runner state and cycle progress.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	mode := "LIVE"
	if s.ctrl.DryRun() {
		mode = "DRY_RUN"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"running":       s.ctrl.Running(),
		"mode":          mode,
		"cycle_count":   s.ctrl.CycleCount(),
		"last_run_time": s.ctrl.LastRunTime(),
	})
}

// GET /api/portfolio returns the portfolio summary.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.PortfolioSummary())
}

// GET /api/performance returns aggregate trade statistics.
func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.PerformanceMetrics())
}

// GET /api/state returns the full state snapshot.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

type tradeHistoryResponse struct {
	CompletedTrades      []types.TradeRecord       `json:"completed_trades"`
	FailedTrades         []types.FailedTradeRecord `json:"failed_trades"`
	TotalTrades          int                       `json:"total_trades"`
	CompletedTradesCount int                       `json:"completed_trades_count"`
	FailedTradesCount    int                       `json:"failed_trades_count"`
}

// GET /api/history?limit=N returns recent completed and failed trades,
// oldest first, with counts per ledger.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	limit := limitParam(r, defaultLogLimit)
	completed := s.ctrl.TradeHistory(limit)
	if completed == nil {
		completed = []types.TradeRecord{}
	}
	failed := s.ctrl.FailedTradeHistory(limit)
	if failed == nil {
		failed = []types.FailedTradeRecord{}
	}
	writeJSON(w, http.StatusOK, tradeHistoryResponse{
		CompletedTrades:      completed,
		FailedTrades:         failed,
		TotalTrades:          len(completed) + len(failed),
		CompletedTradesCount: len(completed),
		FailedTradesCount:    len(failed),
	})
}

// GET /api/cycle/current returns the scratch outputs of the latest cycle.
func (s *Server) handleCurrentCycle(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.CurrentCycle())
}

// GET /api/logs?limit=N returns recent error log entries, oldest first.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	entries := s.ctrl.Errors(limitParam(r, defaultLogLimit))
	if entries == nil {
		entries = []types.ErrorEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type startRequest struct {
	Cycles          int `json:"cycles"`
	IntervalSeconds int `json:"interval_seconds"`
}

// POST /api/start launches the continuous runner. Zero values fall back
// to the configured defaults.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req startRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if err := s.ctrl.StartContinuous(req.Cycles, time.Duration(req.IntervalSeconds)*time.Second); err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// POST /api/stop signals the continuous runner to exit.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := s.ctrl.StopContinuous(); err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

// POST /api/cycle triggers one manual cycle and returns its report.
func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	report, err := s.ctrl.TriggerCycle(r.Context())
	if err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// POST /api/reset reinitializes the portfolio state. Rejected while the
// runner is active.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := s.ctrl.ResetState(); err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
