package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"quantai-bot/internal/agents/agentobs"
	"quantai-bot/internal/api"
	"quantai-bot/internal/eod"
	"quantai-bot/internal/gate"
	"quantai-bot/internal/interfaces"
	"quantai-bot/internal/logger"
	"quantai-bot/internal/pipeline"
	"quantai-bot/internal/pipeline/pipelineobs"
	"quantai-bot/internal/runner"
	"quantai-bot/internal/sim"
	"quantai-bot/internal/state"
	"quantai-bot/internal/store"
	"quantai-bot/internal/trace"
	"quantai-bot/internal/tradelog"
	"quantai-bot/internal/types"

	"github.com/joho/godotenv"
)

// initializeSystem initializes env, logger, and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init("quantai-bot"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads the configuration from CONFIG_PATH or config.yaml
func loadConfig(ctx context.Context) (*store.Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// initializeState creates the portfolio state store and seeds the wallet
// cash as a stablecoin position so portfolio-relative sizing works from
// the first cycle.
func initializeState(ctx context.Context, cfg *store.Config) *state.Store {
	st := state.New(cfg.Wallet.Address, cfg.Wallet.BalanceUSD)
	seedCashPosition(st, cfg.Wallet.BalanceUSD)

	if cfg.DryRun() {
		logger.Warn(ctx, "Running in DRY_RUN mode - swaps will be simulated")
	}
	logger.Info(ctx, "Portfolio state initialized",
		"wallet", cfg.Wallet.Address,
		"balance_usd", cfg.Wallet.BalanceUSD,
	)
	return st
}

func seedCashPosition(st *state.Store, balanceUSD float64) {
	st.UpsertPosition(types.Position{
		TokenAddress:    "USDC",
		Symbol:          "USDC",
		Amount:          balanceUSD,
		EntryPriceUSD:   1,
		CurrentPriceUSD: 1,
		EntryTime:       time.Now().UTC(),
	})
}

// initializeEvaluators builds the five stage evaluators with observability
func initializeEvaluators(ctx context.Context, cfg *store.Config, st *state.Store) (
	interfaces.Discovery,
	interfaces.RiskGate,
	interfaces.ApprovalGate,
	interfaces.Executor,
	interfaces.Reporter,
) {
	if cfg.Discovery.Provider != "SIM" {
		logger.Warn(ctx, "Unknown discovery provider - falling back to SIM",
			"provider", cfg.Discovery.Provider)
	}
	discovery := sim.NewDiscovery(cfg.Discovery.Seed, cfg.Discovery.MaxCandidates)

	riskGate := gate.NewRiskGate(gate.RiskConfig{
		MinLiquidityUSD:     cfg.Risk.MinLiquidityUSD,
		MaxConcentrationPct: cfg.Risk.MaxHolderConcentrationPct,
		MinHolderCount:      cfg.Risk.MinHolderCount,
	})

	approval := gate.NewApprovalGate(gate.ApprovalConfig{
		MaxPositionSizePct: cfg.Trading.MaxPositionSizePct,
	})

	executor := sim.NewExecutor(sim.ExecutorConfig{
		MaxSlippagePct:     cfg.Trading.MaxSlippagePct,
		MaxPositionSizePct: cfg.Trading.MaxPositionSizePct,
		DryRun:             cfg.DryRun(),
	}, st, cfg.Discovery.Seed)

	reporter := sim.NewReporter()

	return agentobs.WrapDiscovery(discovery),
		agentobs.WrapRiskGate(riskGate),
		agentobs.WrapApprovalGate(approval),
		agentobs.WrapExecutor(executor),
		agentobs.WrapReporter(reporter)
}

// initializePipeline wires the evaluators and journal into the cycle
// pipeline with observability
func initializePipeline(cfg *store.Config, st *state.Store, journal *tradelog.Log) interfaces.Pipeline {
	discovery, riskGate, approval, executor, reporter := initializeEvaluators(context.Background(), cfg, st)

	p := pipeline.New(st, discovery, riskGate, approval, executor, reporter, journal, pipeline.Config{
		MarketCondition:   cfg.Discovery.MarketCondition,
		MaxSlippagePct:    cfg.Trading.MaxSlippagePct,
		DailyLossLimitUSD: cfg.Trading.DailyLossLimitUSD,
	})

	return pipelineobs.Wrap(p)
}

// compressOldJournals gzips journal files past the retention window
func compressOldJournals(ctx context.Context, journal *tradelog.Log, retentionDays int) {
	if err := journal.CompressOlder(retentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old journal files", "error", err)
	}
}

// app ties the runner, state, and config together behind the API surface.
type app struct {
	ctx        context.Context
	cfg        *store.Config
	store      *state.Store
	runner     *runner.Runner
	summarizer *eod.Summarizer
}

var _ api.Controller = (*app)(nil)

func newApp(ctx context.Context, cfg *store.Config, st *state.Store, r *runner.Runner, summarizer *eod.Summarizer) *app {
	return &app{ctx: ctx, cfg: cfg, store: st, runner: r, summarizer: summarizer}
}

func (a *app) Running() bool { return a.runner.Running() }
func (a *app) DryRun() bool  { return a.cfg.DryRun() }

// StartContinuous launches the runner; zero arguments fall back to the
// configured defaults.
func (a *app) StartContinuous(cycles int, interval time.Duration) error {
	if cycles <= 0 {
		cycles = a.cfg.Runner.MaxCycles
	}
	if interval <= 0 {
		interval = time.Duration(a.cfg.Runner.RefreshIntervalSeconds) * time.Second
	}
	return a.runner.Start(a.ctx, cycles, interval)
}

func (a *app) StopContinuous() error { return a.runner.Stop() }

func (a *app) TriggerCycle(ctx context.Context) (types.CycleReport, error) {
	return a.runner.RunOnce(ctx)
}

// ResetState reinitializes the portfolio to the configured wallet balance.
// Rejected while the runner is active.
func (a *app) ResetState() error {
	if a.runner.Running() {
		return runner.ErrBusy
	}
	a.store.Reset(a.cfg.Wallet.BalanceUSD)
	seedCashPosition(a.store, a.cfg.Wallet.BalanceUSD)
	logger.Info(a.ctx, "Portfolio state reset", "balance_usd", a.cfg.Wallet.BalanceUSD)
	return nil
}

func (a *app) PortfolioSummary() types.PortfolioSummary {
	return a.store.PortfolioSummary()
}

func (a *app) PerformanceMetrics() types.PerformanceMetrics {
	return a.store.PerformanceMetrics()
}

func (a *app) Snapshot() types.StateSnapshot { return a.store.Snapshot() }

func (a *app) TradeHistory(limit int) []types.TradeRecord {
	return a.store.TradeHistory(limit)
}

func (a *app) FailedTradeHistory(limit int) []types.FailedTradeRecord {
	return a.store.FailedTradeHistory(limit)
}

func (a *app) Errors(limit int) []types.ErrorEntry { return a.store.Errors(limit) }

func (a *app) CurrentCycle() types.CycleScratch { return a.store.CurrentCycle() }

func (a *app) CycleCount() int { return a.store.CycleCount() }

func (a *app) LastRunTime() time.Time { return a.store.LastRunTime() }

// rollDay writes the daily CSV and resets the daily P&L counters.
func (a *app) rollDay(day time.Time) {
	if path, err := a.summarizer.SummarizeDay(day); err != nil {
		logger.ErrorWithErr(a.ctx, "EOD summary failed", err)
	} else if path != "" {
		logger.Info(a.ctx, "EOD CSV written", "path", path)
	}
	a.store.ResetDailyMetrics()
}
