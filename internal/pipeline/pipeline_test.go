package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"quantai-bot/internal/state"
	"quantai-bot/internal/types"
)

type mockDiscovery struct {
	opps  []types.Opportunity
	err   error
	calls int
}

func (m *mockDiscovery) FindOpportunities(context.Context, string) ([]types.Opportunity, error) {
	m.calls++
	return m.opps, m.err
}

type mockRiskGate struct {
	result types.RiskAssessment
	err    error
	calls  int
}

func (m *mockRiskGate) Assess(context.Context, types.Opportunity) (types.RiskAssessment, error) {
	m.calls++
	return m.result, m.err
}

type mockApprovalGate struct {
	result types.ExecutiveDecision
	err    error
	calls  int
}

func (m *mockApprovalGate) Decide(context.Context, types.Opportunity, types.RiskAssessment, types.PortfolioSummary, float64) (types.ExecutiveDecision, error) {
	m.calls++
	return m.result, m.err
}

type mockExecutor struct {
	result types.ExecutionResult
	err    error
	calls  int
}

func (m *mockExecutor) Execute(context.Context, types.SwapRequest) (types.ExecutionResult, error) {
	m.calls++
	return m.result, m.err
}

type mockReporter struct {
	err   error
	calls int
}

func (m *mockReporter) Announce(_ context.Context, opp types.Opportunity, _ types.ExecutionResult) (types.Announcement, error) {
	m.calls++
	if m.err != nil {
		return types.Announcement{}, m.err
	}
	return types.Announcement{Headline: "announced " + opp.Symbol}, nil
}

type fixture struct {
	store     *state.Store
	discovery *mockDiscovery
	risk      *mockRiskGate
	approval  *mockApprovalGate
	executor  *mockExecutor
	reporter  *mockReporter
	pipeline  *Pipeline
}

func happyOpportunity() types.Opportunity {
	return types.Opportunity{TokenAddress: "mint1", Symbol: "WIF", Score: 80, PriceUSD: 2.0}
}

func newFixture() *fixture {
	f := &fixture{
		store:     state.New("demo_wallet", 1000),
		discovery: &mockDiscovery{opps: []types.Opportunity{happyOpportunity()}},
		risk:      &mockRiskGate{result: types.RiskAssessment{Approved: true, RiskScore: 30}},
		approval:  &mockApprovalGate{result: types.ExecutiveDecision{Verdict: types.VerdictGo, PositionSizeUSD: 10}},
		executor: &mockExecutor{result: types.ExecutionResult{
			Success: true, TxSignature: "sig123", AmountUSD: 10, RealizedPnLUSD: 2.5,
		}},
		reporter: &mockReporter{},
	}
	f.pipeline = New(f.store, f.discovery, f.risk, f.approval, f.executor, f.reporter, nil, Config{
		MaxSlippagePct:    5.0,
		DailyLossLimitUSD: 100,
	})
	return f
}

func TestEmptyDiscoveryShortCircuits(t *testing.T) {
	f := newFixture()
	f.discovery.opps = nil

	report, err := f.pipeline.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Stages) != 1 || report.Stages[0].Stage != types.StageDiscovery {
		t.Fatalf("expected only a DISCOVERY stage, got %+v", report.Stages)
	}
	if report.Outcome != types.OutcomeNoOpportunities {
		t.Errorf("expected outcome %s, got %s", types.OutcomeNoOpportunities, report.Outcome)
	}
	if f.store.CycleCount() != 1 {
		t.Errorf("expected cycle count 1, got %d", f.store.CycleCount())
	}
	if f.risk.calls != 0 || f.approval.calls != 0 || f.executor.calls != 0 || f.reporter.calls != 0 {
		t.Error("expected no stage after discovery to be invoked")
	}
}

func TestRiskVetoShortCircuits(t *testing.T) {
	f := newFixture()
	f.risk.result = types.RiskAssessment{Approved: false, Reason: "too risky"}

	report, err := f.pipeline.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if report.Outcome != types.OutcomeVetoed {
		t.Errorf("expected VETOED, got %s", report.Outcome)
	}
	if f.approval.calls != 0 || f.executor.calls != 0 || f.reporter.calls != 0 {
		t.Error("expected short circuit after the risk gate")
	}

	scratch := f.store.CurrentCycle()
	if scratch.RiskCheckResult == nil || scratch.RiskCheckResult.Reason != "too risky" {
		t.Errorf("expected persisted veto, got %+v", scratch.RiskCheckResult)
	}
}

func TestNoGoShortCircuits(t *testing.T) {
	f := newFixture()
	f.approval.result = types.ExecutiveDecision{Verdict: types.VerdictNoGo, Rationale: "conviction too low"}

	report, err := f.pipeline.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if report.Outcome != types.OutcomeNoGo {
		t.Errorf("expected NO_GO, got %s", report.Outcome)
	}
	if f.executor.calls != 0 || f.reporter.calls != 0 {
		t.Error("expected short circuit after the approval gate")
	}
}

func TestSuccessfulCycle(t *testing.T) {
	f := newFixture()

	report, err := f.pipeline.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if report.Outcome != types.OutcomeCompleted {
		t.Fatalf("expected COMPLETED, got %s", report.Outcome)
	}
	if len(report.Stages) != 5 {
		t.Fatalf("expected 5 stages, got %d", len(report.Stages))
	}
	if report.TradeID == "" {
		t.Error("expected a trade id on the report")
	}

	trades := f.store.TradeHistory(0)
	if len(trades) != 1 || trades[0].PnLUSD != 2.5 {
		t.Fatalf("expected one trade with pnl 2.5, got %+v", trades)
	}
	if got := f.store.PortfolioSummary().TotalPnLUSD; got != 2.5 {
		t.Errorf("expected total pnl 2.5, got %f", got)
	}
	if f.reporter.calls != 1 {
		t.Errorf("expected reporter invoked once, got %d", f.reporter.calls)
	}
}

func TestExecutionFailureContinuesToReporting(t *testing.T) {
	f := newFixture()
	f.executor.result = types.ExecutionResult{Success: false, Err: "slippage exceeded"}

	report, err := f.pipeline.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if report.Outcome != types.OutcomeCompleted {
		t.Errorf("expected COMPLETED despite failed execution, got %s", report.Outcome)
	}
	if f.reporter.calls != 1 {
		t.Error("expected reporting to run after a failed execution")
	}

	failed := f.store.FailedTradeHistory(0)
	if len(failed) != 1 || failed[0].Reason != "slippage exceeded" {
		t.Fatalf("expected one failed trade, got %+v", failed)
	}
	if got := f.store.PortfolioSummary().TotalPnLUSD; got != 0 {
		t.Errorf("failed execution must not move pnl, got %f", got)
	}
	if len(f.store.TradeHistory(0)) != 0 {
		t.Error("failed execution must not reach the completed ledger")
	}
}

func TestExecutorErrorIsContained(t *testing.T) {
	f := newFixture()
	f.executor.err = errors.New("rpc timeout")
	f.executor.result = types.ExecutionResult{}

	report, err := f.pipeline.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if report.Outcome != types.OutcomeCompleted {
		t.Errorf("expected contained failure, got outcome %s", report.Outcome)
	}
	failed := f.store.FailedTradeHistory(0)
	if len(failed) != 1 || !strings.Contains(failed[0].Reason, "rpc timeout") {
		t.Fatalf("expected failed trade carrying the error, got %+v", failed)
	}
	if len(f.store.Errors(0)) == 0 {
		t.Error("expected the executor error in the error log")
	}
}

func TestDiscoveryErrorIsContained(t *testing.T) {
	f := newFixture()
	f.discovery.err = errors.New("scanner offline")
	f.discovery.opps = nil

	report, err := f.pipeline.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if report.Outcome != types.OutcomeDiscoveryError {
		t.Errorf("expected DISCOVERY_ERROR, got %s", report.Outcome)
	}
	if f.risk.calls != 0 {
		t.Error("expected no stages after a discovery error")
	}
	if len(f.store.Errors(0)) != 1 {
		t.Error("expected discovery error logged")
	}
}

func TestRiskGateErrorVetoesSafely(t *testing.T) {
	f := newFixture()
	f.risk.err = errors.New("scoring backend down")

	report, err := f.pipeline.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if report.Outcome != types.OutcomeVetoed {
		t.Errorf("expected errored risk gate to veto, got %s", report.Outcome)
	}
	scratch := f.store.CurrentCycle()
	if scratch.RiskCheckResult == nil || scratch.RiskCheckResult.Approved {
		t.Errorf("expected persisted negative assessment, got %+v", scratch.RiskCheckResult)
	}
	if f.approval.calls != 0 {
		t.Error("expected no approval call after risk gate error")
	}
}

func TestReporterErrorDoesNotPropagate(t *testing.T) {
	f := newFixture()
	f.reporter.err = errors.New("broadcast down")

	report, err := f.pipeline.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if report.Outcome != types.OutcomeCompleted {
		t.Errorf("expected COMPLETED, got %s", report.Outcome)
	}
	if len(f.store.TradeHistory(0)) != 1 {
		t.Error("reporter failure must not roll back the trade")
	}
	if len(f.store.Errors(0)) != 1 {
		t.Error("expected reporter error logged")
	}
	last := report.Stages[len(report.Stages)-1]
	if last.Stage != types.StageReporting || last.OK {
		t.Errorf("expected errored reporting stage, got %+v", last)
	}
}

func TestFirstOpportunityIsSelected(t *testing.T) {
	f := newFixture()
	second := happyOpportunity()
	second.Symbol = "BONK"
	second.Score = 60
	f.discovery.opps = []types.Opportunity{happyOpportunity(), second}

	if _, err := f.pipeline.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}

	scratch := f.store.CurrentCycle()
	if scratch.SelectedOpportunity == nil || scratch.SelectedOpportunity.Symbol != "WIF" {
		t.Errorf("expected first candidate selected, got %+v", scratch.SelectedOpportunity)
	}
}

func TestRunnerPositionOpenedOnRemainder(t *testing.T) {
	f := newFixture()
	f.store.UpsertPosition(types.Position{
		TokenAddress:    "USDC",
		Symbol:          "USDC",
		Amount:          100,
		EntryPriceUSD:   1,
		CurrentPriceUSD: 1,
	})
	f.executor.result = types.ExecutionResult{
		Success: true, TxSignature: "sig", AmountUSD: 10,
		RealizedPnLUSD: 1.0, FillPriceUSD: 2.0, ExitPriceUSD: 2.2, RemainderTokens: 1.0,
	}

	if _, err := f.pipeline.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}

	snap := f.store.Snapshot()
	p, ok := snap.Positions["mint1"]
	if !ok {
		t.Fatal("expected a runner position for mint1")
	}
	if p.Amount != 1.0 || p.EntryPriceUSD != 2.0 {
		t.Errorf("unexpected position %+v", p)
	}

	// The deployed capital (1 token at the 2.0 fill) moves out of cash.
	cash, ok := snap.Positions["USDC"]
	if !ok {
		t.Fatal("expected the cash position to survive a partial debit")
	}
	if cash.Amount != 98 {
		t.Errorf("expected cash debited to 98, got %f", cash.Amount)
	}
}
