// Package agentobs wraps the stage evaluators with observability
// middleware (logging & tracing). The pipeline only ever sees the
// interfaces, so wrapping is transparent.
package agentobs

import (
	"context"

	"quantai-bot/internal/interfaces"
	"quantai-bot/internal/logger"
	"quantai-bot/internal/trace"
	"quantai-bot/internal/types"
)

type observableDiscovery struct {
	inner interfaces.Discovery
}

var _ interfaces.Discovery = (*observableDiscovery)(nil)

func WrapDiscovery(d interfaces.Discovery) interfaces.Discovery {
	return &observableDiscovery{inner: d}
}

func (o *observableDiscovery) FindOpportunities(ctx context.Context, condition string) ([]types.Opportunity, error) {
	ctx, span := trace.StartSpan(ctx, "discovery.FindOpportunities")
	defer span.End()

	opps, err := o.inner.FindOpportunities(ctx, condition)
	if err != nil {
		// Use ErrorWithErrSkip(1) to report the actual caller, not this wrapper
		logger.ErrorWithErrSkip(ctx, 1, "Opportunity scan failed", err,
			"condition", condition,
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Opportunity scan completed",
		"condition", condition,
		"candidates", len(opps),
	)
	return opps, nil
}

type observableRiskGate struct {
	inner interfaces.RiskGate
}

var _ interfaces.RiskGate = (*observableRiskGate)(nil)

func WrapRiskGate(g interfaces.RiskGate) interfaces.RiskGate {
	return &observableRiskGate{inner: g}
}

func (o *observableRiskGate) Assess(ctx context.Context, opp types.Opportunity) (types.RiskAssessment, error) {
	ctx, span := trace.StartSpan(ctx, "riskgate.Assess")
	defer span.End()

	a, err := o.inner.Assess(ctx, opp)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Risk assessment failed", err,
			"symbol", opp.Symbol,
		)
		return types.RiskAssessment{}, err
	}

	if !a.Approved {
		logger.Veto(ctx, opp.Symbol, types.StageRiskGate, a.Reason,
			"risk_score", a.RiskScore,
		)
	} else {
		logger.InfoSkip(ctx, 1, "Risk check passed",
			"symbol", opp.Symbol,
			"risk_score", a.RiskScore,
		)
	}
	return a, nil
}

type observableApprovalGate struct {
	inner interfaces.ApprovalGate
}

var _ interfaces.ApprovalGate = (*observableApprovalGate)(nil)

func WrapApprovalGate(g interfaces.ApprovalGate) interfaces.ApprovalGate {
	return &observableApprovalGate{inner: g}
}

func (o *observableApprovalGate) Decide(
	ctx context.Context,
	opp types.Opportunity,
	risk types.RiskAssessment,
	summary types.PortfolioSummary,
	dailyLossLimitUSD float64,
) (types.ExecutiveDecision, error) {
	ctx, span := trace.StartSpan(ctx, "approvalgate.Decide")
	defer span.End()

	d, err := o.inner.Decide(ctx, opp, risk, summary, dailyLossLimitUSD)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Executive decision failed", err,
			"symbol", opp.Symbol,
		)
		return types.ExecutiveDecision{}, err
	}

	if d.Verdict == types.VerdictNoGo {
		logger.Veto(ctx, opp.Symbol, types.StageApprovalGate, d.Rationale)
	} else {
		logger.InfoSkip(ctx, 1, "Trade approved",
			"symbol", opp.Symbol,
			"position_usd", d.PositionSizeUSD,
			"rationale", d.Rationale,
		)
	}
	return d, nil
}

type observableExecutor struct {
	inner interfaces.Executor
}

var _ interfaces.Executor = (*observableExecutor)(nil)

func WrapExecutor(e interfaces.Executor) interfaces.Executor {
	return &observableExecutor{inner: e}
}

func (o *observableExecutor) Execute(ctx context.Context, req types.SwapRequest) (types.ExecutionResult, error) {
	ctx, span := trace.StartSpan(ctx, "executor.Execute")
	defer span.End()

	res, err := o.inner.Execute(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Swap execution failed", err,
			"symbol", req.Symbol,
			"amount_usd", req.AmountUSD,
		)
		return types.ExecutionResult{}, err
	}

	if res.Success {
		logger.Trade(ctx, req.Symbol, res.TxSignature, res.AmountUSD, res.RealizedPnLUSD,
			"slippage_pct", res.SlippagePct,
		)
	} else {
		logger.WarnSkip(ctx, 1, "Swap attempt not filled",
			"symbol", req.Symbol,
			"amount_usd", req.AmountUSD,
			"reason", res.Err,
		)
	}
	return res, nil
}

type observableReporter struct {
	inner interfaces.Reporter
}

var _ interfaces.Reporter = (*observableReporter)(nil)

func WrapReporter(r interfaces.Reporter) interfaces.Reporter {
	return &observableReporter{inner: r}
}

func (o *observableReporter) Announce(ctx context.Context, opp types.Opportunity, exec types.ExecutionResult) (types.Announcement, error) {
	ctx, span := trace.StartSpan(ctx, "reporter.Announce")
	defer span.End()

	a, err := o.inner.Announce(ctx, opp, exec)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Announcement failed", err,
			"symbol", opp.Symbol,
		)
		return types.Announcement{}, err
	}

	logger.InfoSkip(ctx, 1, "Announcement ready",
		"symbol", opp.Symbol,
		"headline", a.Headline,
	)
	return a, nil
}
