package gate

import (
	"context"
	"fmt"

	"quantai-bot/internal/types"
)

// positionCapPct is the hard ceiling on a single position relative to
// portfolio value, independent of the configured sizing.
const positionCapPct = 1.0

// ApprovalConfig holds the executive gate's sizing input.
type ApprovalConfig struct {
	MaxPositionSizePct float64
}

// ApprovalGate makes the final go/no-go call. It approves only when every
// condition holds; the rationale carries the first failing reason.
type ApprovalGate struct {
	cfg ApprovalConfig
}

func NewApprovalGate(cfg ApprovalConfig) *ApprovalGate {
	return &ApprovalGate{cfg: cfg}
}

func (g *ApprovalGate) Decide(
	_ context.Context,
	opp types.Opportunity,
	risk types.RiskAssessment,
	summary types.PortfolioSummary,
	dailyLossLimitUSD float64,
) (types.ExecutiveDecision, error) {
	noGo := func(rationale string) (types.ExecutiveDecision, error) {
		return types.ExecutiveDecision{Verdict: types.VerdictNoGo, Rationale: rationale}, nil
	}

	if !risk.Approved {
		return noGo(fmt.Sprintf("risk gate veto: %s", risk.Reason))
	}

	remaining := dailyLossLimitUSD - summary.DailyLossUSD
	if remaining <= 0 {
		return noGo(fmt.Sprintf("daily loss budget exhausted (%.2f of %.2f used)", summary.DailyLossUSD, dailyLossLimitUSD))
	}

	if opp.Score <= 50 {
		return noGo(fmt.Sprintf("conviction too low: score %.0f needs > 50", opp.Score))
	}

	proposed := summary.TotalValueUSD * g.cfg.MaxPositionSizePct / 100
	if proposed <= 0 {
		return noGo("no portfolio capital available for sizing")
	}
	capUSD := summary.TotalValueUSD * positionCapPct / 100
	if proposed > capUSD {
		return noGo(fmt.Sprintf("position %.2f exceeds %.1f%% portfolio cap of %.2f", proposed, positionCapPct, capUSD))
	}

	return types.ExecutiveDecision{
		Verdict:         types.VerdictGo,
		Rationale:       fmt.Sprintf("score %.0f, risk %.0f, %.2f loss budget remaining", opp.Score, risk.RiskScore, remaining),
		PositionSizeUSD: proposed,
	}, nil
}
