package gate

import (
	"context"
	"fmt"

	"quantai-bot/internal/types"
)

// Veto reasons, in precedence order.
const (
	ReasonTooRisky         = "too risky"
	ReasonTooThin          = "too thin"
	ReasonWhaleRisk        = "whale risk"
	ReasonDistributionRisk = "distribution risk"
)

// RiskConfig holds the externally configured veto thresholds.
type RiskConfig struct {
	MinLiquidityUSD     float64
	MaxConcentrationPct float64
	MinHolderCount      int
}

// RiskGate is a deterministic rule gate. It derives a 0-100 risk score from
// the opportunity snapshot and applies the veto rules in fixed precedence,
// first match wins.
type RiskGate struct {
	cfg RiskConfig
}

func NewRiskGate(cfg RiskConfig) *RiskGate {
	return &RiskGate{cfg: cfg}
}

func (g *RiskGate) Assess(_ context.Context, opp types.Opportunity) (types.RiskAssessment, error) {
	checks := types.RiskChecks{
		LiquidityOK:     opp.LiquidityUSD >= g.cfg.MinLiquidityUSD,
		ConcentrationOK: opp.TopHolderPct <= g.cfg.MaxConcentrationPct,
		HolderCountOK:   opp.HolderCount >= g.cfg.MinHolderCount,
	}
	score := g.riskScore(opp)

	a := types.RiskAssessment{RiskScore: score, Checks: checks}
	switch {
	case score > 70:
		a.Reason = ReasonTooRisky
	case !checks.LiquidityOK:
		a.Reason = ReasonTooThin
	case !checks.ConcentrationOK:
		a.Reason = ReasonWhaleRisk
	case !checks.HolderCountOK:
		a.Reason = ReasonDistributionRisk
	default:
		a.Approved = true
		a.Reason = fmt.Sprintf("risk score %.0f within tolerance", score)
	}
	return a, nil
}

// riskScore weighs the classic memecoin rug signatures: tiny market cap,
// volume churning far above the pool depth, thin liquidity and concentrated
// supply.
func (g *RiskGate) riskScore(opp types.Opportunity) float64 {
	score := 0.0

	switch {
	case opp.MarketCapUSD < 100_000:
		score += 35
	case opp.MarketCapUSD < 1_000_000:
		score += 20
	case opp.MarketCapUSD < 10_000_000:
		score += 10
	}

	if opp.LiquidityUSD > 0 {
		turnover := opp.Volume24hUSD / opp.LiquidityUSD
		switch {
		case turnover > 10:
			score += 35
		case turnover > 5:
			score += 20
		case turnover > 2:
			score += 10
		}
	}

	if opp.LiquidityUSD < 2*g.cfg.MinLiquidityUSD {
		score += 15
	}

	score += opp.TopHolderPct * 0.5

	if opp.HolderCount < 2*g.cfg.MinHolderCount {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}
