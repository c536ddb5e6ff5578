package interfaces

import (
	"context"

	"quantai-bot/internal/types"
)

type ApprovalGate interface {
	Decide(ctx context.Context, opp types.Opportunity, risk types.RiskAssessment, summary types.PortfolioSummary, dailyLossLimitUSD float64) (types.ExecutiveDecision, error)
}
