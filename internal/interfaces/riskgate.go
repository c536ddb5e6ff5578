package interfaces

import (
	"context"

	"quantai-bot/internal/types"
)

type RiskGate interface {
	Assess(ctx context.Context, opp types.Opportunity) (types.RiskAssessment, error)
}
