package interfaces

import (
	"context"

	"quantai-bot/internal/types"
)

// Discovery surfaces candidate opportunities for the current market
// condition, best first. An empty slice is a valid result.
type Discovery interface {
	FindOpportunities(ctx context.Context, condition string) ([]types.Opportunity, error)
}
