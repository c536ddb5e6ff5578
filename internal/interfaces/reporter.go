package interfaces

import (
	"context"

	"quantai-bot/internal/types"
)

// Reporter produces a human-facing announcement for a finished attempt.
// Pure transformation, no state mutation.
type Reporter interface {
	Announce(ctx context.Context, opp types.Opportunity, exec types.ExecutionResult) (types.Announcement, error)
}
