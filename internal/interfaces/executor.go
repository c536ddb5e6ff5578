package interfaces

import (
	"context"

	"quantai-bot/internal/types"
)

// Executor attempts a swap on the venue. A failed attempt is reported in
// the result, not as an error; the error return is reserved for transport
// level faults.
type Executor interface {
	Execute(ctx context.Context, req types.SwapRequest) (types.ExecutionResult, error)
}
