package interfaces

import (
	"context"

	"quantai-bot/internal/types"
)

type Pipeline interface {
	RunCycle(ctx context.Context) (types.CycleReport, error)
}
