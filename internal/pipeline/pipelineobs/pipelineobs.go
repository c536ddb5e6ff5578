package pipelineobs

import (
	"context"
	"time"

	"quantai-bot/internal/interfaces"
	"quantai-bot/internal/logger"
	"quantai-bot/internal/trace"
	"quantai-bot/internal/types"
)

type observablePipeline struct {
	inner interfaces.Pipeline
}

var _ interfaces.Pipeline = (*observablePipeline)(nil)

func Wrap(p interfaces.Pipeline) interfaces.Pipeline {
	return &observablePipeline{inner: p}
}

func (o *observablePipeline) RunCycle(ctx context.Context) (types.CycleReport, error) {
	ctx, span := trace.StartSpan(ctx, "pipeline.RunCycle")
	defer span.End()

	start := time.Now()

	report, err := o.inner.RunCycle(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Cycle failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return report, err
	}

	logger.InfoSkip(ctx, 1, "Cycle completed",
		"cycle", report.Cycle,
		"outcome", report.Outcome,
		"stages", len(report.Stages),
		"trade_id", report.TradeID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}
