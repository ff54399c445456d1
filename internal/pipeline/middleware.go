package pipeline

import (
	"context"
	"time"

	"github.com/yourusername/race-features/internal/frame"
	"github.com/yourusername/race-features/internal/logger"
	"github.com/yourusername/race-features/internal/metrics"
)

// Timed wraps a stage so that each run logs message with the elapsed
// wall-clock time and records it in the stage duration histogram.
func Timed(log *logger.PipelineLogger, message string, s Stage) Stage {
	next := s.Run
	name := s.Name
	s.Run = func(ctx context.Context, t *frame.Table) (*frame.Table, error) {
		start := time.Now()
		out, err := next(ctx, t)
		elapsed := time.Since(start)
		if err != nil {
			metrics.RecordStageFailure(name)
			return nil, err
		}
		metrics.RecordStage(name, elapsed.Seconds())
		log.LogStage(message, elapsed)
		return out, nil
	}
	return s
}

// ComputeOrSkip wraps a stage so that it returns its input unchanged when
// every name in outputs is already a column, unless force is set.
func ComputeOrSkip(log *logger.PipelineLogger, outputs []string, force bool, s Stage) Stage {
	next := s.Run
	name := s.Name
	s.Run = func(ctx context.Context, t *frame.Table) (*frame.Table, error) {
		if !force && t.Has(outputs...) {
			metrics.RecordStageSkipped(name)
			log.LogSkip(outputs)
			return t, nil
		}
		return next(ctx, t)
	}
	return s
}
