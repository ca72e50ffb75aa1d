package lighting

import (
	"log/slog"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-forward/engine/profiler"
)

// PipelineBuilderOption is a function that configures a Pipeline during construction.
type PipelineBuilderOption func(*pipelineImpl)

// WithLogger sets the logger shared by the pipeline and its planners.
//
// Parameters:
//   - l: the logger (nil discards)
//
// Returns:
//   - PipelineBuilderOption: a function that applies the logger option
func WithLogger(l *slog.Logger) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.logger = l
	}
}

// WithWorkerPool shares an existing worker pool for tile culling. The
// pipeline does not stop a pool it did not create.
//
// Parameters:
//   - pool: the worker pool
//
// Returns:
//   - PipelineBuilderOption: a function that applies the pool option
func WithWorkerPool(pool worker.DynamicWorkerPool) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.pool = pool
	}
}

// WithProfiler records per-stage timings of every Prepare call.
func WithProfiler(prof *profiler.Profiler) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.profiler = prof
	}
}

// WithTileSize overrides the configured Forward+ tile size.
func WithTileSize(size int) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.settings.TileSize = size
	}
}

// WithMaxLightsPerTile overrides the configured per-tile light cap.
func WithMaxLightsPerTile(n int) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.settings.MaxLightsPerTile = n
	}
}
