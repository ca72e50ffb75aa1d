package cookie

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-forward/common"
)

// PlannerBuilderOption is a function that configures a Planner during construction.
type PlannerBuilderOption func(*plannerImpl)

// WithAtlasSize sets the edge length of the cookie atlas in texels.
//
// Parameters:
//   - size: the atlas edge length
//
// Returns:
//   - PlannerBuilderOption: a function that creates the atlas
func WithAtlasSize(size int) PlannerBuilderOption {
	return func(p *plannerImpl) {
		p.atlas = NewAtlas(size)
	}
}

// WithLogger sets the logger used for capacity diagnostics.
func WithLogger(l *slog.Logger) PlannerBuilderOption {
	return func(p *plannerImpl) {
		p.logger = common.LoggerOrNop(l)
	}
}
