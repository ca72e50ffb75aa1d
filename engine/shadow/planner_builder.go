package shadow

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-forward/common"
)

// PlannerBuilderOption is a function that configures a Planner during construction.
type PlannerBuilderOption func(*plannerImpl)

// WithSettings sets the shadow settings. The settings are expected to be
// validated already.
//
// Parameters:
//   - s: the shadow settings
//
// Returns:
//   - PlannerBuilderOption: a function that applies the settings
func WithSettings(s Settings) PlannerBuilderOption {
	return func(p *plannerImpl) {
		p.settings = s
	}
}

// WithLogger sets the logger used for refusal diagnostics.
func WithLogger(l *slog.Logger) PlannerBuilderOption {
	return func(p *plannerImpl) {
		p.logger = common.LoggerOrNop(l)
	}
}
