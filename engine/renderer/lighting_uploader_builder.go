package renderer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-forward/common"
)

// LightingUploaderOption is a function that configures a LightingUploader during construction.
type LightingUploaderOption func(*lightingUploaderImpl)

// WithLogger sets the logger used for resource reallocation messages.
//
// Parameters:
//   - logger: the logger, nil for none
//
// Returns:
//   - LightingUploaderOption: a function that applies the logger option
func WithLogger(logger *slog.Logger) LightingUploaderOption {
	return func(u *lightingUploaderImpl) {
		u.logger = common.LoggerOrNop(logger)
	}
}

// WithReversedZ makes the shadow comparison sampler pass on greater depth,
// matching shadow maps rendered with a reversed depth buffer.
//
// Parameters:
//   - reversed: whether shadow depth is reversed
//
// Returns:
//   - LightingUploaderOption: a function that applies the depth option
func WithReversedZ(reversed bool) LightingUploaderOption {
	return func(u *lightingUploaderImpl) {
		u.reversedZ = reversed
	}
}
