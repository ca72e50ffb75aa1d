// Package shadow plans the directional and punctual shadow-map atlases for one
// camera per frame: which lights get shadow tiles, where each tile lives in its
// atlas, and the matrices the shadow draw pass and the lit shaders need.
package shadow

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// MaxDirectionalShadows is the number of directional lights that may cast shadows.
	MaxDirectionalShadows = 4
	// MaxCascades is the largest supported cascade count.
	MaxCascades = 4
	// MaxPunctualTiles is the punctual atlas tile budget. A spot light uses one
	// tile and a point light uses PointTileCount.
	MaxPunctualTiles = 25
	// PointTileCount is the number of punctual tiles a point light consumes.
	PointTileCount = light.PointShadowTiles
	// MaxTilesPerLight strides the culling split buffer per visible light.
	MaxTilesPerLight = PointTileCount
	// MaxDirectionalTiles is the capacity of the directional tile buffer.
	MaxDirectionalTiles = MaxDirectionalShadows * MaxCascades

	// DefaultMapSize is the default edge length of both atlases.
	DefaultMapSize = 2048

	// minStrength is the strength at or below which a light is treated as unshadowed.
	minStrength = 0.00001
)

// Settings is the pipeline-global shadow configuration.
type Settings struct {
	MaxDistance        float32    `toml:"max_distance"`
	CascadeCount       int        `toml:"cascade_count"`
	CascadeRatios      mgl32.Vec3 `toml:"cascade_ratios"`
	DistanceFade       float32    `toml:"distance_fade"`
	CascadeFade        float32    `toml:"cascade_fade"`
	DirectionalMapSize int        `toml:"directional_map_size"`
	PunctualMapSize    int        `toml:"punctual_map_size"`
	// ReversedZ negates the projection depth row before building world-to-shadow matrices.
	ReversedZ bool `toml:"-"`
}

// DefaultSettings returns the shadow settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		MaxDistance:        50,
		CascadeCount:       1,
		CascadeRatios:      mgl32.Vec3{0.1, 0.25, 0.5},
		DistanceFade:       0.1,
		CascadeFade:        0.3,
		DirectionalMapSize: DefaultMapSize,
		PunctualMapSize:    DefaultMapSize,
	}
}

// ValidMapSize reports whether size is an accepted atlas edge length.
func ValidMapSize(size int) bool {
	switch size {
	case 1024, 2048, 4096, 8192:
		return true
	}
	return false
}

// Validate checks the settings and returns a descriptive error for the first
// invalid field.
func (s Settings) Validate() error {
	if s.CascadeCount < 1 || s.CascadeCount > MaxCascades {
		return fmt.Errorf("cascade count %d out of range [1, %d]", s.CascadeCount, MaxCascades)
	}
	if !ValidMapSize(s.DirectionalMapSize) {
		return fmt.Errorf("directional map size %d is not one of 1024, 2048, 4096, 8192", s.DirectionalMapSize)
	}
	if !ValidMapSize(s.PunctualMapSize) {
		return fmt.Errorf("punctual map size %d is not one of 1024, 2048, 4096, 8192", s.PunctualMapSize)
	}
	if s.MaxDistance <= 0 {
		return fmt.Errorf("max distance must be positive, got %g", s.MaxDistance)
	}
	prev := float32(0)
	for i := range s.CascadeCount - 1 {
		r := s.CascadeRatios[i]
		if r <= prev || r >= 1 {
			return fmt.Errorf("cascade ratio %d (%g) must increase within (0, 1)", i, r)
		}
		prev = r
	}
	return nil
}
