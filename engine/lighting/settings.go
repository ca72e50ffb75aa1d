package lighting

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/cookie"
	"github.com/Carmen-Shannon/oxy-forward/engine/shadow"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidSettings is wrapped by every settings validation failure.
var ErrInvalidSettings = errors.New("lighting: invalid settings")

const (
	// DefaultTileSize is the default Forward+ tile edge length in pixels.
	DefaultTileSize = 64
	// DefaultMaxLightsPerTile is the default per-tile light list length.
	DefaultMaxLightsPerTile = 16
)

// Platform holds the conventions of the graphics backend.
type Platform struct {
	ReversedZ     bool `toml:"reversed_z"`
	UVStartsAtTop bool `toml:"uv_starts_at_top"`
}

// Settings is the complete lighting configuration.
type Settings struct {
	TileSize         int             `toml:"tile_size"`
	MaxLightsPerTile int             `toml:"max_lights_per_tile"`
	Shadow           shadow.Settings `toml:"shadow"`
	CookieAtlasSize  int             `toml:"cookie_atlas_size"`
	Platform         Platform        `toml:"platform"`
	// Workers is the tile culling worker count. Zero picks NumCPU - 1.
	Workers int `toml:"workers"`
}

// DefaultSettings returns the settings for a WebGPU backend: forward depth
// and texture rows starting at the top.
func DefaultSettings() Settings {
	return Settings{
		TileSize:         DefaultTileSize,
		MaxLightsPerTile: DefaultMaxLightsPerTile,
		Shadow:           shadow.DefaultSettings(),
		CookieAtlasSize:  cookie.DefaultAtlasSize,
		Platform:         Platform{UVStartsAtTop: true},
	}
}

// LoadSettings reads a TOML settings file on top of DefaultSettings. Unknown
// keys are rejected. The result is validated.
//
// Parameters:
//   - path: the settings file
//
// Returns:
//   - Settings: the loaded settings
//   - error: I/O, decode or validation failure
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	f, err := os.Open(path)
	if err != nil {
		return s, fmt.Errorf("lighting: open settings: %w", err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&s); err != nil {
		return s, fmt.Errorf("lighting: decode settings %s: %w", path, err)
	}
	s = s.withDefaults()
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Marshal encodes the settings as TOML.
func (s Settings) Marshal() ([]byte, error) {
	return toml.Marshal(s)
}

// withDefaults fills zero fields that have a non-zero default.
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	s.TileSize = common.Coalesce(s.TileSize, d.TileSize)
	s.MaxLightsPerTile = common.Coalesce(s.MaxLightsPerTile, d.MaxLightsPerTile)
	s.CookieAtlasSize = common.Coalesce(s.CookieAtlasSize, d.CookieAtlasSize)
	s.Shadow.CascadeCount = common.Coalesce(s.Shadow.CascadeCount, d.Shadow.CascadeCount)
	s.Shadow.DirectionalMapSize = common.Coalesce(s.Shadow.DirectionalMapSize, d.Shadow.DirectionalMapSize)
	s.Shadow.PunctualMapSize = common.Coalesce(s.Shadow.PunctualMapSize, d.Shadow.PunctualMapSize)
	s.Workers = common.Coalesce(s.Workers, max(runtime.NumCPU()-1, 1))
	return s
}

// Validate checks every field and wraps ErrInvalidSettings on failure.
func (s Settings) Validate() error {
	switch s.TileSize {
	case 32, 64, 128:
	default:
		return fmt.Errorf("%w: tile size %d is not one of 32, 64, 128", ErrInvalidSettings, s.TileSize)
	}
	if s.MaxLightsPerTile < 1 {
		return fmt.Errorf("%w: max lights per tile must be at least 1, got %d", ErrInvalidSettings, s.MaxLightsPerTile)
	}
	if s.CookieAtlasSize < 1 {
		return fmt.Errorf("%w: cookie atlas size must be positive, got %d", ErrInvalidSettings, s.CookieAtlasSize)
	}
	if s.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidSettings, s.Workers)
	}
	if err := s.Shadow.Validate(); err != nil {
		return fmt.Errorf("%w: shadow: %w", ErrInvalidSettings, err)
	}
	return nil
}

// shadowSettings returns the shadow settings with platform conventions applied.
func (s Settings) shadowSettings() shadow.Settings {
	out := s.Shadow
	out.ReversedZ = s.Platform.ReversedZ
	return out
}
