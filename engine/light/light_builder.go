package light

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/go-gl/mathgl/mgl32"
)

// VisibleLightOption is a function that configures a VisibleLight during construction.
type VisibleLightOption func(*lightBuilder)

// lightBuilder accumulates options before the final VisibleLight is assembled,
// so color and intensity can be given in any order.
type lightBuilder struct {
	light     VisibleLight
	color     mgl32.Vec3
	intensity float32
	position  mgl32.Vec3
	forward   mgl32.Vec3
	transform *mgl32.Mat4
}

// NewVisibleLight creates a VisibleLight of the given kind with sensible
// defaults and any provided options applied.
//
// Parameters:
//   - kind: the kind of light to create (directional, point, or spot)
//   - opts: variadic list of VisibleLightOption functions to configure the light
//
// Returns:
//   - VisibleLight: the assembled light
func NewVisibleLight(kind Kind, opts ...VisibleLightOption) VisibleLight {
	b := &lightBuilder{
		light: VisibleLight{
			Kind:               kind,
			Range:              10,
			SpotAngle:          30,
			InnerSpotAngle:     21.8,
			RenderingLayerMask: 1,
			Shadow: ShadowConfig{
				Strength:   1,
				Bias:       0.05,
				NormalBias: 0.4,
				NearPlane:  0.2,
			},
		},
		color:     mgl32.Vec3{1, 1, 1},
		intensity: 1,
		forward:   mgl32.Vec3{0, 0, 1},
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.transform != nil {
		b.light.LocalToWorld = *b.transform
	} else {
		rot := mgl32.QuatBetweenVectors(mgl32.Vec3{0, 0, 1}, b.forward.Normalize()).Mat4()
		b.light.LocalToWorld = mgl32.Translate3D(b.position[0], b.position[1], b.position[2]).Mul4(rot)
	}
	b.light.FinalColor = b.color.Mul(b.intensity)
	return b.light
}

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - x: the x position component
//   - y: the y position component
//   - z: the z position component
//
// Returns:
//   - VisibleLightOption: a function that applies the position option
func WithPosition(x, y, z float32) VisibleLightOption {
	return func(b *lightBuilder) {
		b.position = mgl32.Vec3{x, y, z}
	}
}

// WithForward is an option builder that sets the axis the light shines along.
// Zero vectors are ignored.
//
// Parameters:
//   - x, y, z: the forward direction components (normalized internally)
//
// Returns:
//   - VisibleLightOption: a function that applies the forward option
func WithForward(x, y, z float32) VisibleLightOption {
	return func(b *lightBuilder) {
		f := mgl32.Vec3{x, y, z}
		if f.Len() > 0 {
			b.forward = f
		}
	}
}

// WithTransform is an option builder that sets the full local-to-world matrix,
// overriding WithPosition and WithForward.
func WithTransform(m mgl32.Mat4) VisibleLightOption {
	return func(b *lightBuilder) {
		b.transform = &m
	}
}

// WithColor is an option builder that sets the linear RGB color of the light.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - bl: the blue color component
//
// Returns:
//   - VisibleLightOption: a function that applies the color option
func WithColor(r, g, bl float32) VisibleLightOption {
	return func(b *lightBuilder) {
		b.color = mgl32.Vec3{r, g, bl}
	}
}

// WithIntensity is an option builder that sets the scalar intensity multiplier
// folded into FinalColor.
func WithIntensity(intensity float32) VisibleLightOption {
	return func(b *lightBuilder) {
		b.intensity = intensity
	}
}

// WithRange is an option builder that sets the attenuation range of point and
// spot lights.
func WithRange(lightRange float32) VisibleLightOption {
	return func(b *lightBuilder) {
		b.light.Range = lightRange
	}
}

// WithSpotCone is an option builder that sets the full inner and outer cone
// angles of a spot light in degrees.
//
// Parameters:
//   - innerDeg: full inner cone angle in degrees
//   - outerDeg: full outer cone angle in degrees
//
// Returns:
//   - VisibleLightOption: a function that applies the spot cone option
func WithSpotCone(innerDeg, outerDeg float32) VisibleLightOption {
	return func(b *lightBuilder) {
		b.light.InnerSpotAngle = innerDeg
		b.light.SpotAngle = outerDeg
	}
}

// WithRenderingLayerMask sets the rendering-layer mask written next to the color.
func WithRenderingLayerMask(mask uint32) VisibleLightOption {
	return func(b *lightBuilder) {
		b.light.RenderingLayerMask = mask
	}
}

// WithShadows is an option builder that enables shadows with the given
// strength and normal bias.
//
// Parameters:
//   - strength: shadow strength in [0, 1]
//   - normalBias: normal-offset bias scale
//
// Returns:
//   - VisibleLightOption: a function that applies the shadow option
func WithShadows(strength, normalBias float32) VisibleLightOption {
	return func(b *lightBuilder) {
		b.light.Shadow.Enabled = true
		b.light.Shadow.Strength = strength
		b.light.Shadow.NormalBias = normalBias
	}
}

// WithShadowConfig replaces the whole shadow configuration.
func WithShadowConfig(cfg ShadowConfig) VisibleLightOption {
	return func(b *lightBuilder) {
		b.light.Shadow = cfg
	}
}

// WithCookie attaches a cookie texture to the light.
func WithCookie(c *Cookie) VisibleLightOption {
	return func(b *lightBuilder) {
		b.light.Cookie = c
	}
}

// WithScreenRect sets the normalized screen-space bounds of a punctual light,
// normally supplied by the camera culling step.
//
// Parameters:
//   - minX, minY, maxX, maxY: bounds in [0, 1] viewport space
//
// Returns:
//   - VisibleLightOption: a function that applies the screen rect option
func WithScreenRect(minX, minY, maxX, maxY float32) VisibleLightOption {
	return func(b *lightBuilder) {
		b.light.ScreenRect = common.Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
	}
}
