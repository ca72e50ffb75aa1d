// Package cookie packs light cookie textures into one persistent atlas and
// derives the per-light transforms used to sample them.
package cookie

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxCookies is the number of cookie slots, one per light slot.
const MaxCookies = light.MaxDirectionalLights + light.MaxPunctualLights

// DefaultAtlasSize is the default cookie atlas edge length.
const DefaultAtlasSize = 1024

const (
	// shrinkTexels is the inset applied on each side of a region so bilinear
	// sampling never reads a neighbouring cookie.
	shrinkTexels = 0.5
	// minUVScale is the smallest normal half float; directional cookie UV
	// scales are clamped away from zero to it.
	minUVScale = 6.1035e-5
	spotNear   = 0.001
)

// Planner assigns cookie slots during classification and builds the cookie
// buffer afterwards. It implements light.CookieRegistrar.
type Planner interface {
	light.CookieRegistrar

	// Setup starts a frame. If the previous frame ran out of atlas space the
	// atlas is reset here and cookies are repacked in registration order.
	Setup()

	// Build computes the sampling data of every registered cookie.
	//
	// Parameters:
	//   - uvStartsAtTop: false flips region offsets for bottom-origin textures
	//
	// Returns:
	//   - []GPUCookie: one entry per cookie slot in use
	Build(uvStartsAtTop bool) []GPUCookie

	// Atlas returns the persistent atlas.
	Atlas() *Atlas

	// Count returns the number of cookie slots in use this frame.
	Count() int
}

type registeredCookie struct {
	light       light.VisibleLight
	scaleOffset mgl32.Vec4
	width       int
	height      int
}

type plannerImpl struct {
	atlas        *Atlas
	logger       *slog.Logger
	resetPending bool

	lights [MaxCookies]registeredCookie
	count  int
	data   [MaxCookies]GPUCookie
}

var _ Planner = &plannerImpl{}

// NewPlanner creates a Planner with its own atlas.
//
// Parameters:
//   - options: variadic list of PlannerBuilderOption functions
//
// Returns:
//   - Planner: the new planner
func NewPlanner(options ...PlannerBuilderOption) Planner {
	p := &plannerImpl{logger: common.NopLogger()}
	for _, opt := range options {
		opt(p)
	}
	if p.atlas == nil {
		p.atlas = NewAtlas(DefaultAtlasSize)
	}
	return p
}

func (p *plannerImpl) Atlas() *Atlas {
	return p.atlas
}

func (p *plannerImpl) Count() int {
	return p.count
}

func (p *plannerImpl) Setup() {
	p.count = 0
	if p.resetPending {
		p.logger.Debug("cookie: resetting atlas after capacity pressure", "entries", p.atlas.Len())
		p.atlas.Reset()
		p.resetPending = false
	}
}

func (p *plannerImpl) RegisterCookie(l light.VisibleLight) int {
	if l.Cookie == nil || p.count >= MaxCookies {
		return light.NoCookie
	}
	so, ok := p.atlas.Place(l.Cookie)
	if !ok {
		p.logger.Debug("cookie: atlas full", "cookie", l.Cookie.ID, "kind", l.Kind)
		p.resetPending = true
		return light.NoCookie
	}
	w, h := AllocationSize(l.Cookie)
	p.lights[p.count] = registeredCookie{light: l, scaleOffset: so, width: w, height: h}
	p.count++
	return p.count - 1
}

func (p *plannerImpl) Build(uvStartsAtTop bool) []GPUCookie {
	for i := range p.count {
		reg := p.lights[i]
		p.data[i] = GPUCookie{
			WorldToLight:  WorldToLight(reg.light),
			UVScaleOffset: ShrinkRegion(reg.scaleOffset, reg.width, reg.height, uvStartsAtTop),
			WrapMode:      float32(reg.light.Cookie.WrapMode),
		}
	}
	return p.data[:p.count]
}

// ShrinkRegion insets a UV scale/offset by half a texel on every side of a
// width x height texel region and flips it for bottom-origin textures. Each
// axis is inset by its own texel size.
//
// Parameters:
//   - so: UV scale (xy) and offset (zw)
//   - width: the region's width in texels
//   - height: the region's height in texels
//   - uvStartsAtTop: whether texture V grows downward
//
// Returns:
//   - mgl32.Vec4: the adjusted scale and offset
func ShrinkRegion(so mgl32.Vec4, width, height int, uvStartsAtTop bool) mgl32.Vec4 {
	for axis, texels := range [2]int{width, height} {
		if texels <= 0 {
			continue
		}
		ft := float32(texels)
		so[2+axis] += so[axis] * shrinkTexels / ft
		so[axis] *= (ft - 2*shrinkTexels) / ft
	}
	if !uvStartsAtTop {
		so[3] = 1 - so[3] - so[1]
	}
	return so
}

// WorldToLight returns the matrix taking a world position into the cookie's
// sampling space for l.
//
// Spot lights project through the cone with the view axis flip of the
// perspective matrix undone. Directional lights map Size2D of world space onto
// the unit square. Point lights sample by direction in light space.
//
// Parameters:
//   - l: the light owning the cookie
//
// Returns:
//   - mgl32.Mat4: the world-to-cookie matrix
func WorldToLight(l light.VisibleLight) mgl32.Mat4 {
	worldToLight := l.WorldToLocal()
	switch l.Kind {
	case light.KindSpot:
		persp := mgl32.Perspective(mgl32.DegToRad(l.SpotAngle), 1, spotNear, l.Range)
		common.NegateCol(&persp, 2)
		return persp.Mul4(worldToLight)

	case light.KindDirectional:
		size := mgl32.Vec2{10, 10}
		if l.Cookie != nil {
			size = l.Cookie.Size2D
		}
		sx, sy := clampUVScale(1/size[0]), clampUVScale(1/size[1])
		ortho := mgl32.Ortho(-0.5, 0.5, -0.5, 0.5, -0.5, 0.5)
		return ortho.Mul4(mgl32.Scale3D(sx, sy, 1)).Mul4(worldToLight)

	default:
		return worldToLight
	}
}

func clampUVScale(v float32) float32 {
	switch {
	case v >= 0 && v < minUVScale:
		return minUVScale
	case v < 0 && v > -minUVScale:
		return -minUVScale
	}
	return v
}
