package shadow

import (
	"image"
	"log/slog"
	"math"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// Draw is one viewport of the shadow draw pass.
type Draw struct {
	LightIndex int // visible-light index
	Kind       light.Kind
	TileIndex  int // index into the atlas's tile buffer
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Viewport   image.Rectangle // pixels, atlas origin
	Split      SplitData
	DepthBias  float32
}

// Plan is one frame's shadow atlas layout and GPU data.
type Plan struct {
	Directional      AtlasLayout
	DirectionalCount int // shadowed directional lights
	DirectionalTiles [MaxDirectionalTiles]TileRecord
	Cascade          CascadeData

	Punctual          AtlasLayout
	PunctualTileCount int
	PunctualTiles     [MaxPunctualTiles]TileRecord

	// Draws lists directional viewports first, then punctual ones, in
	// registration order.
	Draws []Draw
}

// Empty reports whether no light was given a shadow.
func (p *Plan) Empty() bool {
	return p.DirectionalCount == 0 && p.PunctualTileCount == 0
}

// DirectionalTileCount returns the number of directional tiles in use.
func (p *Plan) DirectionalTileCount() int {
	return p.DirectionalCount * int(p.Cascade.Params[3])
}

// Planner packs shadow-casting lights into the directional and punctual atlases.
// It implements light.ShadowRegistrar so the classifier can register lights
// while it walks the visible list.
type Planner interface {
	light.ShadowRegistrar

	// Setup resets per-frame state. culler answers caster and matrix queries
	// for this frame's visibleCount visible lights; a nil culler refuses
	// every registration.
	Setup(culler Culler, visibleCount int)

	// Plan computes every tile's matrices, issues the single batched caster
	// culling call and returns the frame's plan. Plan returns an empty plan
	// without culling when no light was registered. The returned plan is
	// reused by the next call.
	Plan() *Plan

	// Settings returns the shadow settings the planner was built with.
	Settings() Settings
}

type registeredShadow struct {
	light light.VisibleLight
	index int // visible-light index
}

type plannerImpl struct {
	culler   Culler
	settings Settings
	logger   *slog.Logger

	directional      [MaxDirectionalShadows]registeredShadow
	directionalCount int

	// punctual is indexed by first tile; a point light occupies six entries
	// of the tile range but only its first entry is read.
	punctual          [MaxPunctualTiles]registeredShadow
	punctualTileCount int

	visibleCount int
	splits       []SplitData
	perLight     []LightCullingInfo
	plan         Plan
}

var _ Planner = &plannerImpl{}

// NewPlanner creates a Planner.
//
// Parameters:
//   - options: variadic list of PlannerBuilderOption functions
//
// Returns:
//   - Planner: the new planner
func NewPlanner(options ...PlannerBuilderOption) Planner {
	p := &plannerImpl{
		settings: DefaultSettings(),
		logger:   common.NopLogger(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *plannerImpl) Settings() Settings {
	return p.settings
}

func (p *plannerImpl) Setup(culler Culler, visibleCount int) {
	p.culler = culler
	p.directionalCount = 0
	p.punctualTileCount = 0
	p.visibleCount = visibleCount

	n := visibleCount * MaxTilesPerLight
	if cap(p.splits) < n {
		p.splits = make([]SplitData, n)
	}
	p.splits = p.splits[:n]
	clear(p.splits)

	if cap(p.perLight) < visibleCount {
		p.perLight = make([]LightCullingInfo, visibleCount)
	}
	p.perLight = p.perLight[:visibleCount]
	clear(p.perLight)
}

// castsShadow applies the refusal rules shared by both atlases.
func (p *plannerImpl) castsShadow(l light.VisibleLight, index int) bool {
	if !l.Shadow.Enabled || l.Shadow.Strength <= minStrength {
		return false
	}
	if p.culler == nil || index < 0 || index >= p.visibleCount {
		return false
	}
	_, ok := p.culler.ShadowCasterBounds(index)
	return ok
}

func (p *plannerImpl) RegisterDirectional(l light.VisibleLight, index int) light.ShadowDescriptor {
	if p.directionalCount >= MaxDirectionalShadows {
		p.logger.Debug("shadow: directional shadow cap reached", "light", index)
		return light.NoShadow
	}
	if !p.castsShadow(l, index) {
		return light.NoShadow
	}

	p.directional[p.directionalCount] = registeredShadow{light: l, index: index}
	start := p.directionalCount * p.settings.CascadeCount
	p.directionalCount++
	return light.ShadowDescriptor{
		Kind:           light.KindDirectional,
		Strength:       l.Shadow.Strength,
		TileStartIndex: start,
		NormalBias:     l.Shadow.NormalBias,
	}
}

func (p *plannerImpl) RegisterPunctual(l light.VisibleLight, index int) light.ShadowDescriptor {
	consume := l.Kind.ShadowTileCount()
	if p.punctualTileCount+consume > MaxPunctualTiles {
		p.logger.Debug("shadow: punctual tile budget exceeded",
			"light", index, "kind", l.Kind, "used", p.punctualTileCount)
		return light.NoShadow
	}
	if !p.castsShadow(l, index) {
		return light.NoShadow
	}

	start := p.punctualTileCount
	p.punctual[start] = registeredShadow{light: l, index: index}
	p.punctualTileCount += consume
	return light.ShadowDescriptor{
		Kind:           l.Kind,
		Strength:       l.Shadow.Strength,
		TileStartIndex: start,
		NormalBias:     l.Shadow.NormalBias,
	}
}

func (p *plannerImpl) Plan() *Plan {
	p.plan = Plan{Draws: p.plan.Draws[:0]}
	plan := &p.plan
	if p.directionalCount+p.punctualTileCount == 0 {
		return plan
	}

	p.planDirectional(plan)
	p.planPunctual(plan)

	p.culler.CullShadowCasters(CastersCullingInfos{
		Splits:   p.splits,
		PerLight: p.perLight,
	})
	return plan
}

func (p *plannerImpl) planDirectional(plan *Plan) {
	s := p.settings
	cascades := s.CascadeCount
	layout := NewAtlasLayout(s.DirectionalMapSize, p.directionalCount*cascades)
	mapSizeRcp := 1 / float32(s.DirectionalMapSize)
	border := 0.5 * mapSizeRcp

	var spheres [MaxCascades]mgl32.Vec4
	for i := range p.directionalCount {
		reg := p.directional[i]
		splitOffset := reg.index * MaxTilesPerLight

		for j := range cascades {
			tile := i*cascades + j
			view, proj, split := p.culler.ComputeDirectionalMatrices(
				reg.index, j, cascades, s.CascadeRatios, layout.TileSize, reg.light.Shadow.NearPlane)

			lo, hi := layout.UVRect(tile)
			plan.DirectionalTiles[tile] = NewTileRecord(lo, hi, 0, border,
				WorldToShadow(proj, view, layout.TileOffset(tile), mapSizeRcp, layout.TileSize, s.ReversedZ))

			// Cascade spheres depend only on the camera and ratios.
			if i == 0 {
				spheres[j] = split.CullingSphere
			}
			p.splits[splitOffset+j] = split
			plan.Draws = append(plan.Draws, Draw{
				LightIndex: reg.index,
				Kind:       light.KindDirectional,
				TileIndex:  tile,
				View:       view,
				Projection: proj,
				Viewport:   layout.Viewport(tile),
				Split:      split,
				DepthBias:  reg.light.Shadow.Bias,
			})
		}
		p.perLight[reg.index] = LightCullingInfo{
			Projection: light.ProjectionOrthographic,
			SplitStart: splitOffset,
			SplitCount: cascades,
		}
	}

	plan.Directional = layout
	plan.DirectionalCount = p.directionalCount
	plan.Cascade = NewCascadeData(spheres, s)
}

func (p *plannerImpl) planPunctual(plan *Plan) {
	s := p.settings
	layout := NewAtlasLayout(s.PunctualMapSize, p.punctualTileCount)
	mapSizeRcp := 1 / float32(s.PunctualMapSize)
	border := 0.5 * mapSizeRcp

	record := func(reg registeredShadow, tile, splitIndex int, view, proj mgl32.Mat4, split SplitData, bias float32) {
		lo, hi := layout.UVRect(tile)
		plan.PunctualTiles[tile] = NewTileRecord(lo, hi, bias, border,
			WorldToShadow(proj, view, layout.TileOffset(tile), mapSizeRcp, layout.TileSize, s.ReversedZ))
		p.splits[reg.index*MaxTilesPerLight+splitIndex] = split
		plan.Draws = append(plan.Draws, Draw{
			LightIndex: reg.index,
			Kind:       reg.light.Kind,
			TileIndex:  tile,
			View:       view,
			Projection: proj,
			Viewport:   layout.Viewport(tile),
			Split:      split,
			DepthBias:  reg.light.Shadow.Bias,
		})
	}

	for i := 0; i < p.punctualTileCount; {
		reg := p.punctual[i]
		consume := reg.light.Kind.ShadowTileCount()

		switch reg.light.Kind {
		case light.KindSpot:
			view, proj, split := p.culler.ComputeSpotMatrices(reg.index)
			texel := 2 / (float32(layout.TileSize) * proj.At(0, 0))
			bias := reg.light.Shadow.NormalBias * texel * math.Sqrt2
			record(reg, i, 0, view, proj, split, bias)

		case light.KindPoint:
			texel := 2 / float32(layout.TileSize)
			bias := reg.light.Shadow.NormalBias * texel * math.Sqrt2
			fovBias := PointFovBias(bias, texel)
			for face := range consume {
				view, proj, split := p.culler.ComputePointMatrices(reg.index, CubeFace(face), fovBias)
				// Flip the vertical axis so the tiles match cube sampling.
				common.NegateRow(&view, 1)
				record(reg, i+face, face, view, proj, split, bias)
			}
		}

		p.perLight[reg.index] = LightCullingInfo{
			Projection: light.ProjectionPerspective,
			SplitStart: reg.index * MaxTilesPerLight,
			SplitCount: consume,
		}
		i += consume
	}

	plan.Punctual = layout
	plan.PunctualTileCount = p.punctualTileCount
}

// PointFovBias returns how many degrees a cube face's 90 degree field of view
// is widened so filtering near face seams stays inside the rendered tile.
//
// Parameters:
//   - bias: the normal bias scaled to texels
//   - texel: the size of one texel at unit distance
//
// Returns:
//   - float32: the extra field of view in degrees
func PointFovBias(bias, texel float32) float32 {
	return float32(math.Atan(float64(1+bias+texel)))*2*(180/math.Pi) - 90
}
