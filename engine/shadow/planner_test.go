package shadow

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCuller reports casters for every light not in noCasters and returns
// identity views with simple projections.
type fakeCuller struct {
	noCasters map[int]bool
	cullCalls int
	last      CastersCullingInfos
	faces     []CubeFace
}

func (f *fakeCuller) ShadowCasterBounds(i int) (common.Bounds, bool) {
	if f.noCasters[i] {
		return common.Bounds{}, false
	}
	return common.Bounds{Extents: mgl32.Vec3{1, 1, 1}}, true
}

func (f *fakeCuller) ComputeDirectionalMatrices(_, splitIndex, _ int, _ mgl32.Vec3, _ int, _ float32) (mgl32.Mat4, mgl32.Mat4, SplitData) {
	r := float32(splitIndex + 1)
	return mgl32.Ident4(), mgl32.Ortho(-r, r, -r, r, 0, 2*r), SplitData{CullingSphere: mgl32.Vec4{0, 0, 0, r}}
}

func (f *fakeCuller) ComputeSpotMatrices(int) (mgl32.Mat4, mgl32.Mat4, SplitData) {
	return mgl32.Ident4(), mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 10), SplitData{}
}

func (f *fakeCuller) ComputePointMatrices(_ int, face CubeFace, _ float32) (mgl32.Mat4, mgl32.Mat4, SplitData) {
	f.faces = append(f.faces, face)
	return mgl32.Ident4(), mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, 10), SplitData{}
}

func (f *fakeCuller) CullShadowCasters(infos CastersCullingInfos) {
	f.cullCalls++
	f.last = infos
}

func shadowed(kind light.Kind) light.VisibleLight {
	return light.NewVisibleLight(kind, light.WithShadows(1, 0.4))
}

func newTestPlanner(cascades int) Planner {
	s := DefaultSettings()
	s.CascadeCount = cascades
	return NewPlanner(WithSettings(s))
}

func TestPlannerPointAndSpot(t *testing.T) {
	p := newTestPlanner(1)
	c := &fakeCuller{}
	p.Setup(c, 2)

	point := p.RegisterPunctual(shadowed(light.KindPoint), 0)
	spot := p.RegisterPunctual(shadowed(light.KindSpot), 1)
	assert.Equal(t, 0, point.TileStartIndex)
	assert.Equal(t, 6, spot.TileStartIndex)

	plan := p.Plan()
	assert.Equal(t, 7, plan.PunctualTileCount)
	assert.Equal(t, 4, plan.Punctual.Split)
	assert.Len(t, plan.Draws, 7)
	assert.Equal(t, []CubeFace{0, 1, 2, 3, 4, 5}, c.faces)

	require.Equal(t, 1, c.cullCalls)
	require.Len(t, c.last.PerLight, 2)
	assert.Equal(t, LightCullingInfo{Projection: light.ProjectionPerspective, SplitStart: 0, SplitCount: 6}, c.last.PerLight[0])
	assert.Equal(t, LightCullingInfo{Projection: light.ProjectionPerspective, SplitStart: MaxTilesPerLight, SplitCount: 1}, c.last.PerLight[1])
	assert.Len(t, c.last.Splits, 2*MaxTilesPerLight)
}

func TestPlannerPointViewFlipsVerticalAxis(t *testing.T) {
	p := newTestPlanner(1)
	p.Setup(&fakeCuller{}, 1)
	p.RegisterPunctual(shadowed(light.KindPoint), 0)
	plan := p.Plan()
	for _, d := range plan.Draws {
		assert.Equal(t, float32(-1), d.View.At(1, 1))
		assert.Equal(t, float32(1), d.View.At(0, 0))
	}
}

func TestPlannerDirectionalCascades(t *testing.T) {
	p := newTestPlanner(4)
	c := &fakeCuller{}
	p.Setup(c, 5)
	for i := range 5 {
		d := p.RegisterDirectional(shadowed(light.KindDirectional), i)
		if i < MaxDirectionalShadows {
			assert.Equal(t, i*4, d.TileStartIndex)
			assert.True(t, d.HasShadow())
		} else {
			assert.False(t, d.HasShadow(), "fifth directional light must be refused")
		}
	}

	plan := p.Plan()
	assert.Equal(t, MaxDirectionalShadows, plan.DirectionalCount)
	assert.Equal(t, 16, plan.DirectionalTileCount())
	assert.Equal(t, 4, plan.Directional.Split)
	assert.Equal(t, float32(4), plan.Cascade.Params[3])
	assert.Equal(t, float32(2), plan.Cascade.CullingSpheres[1][3])
	assert.Equal(t, 1, c.cullCalls)

	border := 0.5 / float32(plan.Directional.MapSize)
	first := plan.DirectionalTiles[0].TileData
	assert.InDelta(t, border, first[0], 1e-7)
	assert.Zero(t, first[3])
}

func TestPlannerPunctualBudget(t *testing.T) {
	p := newTestPlanner(1)
	p.Setup(&fakeCuller{}, 6)
	for i := range 4 {
		assert.True(t, p.RegisterPunctual(shadowed(light.KindPoint), i).HasShadow())
	}
	// 24 tiles used: one spot fits, a point and a second spot do not.
	assert.False(t, p.RegisterPunctual(shadowed(light.KindPoint), 4).HasShadow())
	assert.True(t, p.RegisterPunctual(shadowed(light.KindSpot), 5).HasShadow())

	plan := p.Plan()
	assert.Equal(t, MaxPunctualTiles, plan.PunctualTileCount)
	assert.Equal(t, 5, plan.Punctual.Split)
}

func TestPlannerRefusals(t *testing.T) {
	p := newTestPlanner(1)
	c := &fakeCuller{noCasters: map[int]bool{1: true}}
	p.Setup(c, 3)

	assert.False(t, p.RegisterPunctual(light.NewVisibleLight(light.KindSpot), 0).HasShadow())
	assert.False(t, p.RegisterPunctual(shadowed(light.KindSpot), 1).HasShadow())
	assert.False(t, p.RegisterPunctual(light.NewVisibleLight(light.KindSpot, light.WithShadows(0, 0.4)), 2).HasShadow())
	assert.False(t, p.RegisterPunctual(shadowed(light.KindSpot), 7).HasShadow())

	plan := p.Plan()
	assert.True(t, plan.Empty())
	assert.Zero(t, c.cullCalls)

	p.Setup(nil, 1)
	assert.False(t, p.RegisterDirectional(shadowed(light.KindDirectional), 0).HasShadow())
}

func TestPlannerDeterministicAcrossFrames(t *testing.T) {
	p := newTestPlanner(2)
	run := func() []byte {
		p.Setup(&fakeCuller{}, 3)
		p.RegisterDirectional(shadowed(light.KindDirectional), 0)
		p.RegisterPunctual(shadowed(light.KindSpot), 1)
		p.RegisterPunctual(shadowed(light.KindPoint), 2)
		plan := p.Plan()
		out := MarshalTileBuffer(plan.DirectionalTiles[:plan.DirectionalTileCount()], MaxDirectionalTiles)
		return append(out, MarshalTileBuffer(plan.PunctualTiles[:plan.PunctualTileCount], MaxPunctualTiles)...)
	}
	assert.Equal(t, run(), run())
}

func TestPointFovBias(t *testing.T) {
	assert.InDelta(t, 0.0, PointFovBias(0, 0), 1e-4)
	assert.Greater(t, PointFovBias(0.01, 0.002), float32(0))
}

// assertTilesStayInViewport maps the clip volume of every drawn tile through
// its world-to-shadow matrix and checks the result against the tile's record
// and viewport.
func assertTilesStayInViewport(t *testing.T, plan *Plan) {
	t.Helper()
	require.NotEmpty(t, plan.Draws)
	for _, d := range plan.Draws {
		layout, rec := plan.Punctual, plan.PunctualTiles[d.TileIndex]
		if d.Kind == light.KindDirectional {
			layout, rec = plan.Directional, plan.DirectionalTiles[d.TileIndex]
		}
		rcp := 1 / float32(layout.MapSize)
		vp := d.Viewport
		assert.Equal(t, layout.Viewport(d.TileIndex), vp)

		// The inset sampling rectangle lies inside the rendered pixels.
		data := rec.TileData
		assert.GreaterOrEqual(t, data[0], float32(vp.Min.X)*rcp, "tile %d", d.TileIndex)
		assert.GreaterOrEqual(t, data[1], float32(vp.Min.Y)*rcp, "tile %d", d.TileIndex)
		assert.LessOrEqual(t, data[0]+data[2], float32(vp.Max.X)*rcp, "tile %d", d.TileIndex)
		assert.LessOrEqual(t, data[1]+data[2], float32(vp.Max.Y)*rcp, "tile %d", d.TileIndex)

		inv := d.Projection.Mul4(d.View).Inv()
		project := func(x, y float32) mgl32.Vec2 {
			world := inv.Mul4x1(mgl32.Vec4{x, y, 0.5, 1})
			s := rec.WorldToShadow.Mul4x1(world.Mul(1 / world[3]))
			return mgl32.Vec2{s[0] / s[3], s[1] / s[3]}
		}

		// Clip corners land on the viewport edges.
		lo, hi := project(-1, -1), project(1, 1)
		assert.InDelta(t, float32(vp.Min.X)*rcp, lo[0], 1e-4, "tile %d", d.TileIndex)
		assert.InDelta(t, float32(vp.Min.Y)*rcp, lo[1], 1e-4, "tile %d", d.TileIndex)
		assert.InDelta(t, float32(vp.Max.X)*rcp, hi[0], 1e-4, "tile %d", d.TileIndex)
		assert.InDelta(t, float32(vp.Max.Y)*rcp, hi[1], 1e-4, "tile %d", d.TileIndex)

		// Interior points sample inside the record's rectangle.
		for _, c := range []mgl32.Vec2{{-0.9, -0.9}, {0.9, -0.9}, {-0.9, 0.9}, {0.9, 0.9}, {0, 0}} {
			uv := project(c[0], c[1])
			assert.True(t, uv[0] >= data[0] && uv[0] <= data[0]+data[2] &&
				uv[1] >= data[1] && uv[1] <= data[1]+data[2],
				"tile %d: %v outside record %v", d.TileIndex, uv, data)
		}
	}
}

func TestPlannerTilesStayInViewport(t *testing.T) {
	t.Run("punctual split 5", func(t *testing.T) {
		p := newTestPlanner(1)
		p.Setup(&fakeCuller{}, 5)
		for i := range 4 {
			require.True(t, p.RegisterPunctual(shadowed(light.KindPoint), i).HasShadow())
		}
		require.True(t, p.RegisterPunctual(shadowed(light.KindSpot), 4).HasShadow())

		plan := p.Plan()
		require.Equal(t, 5, plan.Punctual.Split)
		require.Equal(t, 409, plan.Punctual.TileSize)
		assertTilesStayInViewport(t, plan)
	})

	t.Run("directional split 4", func(t *testing.T) {
		p := newTestPlanner(4)
		p.Setup(&fakeCuller{}, 4)
		for i := range MaxDirectionalShadows {
			require.True(t, p.RegisterDirectional(shadowed(light.KindDirectional), i).HasShadow())
		}

		plan := p.Plan()
		require.Equal(t, 4, plan.Directional.Split)
		assertTilesStayInViewport(t, plan)
	})

	t.Run("mixed atlases on a 1024 punctual map", func(t *testing.T) {
		s := DefaultSettings()
		s.CascadeCount = 4
		s.PunctualMapSize = 1024
		p := NewPlanner(WithSettings(s))
		p.Setup(&fakeCuller{}, 6)
		require.True(t, p.RegisterDirectional(shadowed(light.KindDirectional), 0).HasShadow())
		for i := 1; i <= 4; i++ {
			require.True(t, p.RegisterPunctual(shadowed(light.KindPoint), i).HasShadow())
		}
		require.True(t, p.RegisterPunctual(shadowed(light.KindSpot), 5).HasShadow())

		plan := p.Plan()
		require.Equal(t, 204, plan.Punctual.TileSize)
		assertTilesStayInViewport(t, plan)
	})
}
