package culling

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/shadow"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitBox(x, y, z float32) common.Bounds {
	return common.Bounds{Center: mgl32.Vec3{x, y, z}, Extents: mgl32.Vec3{1, 1, 1}}
}

func TestCullKeepsVisibleLights(t *testing.T) {
	r := NewReference(camera.NewCamera(), nil)
	lights := []light.VisibleLight{
		light.NewVisibleLight(light.KindPoint, light.WithRange(1)),
		light.NewVisibleLight(light.KindPoint, light.WithPosition(0, 0, 50), light.WithRange(1)),
		light.NewVisibleLight(light.KindDirectional),
		light.NewVisibleLight(light.KindSpot, light.WithPosition(0, 0, 9), light.WithRange(2)),
	}

	visible := r.Cull(lights)
	require.Len(t, visible, 3)
	assert.Equal(t, visible, r.Visible())
	assert.Equal(t, light.KindPoint, visible[0].Kind)
	assert.Equal(t, light.KindDirectional, visible[1].Kind)
	assert.Equal(t, light.KindSpot, visible[2].Kind)

	rect := visible[0].ScreenRect
	assert.True(t, rect.Contains(0.5, 0.5))
	assert.Less(t, rect.MaxX-rect.MinX, float32(0.5))
	assert.InDelta(t, 0.5, (rect.MinX+rect.MaxX)/2, 1e-5)

	// The spot's sphere reaches behind the camera.
	assert.Equal(t, common.Rect{MaxX: 1, MaxY: 1}, visible[2].ScreenRect)
}

func TestShadowCasterBounds(t *testing.T) {
	casters := []common.Bounds{unitBox(0, 0, 0), unitBox(4, 0, 0), unitBox(0, 0, -200)}
	r := NewReference(camera.NewCamera(), casters, WithShadowDistance(30))
	visible := r.Cull([]light.VisibleLight{
		light.NewVisibleLight(light.KindDirectional),
		light.NewVisibleLight(light.KindPoint, light.WithPosition(0, 3, 0), light.WithRange(2.5)),
		light.NewVisibleLight(light.KindPoint, light.WithPosition(0, 0, -30), light.WithRange(1)),
	})
	require.Len(t, visible, 3)

	b, ok := r.ShadowCasterBounds(0)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{-1, -1, -1}, b.Min())
	assert.Equal(t, mgl32.Vec3{5, 1, 1}, b.Max())

	b, ok = r.ShadowCasterBounds(1)
	require.True(t, ok)
	assert.Equal(t, unitBox(0, 0, 0), b)

	_, ok = r.ShadowCasterBounds(2)
	assert.False(t, ok)
	_, ok = r.ShadowCasterBounds(7)
	assert.False(t, ok)
}

func TestComputeDirectionalMatrices(t *testing.T) {
	cam := camera.NewCamera(camera.WithLookAt(mgl32.Vec3{0, 2, 10}, mgl32.Vec3{}))
	r := NewReference(cam, nil, WithShadowDistance(40))
	r.Cull([]light.VisibleLight{light.NewVisibleLight(light.KindDirectional, light.WithForward(0, -1, 0.5))})

	ratios := mgl32.Vec3{0.1, 0.25, 0.5}
	var prev float32
	for split := range 4 {
		view, proj, data := r.ComputeDirectionalMatrices(0, split, 4, ratios, 512, 0.2)
		center, radius := data.CullingSphere.Vec3(), data.CullingSphere[3]
		assert.Positive(t, radius)
		assert.Greater(t, radius, prev)
		prev = radius

		// The sphere sits on the view axis, inside the depth range.
		vs := view.Mul4x1(center.Vec4(1))
		assert.InDelta(t, 0, vs[0], 1e-3)
		assert.InDelta(t, 0, vs[1], 1e-3)
		clip := proj.Mul4x1(vs)
		assert.Greater(t, clip[2], float32(-1))
		assert.Less(t, clip[2], float32(1))
	}
}

func TestComputePunctualMatrices(t *testing.T) {
	r := NewReference(camera.NewCamera(), nil)
	r.Cull([]light.VisibleLight{
		light.NewVisibleLight(light.KindSpot, light.WithPosition(0, 5, 0), light.WithForward(0, -1, 0)),
		light.NewVisibleLight(light.KindPoint, light.WithPosition(1, 0, 0)),
	})

	view, _, data := r.ComputeSpotMatrices(0)
	p := view.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, -5, p[2], 1e-5)
	assert.Equal(t, float32(10), data.CullingSphere[3])

	for face := shadow.CubeFacePositiveX; face <= shadow.CubeFaceNegativeZ; face++ {
		view, proj, _ := r.ComputePointMatrices(1, face, 0)
		fwd := cubeFaces[face].forward
		p := view.Mul4x1(mgl32.Vec3{1, 0, 0}.Add(fwd).Vec4(1))
		assert.InDelta(t, -1, p[2], 1e-5, "face %d", face)
		assert.InDelta(t, 1, proj.At(0, 0), 1e-5)
	}
	_, wide, _ := r.ComputePointMatrices(1, shadow.CubeFacePositiveX, 4)
	assert.Less(t, wide.At(0, 0), float32(1))
}

func TestCullShadowCasters(t *testing.T) {
	casters := []common.Bounds{unitBox(0, 0, 0), unitBox(20, 0, 0), unitBox(0, 0, 3)}
	r := NewReference(camera.NewCamera(), casters)
	r.Cull([]light.VisibleLight{
		light.NewVisibleLight(light.KindSpot, light.WithPosition(0, 5, 0), light.WithForward(0, -1, 0)),
		light.NewVisibleLight(light.KindDirectional),
	})

	_, _, spot := r.ComputeSpotMatrices(0)
	infos := shadow.CastersCullingInfos{
		Splits: []shadow.SplitData{
			spot,
			{CullingSphere: mgl32.Vec4{0, 0, 3, 2.5}},
		},
		PerLight: []shadow.LightCullingInfo{
			{Projection: light.ProjectionPerspective, SplitStart: 0, SplitCount: 1},
			{Projection: light.ProjectionOrthographic, SplitStart: 1, SplitCount: 1},
		},
	}
	r.CullShadowCasters(infos)

	assert.Equal(t, 1, r.CullCalls())
	assert.Equal(t, []int{0}, r.Casters(0, 0))
	assert.Equal(t, []int{0, 2}, r.Casters(1, 0))
	assert.Nil(t, r.Casters(0, 1))

	r.CullShadowCasters(shadow.CastersCullingInfos{})
	assert.Equal(t, 2, r.CullCalls())
	assert.Nil(t, r.Casters(0, 0))
}
