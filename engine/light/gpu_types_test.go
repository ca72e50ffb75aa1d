package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUStructSizes(t *testing.T) {
	assert.Equal(t, 48, (&DirectionalLightGPU{}).Size())
	assert.Equal(t, 80, (&PunctualLightGPU{}).Size())
	assert.Equal(t, 16, (&TileSettings{}).Size())
	assert.Len(t, (&DirectionalLightGPU{}).Marshal(), 48)
	assert.Len(t, (&PunctualLightGPU{}).Marshal(), 80)
}

func TestNewDirectionalLightGPU(t *testing.T) {
	l := NewVisibleLight(KindDirectional,
		WithForward(0, -1, 0),
		WithColor(1, 0.5, 0.25),
		WithIntensity(2),
		WithRenderingLayerMask(0xFF),
	)
	gpu := NewDirectionalLightGPU(l, NoShadow, NoCookie)

	assert.InDelta(t, 1.0, gpu.Data1[1], 1e-6)
	assert.Equal(t, mgl32.Vec3{2, 1, 0.5}, gpu.Data2.Vec3())
	assert.Equal(t, uint32(0xFF), math.Float32bits(gpu.Data2[3]))
	assert.Equal(t, float32(NoCookie), gpu.Data3[3])

	buf := gpu.Marshal()
	assert.Equal(t, uint32(0xFF), binary.LittleEndian.Uint32(buf[28:]))

	assert.Panics(t, func() { NewDirectionalLightGPU(NewVisibleLight(KindPoint), NoShadow, NoCookie) })
}

func TestNewPunctualLightGPUSpotFalloff(t *testing.T) {
	l := NewVisibleLight(KindSpot,
		WithPosition(1, 2, 3),
		WithRange(4),
		WithSpotCone(30, 60),
	)
	gpu := NewPunctualLightGPU(l, NoShadow, 3)

	assert.Equal(t, mgl32.Vec4{1, 2, 3, 1.0 / 16}, gpu.Data3)
	assert.Equal(t, float32(3), gpu.Data1[3])

	// Falloff is 1 inside the inner cone and 0 at the outer edge.
	inner := float32(math.Cos(15 * math.Pi / 180))
	outer := float32(math.Cos(30 * math.Pi / 180))
	assert.InDelta(t, 1.0, inner*gpu.Data4[0]+gpu.Data4[1], 1e-4)
	assert.InDelta(t, 0.0, outer*gpu.Data4[0]+gpu.Data4[1], 1e-4)
}

func TestNewPunctualLightGPUEdgeCases(t *testing.T) {
	point := NewPunctualLightGPU(NewVisibleLight(KindPoint, WithRange(0)), NoShadow, NoCookie)
	assert.False(t, math.IsInf(float64(point.Data3[3]), 0))
	assert.Equal(t, mgl32.Vec4{0, 1, 0, 0}, point.Data4)
	assert.Equal(t, float32(KindPoint), point.Data5[2])

	flat := NewPunctualLightGPU(NewVisibleLight(KindSpot, WithSpotCone(40, 40)), NoShadow, NoCookie)
	assert.False(t, math.IsInf(float64(flat.Data4[0]), 0))

	assert.Panics(t, func() { NewPunctualLightGPU(NewVisibleLight(KindDirectional), NoShadow, NoCookie) })
}

func TestMarshalBuffersAreFullCapacity(t *testing.T) {
	dir := MarshalDirectionalBuffer([]DirectionalLightGPU{{Data1: mgl32.Vec4{1, 2, 3, 4}}})
	require.Len(t, dir, MaxDirectionalLights*48)
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(dir)))
	for _, b := range dir[48:] {
		assert.Zero(t, b)
	}

	assert.Len(t, MarshalPunctualBuffer(nil), MaxPunctualLights*80)
}

func TestKindHelpers(t *testing.T) {
	assert.Equal(t, 1, KindSpot.ShadowTileCount())
	assert.Equal(t, PointShadowTiles, KindPoint.ShadowTileCount())
	assert.Panics(t, func() { KindDirectional.ShadowTileCount() })
	assert.Equal(t, ProjectionOrthographic, KindDirectional.CullingProjection())
	assert.Equal(t, ProjectionPerspective, KindSpot.CullingProjection())
	assert.Equal(t, "spot", KindSpot.String())
}
