package shadow

import (
	"image"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestSplitCount(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 4: 2, 5: 4, 7: 4, 16: 4, 17: 5, 20: 5, 25: 5}
	for tiles, want := range cases {
		assert.Equal(t, want, SplitCount(tiles), "tiles=%d", tiles)
	}
	assert.Panics(t, func() { SplitCount(26) })
}

func TestAtlasLayoutTilesDoNotOverlap(t *testing.T) {
	for _, tiles := range []int{1, 3, 7, 16, 20, 25} {
		a := NewAtlasLayout(2048, tiles)
		for i := range tiles {
			vi := a.Viewport(i)
			assert.True(t, vi.In(image.Rect(0, 0, 2048, 2048)), "tiles=%d tile %d outside atlas", tiles, i)
			for j := i + 1; j < tiles; j++ {
				assert.False(t, vi.Overlaps(a.Viewport(j)), "tiles=%d: %d overlaps %d", tiles, i, j)
			}
		}
	}
}

func TestAtlasLayoutFiveSplit(t *testing.T) {
	a := NewAtlasLayout(2048, 20)
	assert.Equal(t, 5, a.Split)
	assert.Equal(t, 409, a.TileSize)
	assert.Equal(t, mgl32.Vec2{409, 409}, a.TileOffset(6))

	lo, hi := a.UVRect(6)
	assert.InDelta(t, 409.0/2048, lo[0], 1e-6)
	assert.InDelta(t, 818.0/2048, hi[1], 1e-6)
	assert.InDelta(t, 409.0/2048, a.TileScale(), 1e-6)
}

func TestWorldToShadowMapsIntoTile(t *testing.T) {
	a := NewAtlasLayout(1024, 4)
	m := WorldToShadow(mgl32.Ident4(), mgl32.Ident4(), a.TileOffset(3), 1.0/1024, a.TileSize, false)

	center := m.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0.75, center[0], 1e-6)
	assert.InDelta(t, 0.75, center[1], 1e-6)
	assert.InDelta(t, 0.5, center[2], 1e-6)

	corner := m.Mul4x1(mgl32.Vec4{-1, -1, 0, 1})
	assert.InDelta(t, 0.5, corner[0], 1e-6)
	assert.InDelta(t, 0.5, corner[1], 1e-6)

	reversed := WorldToShadow(mgl32.Ident4(), mgl32.Ident4(), a.TileOffset(0), 1.0/1024, a.TileSize, true)
	assert.InDelta(t, 0.25, reversed.Mul4x1(mgl32.Vec4{0, 0, 0.5, 1})[2], 1e-6)
}

func TestTileRecordInset(t *testing.T) {
	border := float32(0.5 / 1024)
	r := NewTileRecord(mgl32.Vec2{0.5, 0}, mgl32.Vec2{1, 0.5}, 0.01, border, mgl32.Ident4())
	assert.InDelta(t, 0.5+border, r.TileData[0], 1e-7)
	assert.InDelta(t, border, r.TileData[1], 1e-7)
	assert.InDelta(t, 0.5-2*border, r.TileData[2], 1e-7)
	assert.Equal(t, float32(0.01), r.TileData[3])
}

func TestShadowGPUSizes(t *testing.T) {
	assert.Equal(t, 80, (&TileRecord{}).Size())
	assert.Equal(t, 112, (&CascadeData{}).Size())
	assert.Len(t, (&CascadeData{}).Marshal(), 112)
	assert.Len(t, MarshalTileBuffer(make([]TileRecord, 3), MaxPunctualTiles), MaxPunctualTiles*80)
}

func TestNewCascadeData(t *testing.T) {
	s := DefaultSettings()
	s.CascadeCount = 2
	spheres := [MaxCascades]mgl32.Vec4{{0, 0, 0, 2}, {0, 0, 0, 4}}
	d := NewCascadeData(spheres, s)

	assert.Equal(t, mgl32.Vec4{4, 16, 0, 0}, d.SphereRadiusSqrs)
	assert.InDelta(t, 0.25, d.SphereRanges[0], 1e-6)
	assert.InDelta(t, 1.0/12, d.SphereRanges[1], 1e-6)
	assert.Zero(t, d.SphereRanges[2])
	assert.Equal(t, float32(2), d.Params[3])
	assert.InDelta(t, -5*s.CascadeFade, d.Params[0], 1e-6)
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.CascadeCount = 5
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.PunctualMapSize = 3000
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.CascadeCount = 3
	s.CascadeRatios = mgl32.Vec3{0.5, 0.25, 0.75}
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.MaxDistance = 0
	assert.Error(t, s.Validate())
}
