package cookie

import (
	"image"
	"image/color"
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(size int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func cubeCookie(size int) *light.Cookie {
	var faces [6]image.Image
	for i := range faces {
		faces[i] = solid(size, color.RGBA{R: uint8(40 * i), A: 255})
	}
	return light.NewCubeCookie(faces, light.WrapClamp)
}

func TestAllocatorPacksWithoutOverlap(t *testing.T) {
	a := newAllocator(256)
	var got []image.Rectangle
	for _, sz := range []int{128, 64, 64, 64, 32, 32, 128} {
		r, ok := a.allocate(sz, sz)
		require.True(t, ok, "allocation of %d failed", sz)
		assert.Equal(t, sz, r.Dx())
		assert.True(t, r.In(image.Rect(0, 0, 256, 256)))
		for _, prev := range got {
			assert.False(t, r.Overlaps(prev), "%v overlaps %v", r, prev)
		}
		got = append(got, r)
	}

	_, ok := a.allocate(512, 512)
	assert.False(t, ok)
	_, ok = a.allocate(0, 4)
	assert.False(t, ok)

	a.reset()
	r, ok := a.allocate(256, 256)
	assert.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 256, 256), r)
}

func TestOctahedralSize(t *testing.T) {
	assert.Equal(t, 160, OctahedralSize(64, 64))
	assert.Equal(t, 80, OctahedralSize(32, 16))

	w, h := AllocationSize(cubeCookie(64))
	assert.Equal(t, 160, w)
	assert.Equal(t, 160, h)
}

func TestOctahedralDecodeIsUnit(t *testing.T) {
	for _, uv := range [][2]float32{{0, 0}, {0.5, -0.5}, {0.9, 0.9}, {-1, 1}} {
		d := OctahedralDecode(uv[0], uv[1])
		assert.InDelta(t, 1.0, d.Len(), 1e-5)
	}
	assert.InDelta(t, 1.0, OctahedralDecode(0, 0)[2], 1e-6)
}

func TestRemapOctahedralCenterSamplesPositiveZ(t *testing.T) {
	c := cubeCookie(8)
	img := RemapOctahedral(c.Faces, 20)
	assert.Equal(t, uint8(40*light.CubeFacePositiveZ), img.RGBAAt(10, 10).R)

	var missing [6]image.Image
	assert.Equal(t, 4, RemapOctahedral(missing, 4).Bounds().Dx())
}

func TestAtlasCachesByIdentity(t *testing.T) {
	a := NewAtlas(256)
	c := light.NewCookie2D(solid(64, color.RGBA{G: 255, A: 255}), light.WrapRepeat)

	so, ok := a.Place(c)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec4{0.25, 0.25, 0, 0}, so)
	assert.Len(t, a.Dirty(), 1)
	a.ClearDirty()

	again, ok := a.Place(c)
	require.True(t, ok)
	assert.Equal(t, so, again)
	assert.Empty(t, a.Dirty(), "unchanged cookie must not be re-blitted")

	c.Touch()
	_, ok = a.Place(c)
	require.True(t, ok)
	assert.Len(t, a.Dirty(), 1)
	assert.Equal(t, uint8(255), a.Image().RGBAAt(1, 1).G)
}

func TestAtlasSizeChangeReallocates(t *testing.T) {
	a := NewAtlas(256)
	c := light.NewCookie2D(solid(64, color.RGBA{A: 255}), light.WrapClamp)
	_, ok := a.Place(c)
	require.True(t, ok)
	first, _ := a.Lookup(c.ID)

	c.Image = solid(32, color.RGBA{A: 255})
	_, ok = a.Place(c)
	require.True(t, ok)
	second, _ := a.Lookup(c.ID)
	assert.Equal(t, 32, second.Dx())
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, a.Len())
}

func TestShrinkRegion(t *testing.T) {
	so := ShrinkRegion(mgl32.Vec4{0.5, 0.5, 0, 0}, 64, 64, true)
	assert.InDelta(t, 0.5*63/64, so[0], 1e-6)
	assert.InDelta(t, 0.5*0.5/64, so[2], 1e-6)

	flipped := ShrinkRegion(mgl32.Vec4{0.25, 0.25, 0, 0}, 0, 0, false)
	assert.InDelta(t, 0.75, flipped[3], 1e-6)
}

func TestPlannerInsetsEachAxisByHalfATexel(t *testing.T) {
	const atlasSize = 256
	img := image.NewRGBA(image.Rect(0, 0, 64, 16))
	c := light.NewCookie2D(img, light.WrapClamp)

	p := NewPlanner(WithAtlasSize(atlasSize))
	p.Setup()
	require.Equal(t, 0, p.RegisterCookie(light.NewVisibleLight(light.KindSpot, light.WithCookie(c))))
	region, ok := p.Atlas().Lookup(c.ID)
	require.True(t, ok)
	require.Equal(t, 64, region.Dx())
	require.Equal(t, 16, region.Dy())

	so := p.Build(true)[0].UVScaleOffset
	insetU := (so[2] - float32(region.Min.X)/atlasSize) * atlasSize
	insetV := (so[3] - float32(region.Min.Y)/atlasSize) * atlasSize
	assert.InDelta(t, 0.5, insetU, 1e-4)
	assert.InDelta(t, 0.5, insetV, 1e-4)
	assert.InDelta(t, 63.0, so[0]*atlasSize, 1e-4)
	assert.InDelta(t, 15.0, so[1]*atlasSize, 1e-4)
}

func TestWorldToLightDirectionalClamp(t *testing.T) {
	c := light.NewCookie2D(solid(4, color.RGBA{A: 255}), light.WrapRepeat)
	c.Size2D = mgl32.Vec2{1e9, 20}
	l := light.NewVisibleLight(light.KindDirectional, light.WithCookie(c))
	m := WorldToLight(l)
	// The unit ortho doubles the scale.
	assert.InDelta(t, 2*minUVScale, m.At(0, 0), 1e-9)
	assert.InDelta(t, 0.1, m.At(1, 1), 1e-6)
}

func TestWorldToLightSpotProjectsAxis(t *testing.T) {
	l := light.NewVisibleLight(light.KindSpot, light.WithPosition(0, 0, 0), light.WithForward(0, 0, 1), light.WithRange(10), light.WithSpotCone(30, 60))
	p := WorldToLight(l).Mul4x1(mgl32.Vec4{0, 0, 5, 1})
	require.Greater(t, p[3], float32(0))
	assert.InDelta(t, 0.0, p[0]/p[3], 1e-5)
	assert.InDelta(t, 0.0, p[1]/p[3], 1e-5)
}

func TestPlannerSlotsAndReset(t *testing.T) {
	p := NewPlanner(WithAtlasSize(128))
	big := light.NewCookie2D(solid(128, color.RGBA{A: 255}), light.WrapClamp)
	small := light.NewCookie2D(solid(16, color.RGBA{A: 255}), light.WrapClamp)

	p.Setup()
	assert.Equal(t, 0, p.RegisterCookie(light.NewVisibleLight(light.KindSpot, light.WithCookie(big))))
	assert.Equal(t, light.NoCookie, p.RegisterCookie(light.NewVisibleLight(light.KindSpot, light.WithCookie(small))))
	assert.Equal(t, light.NoCookie, p.RegisterCookie(light.NewVisibleLight(light.KindSpot)))
	assert.Equal(t, 1, p.Count())
	require.Len(t, p.Build(true), 1)

	// The failed placement schedules a reset; the next frame repacks in order.
	p.Setup()
	assert.Equal(t, 0, p.Atlas().Len())
	assert.Equal(t, 0, p.RegisterCookie(light.NewVisibleLight(light.KindSpot, light.WithCookie(small))))
	r, ok := p.Atlas().Lookup(small.ID)
	require.True(t, ok)
	assert.Equal(t, image.Pt(0, 0), r.Min)
}

func TestPlannerStableAcrossFrames(t *testing.T) {
	p := NewPlanner()
	c := cubeCookie(16)
	l := light.NewVisibleLight(light.KindPoint, light.WithCookie(c))

	p.Setup()
	p.RegisterCookie(l)
	first := append([]GPUCookie(nil), p.Build(true)...)
	p.Atlas().ClearDirty()

	p.Setup()
	p.RegisterCookie(l)
	assert.Equal(t, first, p.Build(true))
	assert.Empty(t, p.Atlas().Dirty())
}

func TestCookieGPUSize(t *testing.T) {
	assert.Equal(t, 96, (&GPUCookie{}).Size())
	assert.Len(t, MarshalCookieBuffer(nil), MaxCookies*96)
}
