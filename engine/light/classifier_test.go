package light

import (
	"image"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingShadows struct {
	directional []int
	punctual    []int
}

func (r *recordingShadows) RegisterDirectional(l VisibleLight, index int) ShadowDescriptor {
	r.directional = append(r.directional, index)
	if !l.Shadow.Enabled {
		return NoShadow
	}
	return ShadowDescriptor{Kind: l.Kind, Strength: l.Shadow.Strength, TileStartIndex: 4 * len(r.directional), NormalBias: l.Shadow.NormalBias}
}

func (r *recordingShadows) RegisterPunctual(l VisibleLight, index int) ShadowDescriptor {
	r.punctual = append(r.punctual, index)
	if !l.Shadow.Enabled {
		return NoShadow
	}
	return ShadowDescriptor{Kind: l.Kind, Strength: l.Shadow.Strength, TileStartIndex: 7, NormalBias: l.Shadow.NormalBias}
}

type countingCookies struct {
	next int
}

func (c *countingCookies) RegisterCookie(VisibleLight) int {
	idx := c.next
	c.next++
	return idx
}

func TestClassifyCapsInIterationOrder(t *testing.T) {
	var lights []VisibleLight
	for range MaxDirectionalLights + 2 {
		lights = append(lights, NewVisibleLight(KindDirectional))
	}
	for i := range MaxPunctualLights + 3 {
		kind := KindPoint
		if i%2 == 1 {
			kind = KindSpot
		}
		lights = append(lights, NewVisibleLight(kind, WithPosition(float32(i), 0, 0)))
	}

	shadows := &recordingShadows{}
	var out Classification
	Classifier{Shadows: shadows}.Classify(lights, &out)

	assert.Equal(t, MaxDirectionalLights, out.DirectionalCount)
	assert.Equal(t, 2, out.DroppedDirectional)
	assert.Equal(t, MaxPunctualLights, out.PunctualCount)
	assert.Equal(t, 3, out.DroppedPunctual)
	assert.Len(t, shadows.directional, MaxDirectionalLights)
	assert.Len(t, shadows.punctual, MaxPunctualLights)

	for slot := range out.PunctualCount {
		src := out.PunctualSource[slot]
		assert.Equal(t, MaxDirectionalLights+2+slot, src)
		assert.Equal(t, lights[src].Position(), out.Punctual[slot].Data3.Vec3())
	}
}

func TestClassifyShadowAndCookieIndices(t *testing.T) {
	cookie := NewCookie2D(image.NewRGBA(image.Rect(0, 0, 8, 8)), WrapClamp)
	lights := []VisibleLight{
		NewVisibleLight(KindSpot, WithShadows(0.75, 0.3), WithCookie(cookie), WithScreenRect(0.1, 0.2, 0.3, 0.4)),
		NewVisibleLight(KindDirectional, WithShadows(1, 0.5)),
		NewVisibleLight(KindPoint),
	}

	var out Classification
	Classifier{Shadows: &recordingShadows{}, Cookies: &countingCookies{}}.Classify(lights, &out)

	require.Equal(t, 1, out.DirectionalCount)
	require.Equal(t, 2, out.PunctualCount)
	assert.Equal(t, 2, out.ShadowedLights)
	assert.Equal(t, 1, out.CookieLights)

	spot := out.Punctual[0]
	assert.Equal(t, float32(0), spot.Data1[3])
	assert.Equal(t, mgl32.Vec4{0.75, 7, float32(KindSpot), 0.3}, spot.Data5)
	assert.Equal(t, lights[0].ScreenRect, out.Bounds()[0])

	point := out.Punctual[1]
	assert.Equal(t, float32(NoCookie), point.Data1[3])
	assert.Equal(t, float32(0), point.Data5[0])

	dir := out.Directional[0]
	assert.Equal(t, mgl32.Vec4{1, 4, 0.5, NoCookie}, dir.Data3)
}

func TestClassifyWithoutRegistrars(t *testing.T) {
	lights := []VisibleLight{
		NewVisibleLight(KindSpot, WithShadows(1, 0.2), WithCookie(NewCookie2D(image.NewRGBA(image.Rect(0, 0, 4, 4)), WrapRepeat))),
	}
	var out Classification
	Classifier{}.Classify(lights, &out)
	require.Equal(t, 1, out.PunctualCount)
	assert.Equal(t, float32(NoCookie), out.Punctual[0].Data1[3])
	assert.Zero(t, out.ShadowedLights)
	assert.Zero(t, out.CookieLights)
}

func TestClassifyResetsBetweenFrames(t *testing.T) {
	var out Classification
	Classifier{}.Classify([]VisibleLight{NewVisibleLight(KindPoint), NewVisibleLight(KindDirectional)}, &out)
	Classifier{}.Classify(nil, &out)
	assert.Zero(t, out.PunctualCount)
	assert.Zero(t, out.DirectionalCount)
	assert.Empty(t, out.PunctualLights())
}

func TestApplyPreviewFallback(t *testing.T) {
	var out Classification
	require.True(t, ApplyPreviewFallback(&out))
	require.Equal(t, 1, out.DirectionalCount)
	assert.Equal(t, -1, out.DirectionalSource[0])
	assert.InDelta(t, 1.0, out.Directional[0].Data1.Vec3().Len(), 1e-6)
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 0}, out.Directional[0].Data2)

	assert.False(t, ApplyPreviewFallback(&out))
	assert.Equal(t, 1, out.DirectionalCount)
}
