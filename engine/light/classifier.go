package light

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/go-gl/mathgl/mgl32"
)

// ShadowDescriptor is what the shadow planner hands back for a registered
// light. A zero Strength means the light casts no shadow this frame.
type ShadowDescriptor struct {
	Kind           Kind
	Strength       float32
	TileStartIndex int
	NormalBias     float32
}

// NoShadow is the sentinel descriptor for lights that were refused a shadow.
var NoShadow = ShadowDescriptor{}

// HasShadow reports whether the descriptor references shadow tiles.
func (d ShadowDescriptor) HasShadow() bool {
	return d.Strength > 0
}

// ShadowRegistrar reserves shadow atlas tiles for lights as they are
// classified. index is the light's position in the frame's visible-light list.
type ShadowRegistrar interface {
	RegisterDirectional(l VisibleLight, index int) ShadowDescriptor
	RegisterPunctual(l VisibleLight, index int) ShadowDescriptor
}

// CookieRegistrar reserves a cookie slot for a light carrying a cookie and
// returns the slot index, or NoCookie.
type CookieRegistrar interface {
	RegisterCookie(l VisibleLight) int
}

// Classification is the fixed-capacity result of splitting one frame's visible
// lights. Arrays are sized to the caps so a Classification can live in a
// reusable per-frame arena.
type Classification struct {
	Directional       [MaxDirectionalLights]DirectionalLightGPU
	DirectionalSource [MaxDirectionalLights]int
	DirectionalCount  int

	Punctual       [MaxPunctualLights]PunctualLightGPU
	PunctualBounds [MaxPunctualLights]common.Rect
	PunctualSource [MaxPunctualLights]int
	PunctualCount  int

	DroppedDirectional int
	DroppedPunctual    int
	ShadowedLights     int
	CookieLights       int
}

// Reset clears the counters; slot contents are overwritten on the next Classify.
func (c *Classification) Reset() {
	*c = Classification{}
}

// DirectionalLights returns the filled directional slots.
func (c *Classification) DirectionalLights() []DirectionalLightGPU {
	return c.Directional[:c.DirectionalCount]
}

// PunctualLights returns the filled punctual slots.
func (c *Classification) PunctualLights() []PunctualLightGPU {
	return c.Punctual[:c.PunctualCount]
}

// Bounds returns the screen rectangles of the filled punctual slots, in slot order.
func (c *Classification) Bounds() []common.Rect {
	return c.PunctualBounds[:c.PunctualCount]
}

// Classifier splits the frame's visible lights into directional and punctual
// GPU arrays. Shadows and Cookies are optional; a nil registrar leaves every
// light without a shadow or cookie.
type Classifier struct {
	Shadows ShadowRegistrar
	Cookies CookieRegistrar
}

// Classify walks lights in order and fills out. Lights past a cap are dropped
// in iteration order; the first lights registered win.
//
// Parameters:
//   - lights: the frame's visible lights
//   - out: the classification to fill (reset first)
func (c Classifier) Classify(lights []VisibleLight, out *Classification) {
	out.Reset()

	for i, l := range lights {
		switch {
		case l.Kind == KindDirectional:
			if out.DirectionalCount >= MaxDirectionalLights {
				out.DroppedDirectional++
				continue
			}
			shadow := NoShadow
			if c.Shadows != nil {
				shadow = c.Shadows.RegisterDirectional(l, i)
			}
			slot := out.DirectionalCount
			out.Directional[slot] = NewDirectionalLightGPU(l, shadow, c.cookieIndex(l, out))
			out.DirectionalSource[slot] = i
			out.DirectionalCount++
			if shadow.HasShadow() {
				out.ShadowedLights++
			}

		case l.Kind.IsPunctual():
			if out.PunctualCount >= MaxPunctualLights {
				out.DroppedPunctual++
				continue
			}
			shadow := NoShadow
			if c.Shadows != nil {
				shadow = c.Shadows.RegisterPunctual(l, i)
			}
			slot := out.PunctualCount
			out.Punctual[slot] = NewPunctualLightGPU(l, shadow, c.cookieIndex(l, out))
			out.PunctualBounds[slot] = l.ScreenRect
			out.PunctualSource[slot] = i
			out.PunctualCount++
			if shadow.HasShadow() {
				out.ShadowedLights++
			}
		}
	}
}

func (c Classifier) cookieIndex(l VisibleLight, out *Classification) int {
	if l.Cookie == nil || c.Cookies == nil {
		return NoCookie
	}
	idx := c.Cookies.RegisterCookie(l)
	if idx != NoCookie {
		out.CookieLights++
	}
	return idx
}

// ApplyPreviewFallback installs one synthetic white directional light when the
// classification holds no directional light, so preview renders of lightless
// scenes are not black. It reports whether the fallback was applied.
//
// Parameters:
//   - out: the classification to patch
//
// Returns:
//   - bool: true if the synthetic light was added
func ApplyPreviewFallback(out *Classification) bool {
	if out.DirectionalCount > 0 {
		return false
	}
	out.Directional[0] = DirectionalLightGPU{
		Data1: mgl32.Vec3{1, 1, 1}.Normalize().Vec4(0),
		Data2: mgl32.Vec4{1, 1, 1, 0},
		Data3: mgl32.Vec4{0, 0, 0, NoCookie},
	}
	out.DirectionalSource[0] = -1
	out.DirectionalCount = 1
	return true
}
