package light

import (
	_ "embed"
	"fmt"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxDirectionalLights is the number of directional light slots in the GPU
// buffer. Directional lights beyond this count are dropped in iteration order.
const MaxDirectionalLights = 4

// MaxPunctualLights is the number of punctual (spot + point) light slots in the
// GPU buffer. Punctual lights beyond this count are dropped in iteration order.
const MaxPunctualLights = 64

// NoCookie is the cookie index written for lights without a cookie.
const NoCookie = -1

// GPUDirectionalLightSource is the canonical WGSL definition of the DirectionalLight struct.
//
//go:embed assets/directional_light.wgsl
var GPUDirectionalLightSource string

// DirectionalLightGPU is the GPU-aligned representation of a directional light.
// Matches the WGSL DirectionalLight struct layout exactly (see GPUDirectionalLightSource).
// Size: 48 bytes.
type DirectionalLightGPU struct {
	Data1 mgl32.Vec4 // xyz: direction toward the light
	Data2 mgl32.Vec4 // xyz: color, w: rendering layer mask bits
	Data3 mgl32.Vec4 // shadow strength, cascade tile start, normal bias, cookie index
}

// NewDirectionalLightGPU packs a directional light. Passing any other kind of
// light is a programmer error and panics.
//
// Parameters:
//   - l: the directional light
//   - shadow: the descriptor returned by the shadow planner (or NoShadow)
//   - cookieIndex: the cookie slot, or NoCookie
//
// Returns:
//   - DirectionalLightGPU: the packed light
func NewDirectionalLightGPU(l VisibleLight, shadow ShadowDescriptor, cookieIndex int) DirectionalLightGPU {
	if l.Kind != KindDirectional {
		panic(fmt.Sprintf("light: NewDirectionalLightGPU called with a %s light", l.Kind))
	}
	return DirectionalLightGPU{
		Data1: l.Direction().Vec4(0),
		Data2: l.FinalColor.Vec4(math.Float32frombits(l.RenderingLayerMask)),
		Data3: mgl32.Vec4{shadow.Strength, float32(shadow.TileStartIndex), shadow.NormalBias, float32(cookieIndex)},
	}
}

// Size returns the size of the DirectionalLightGPU struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (d *DirectionalLightGPU) Size() int {
	return int(unsafe.Sizeof(*d))
}

// Marshal serializes the struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func (d *DirectionalLightGPU) Marshal() []byte {
	buf := make([]byte, 48)
	d.MarshalTo(buf)
	return buf
}

// MarshalTo writes the struct into buf[0:48].
func (d *DirectionalLightGPU) MarshalTo(buf []byte) {
	common.PutVec4(buf[0:], d.Data1)
	common.PutVec4(buf[16:], d.Data2)
	common.PutVec4(buf[32:], d.Data3)
}

// GPUPunctualLightSource is the canonical WGSL definition of the PunctualLight struct.
//
//go:embed assets/punctual_light.wgsl
var GPUPunctualLightSource string

// PunctualLightGPU is the GPU-aligned representation of a spot or point light.
// Matches the WGSL PunctualLight struct layout exactly (see GPUPunctualLightSource).
// Size: 80 bytes.
type PunctualLightGPU struct {
	Data1 mgl32.Vec4 // xyz: spot direction toward the light, w: cookie index
	Data2 mgl32.Vec4 // xyz: color, w: rendering layer mask bits
	Data3 mgl32.Vec4 // xyz: position, w: 1 / range^2
	Data4 mgl32.Vec4 // xy: spot falloff coefficients
	Data5 mgl32.Vec4 // shadow strength, shadow tile start, kind, normal bias
}

// minRangeSqr keeps the inverse squared range finite for zero-range lights.
const minRangeSqr = 0.00001

// minSpotAngleRange keeps the spot falloff finite when inner and outer cones match.
const minSpotAngleRange = 0.001

// NewPunctualLightGPU packs a spot or point light. Passing a directional light
// is a programmer error and panics.
//
// Spot falloff is evaluated in the shader as saturate(d*a + b)^2 where d is the
// cosine between the cone axis and the light vector; point lights use a = 0,
// b = 1 so the term is always 1.
//
// Parameters:
//   - l: the spot or point light
//   - shadow: the descriptor returned by the shadow planner (or NoShadow)
//   - cookieIndex: the cookie slot, or NoCookie
//
// Returns:
//   - PunctualLightGPU: the packed light
func NewPunctualLightGPU(l VisibleLight, shadow ShadowDescriptor, cookieIndex int) PunctualLightGPU {
	if !l.Kind.IsPunctual() {
		panic(fmt.Sprintf("light: NewPunctualLightGPU called with a %s light", l.Kind))
	}

	out := PunctualLightGPU{
		Data2: l.FinalColor.Vec4(math.Float32frombits(l.RenderingLayerMask)),
		Data3: l.Position().Vec4(1 / max(l.Range*l.Range, minRangeSqr)),
		Data5: mgl32.Vec4{shadow.Strength, float32(shadow.TileStartIndex), float32(l.Kind), shadow.NormalBias},
	}

	switch l.Kind {
	case KindPoint:
		out.Data1 = mgl32.Vec4{0, 0, 0, float32(cookieIndex)}
		out.Data4 = mgl32.Vec4{0, 1, 0, 0}
	case KindSpot:
		out.Data1 = l.Direction().Vec4(float32(cookieIndex))
		innerCos := common.CosHalfAngleDeg(l.InnerSpotAngle)
		outerCos := common.CosHalfAngleDeg(l.SpotAngle)
		angleRangeInv := 1 / max(innerCos-outerCos, minSpotAngleRange)
		out.Data4 = mgl32.Vec4{angleRangeInv, -outerCos * angleRangeInv, 0, 0}
	}
	return out
}

// Size returns the size of the PunctualLightGPU struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (p *PunctualLightGPU) Size() int {
	return int(unsafe.Sizeof(*p))
}

// Marshal serializes the struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload
func (p *PunctualLightGPU) Marshal() []byte {
	buf := make([]byte, 80)
	p.MarshalTo(buf)
	return buf
}

// MarshalTo writes the struct into buf[0:80].
func (p *PunctualLightGPU) MarshalTo(buf []byte) {
	common.PutVec4(buf[0:], p.Data1)
	common.PutVec4(buf[16:], p.Data2)
	common.PutVec4(buf[32:], p.Data3)
	common.PutVec4(buf[48:], p.Data4)
	common.PutVec4(buf[64:], p.Data5)
}

// GPUTileSettingsSource is the canonical WGSL definition of the TileSettings struct.
//
//go:embed assets/tile_settings.wgsl
var GPUTileSettingsSource string

// TileSettings is the small vector the lit fragment shader reads to find the
// tile owning a pixel: tile = floor(screenUV * ScreenToTile), flat index =
// tile.y * TileCountX + tile.x, header offset = index * Stride.
// Size: 16 bytes.
type TileSettings struct {
	ScreenToTile mgl32.Vec2
	TileCountX   float32
	Stride       float32
}

// Size returns the size of the TileSettings struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (s *TileSettings) Size() int {
	return int(unsafe.Sizeof(*s))
}

// Marshal serializes TileSettings into a 16-byte little-endian buffer.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (s *TileSettings) Marshal() []byte {
	buf := make([]byte, 16)
	common.PutVec4(buf, s.Vec4())
	return buf
}

// Vec4 returns the settings packed as a single vec4.
func (s *TileSettings) Vec4() mgl32.Vec4 {
	return mgl32.Vec4{s.ScreenToTile[0], s.ScreenToTile[1], s.TileCountX, s.Stride}
}

// MarshalDirectionalBuffer serializes a full-capacity directional light buffer.
// Slots past len(lights) are zero so the buffer size never changes.
//
// Parameters:
//   - lights: the packed directional lights (at most MaxDirectionalLights)
//
// Returns:
//   - []byte: MaxDirectionalLights * 48 bytes
func MarshalDirectionalBuffer(lights []DirectionalLightGPU) []byte {
	stride := (&DirectionalLightGPU{}).Size()
	buf := make([]byte, MaxDirectionalLights*stride)
	for i := range min(len(lights), MaxDirectionalLights) {
		lights[i].MarshalTo(buf[i*stride:])
	}
	return buf
}

// MarshalPunctualBuffer serializes a full-capacity punctual light buffer.
// Slots past len(lights) are zero so the buffer size never changes.
//
// Parameters:
//   - lights: the packed punctual lights (at most MaxPunctualLights)
//
// Returns:
//   - []byte: MaxPunctualLights * 80 bytes
func MarshalPunctualBuffer(lights []PunctualLightGPU) []byte {
	stride := (&PunctualLightGPU{}).Size()
	buf := make([]byte, MaxPunctualLights*stride)
	for i := range min(len(lights), MaxPunctualLights) {
		lights[i].MarshalTo(buf[i*stride:])
	}
	return buf
}
