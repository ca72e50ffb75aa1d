package lighting

import (
	_ "embed"
	"image"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/shadow"
)

// Resource names shared by the uploader and the shading passes.
const (
	BufferDirectionalLights      = "Directional Light Buffer"
	BufferPunctualLights         = "Punctual Light Buffer"
	BufferTiles                  = "Forward+ Tile Buffer"
	BufferDirectionalShadowTiles = "Directional Shadow Tile Buffer"
	BufferPunctualShadowTiles    = "Punctual Shadow Tile Buffer"
	BufferCookies                = "Light Cookie Buffer"

	TextureDirectionalShadowMap = "Directional Shadow Map"
	TexturePunctualShadowMap    = "Punctual Shadow Map"
	TextureCookieAtlas          = "Light Cookie Atlas"
)

// TextureFormat is the pixel format of a declared texture.
type TextureFormat int

const (
	TextureFormatRGBA8Srgb TextureFormat = iota
	TextureFormatDepth32
)

// BufferDesc identifies a storage buffer. Size is always the buffer's maximum
// capacity in bytes so the backing resource can be pooled.
type BufferDesc struct {
	Name string
	Size int
}

// TextureDesc identifies a 2D texture.
type TextureDesc struct {
	Name   string
	Width  int
	Height int
	Format TextureFormat
}

// Uploader receives the frame's GPU data. Implementations own the GPU
// resources; the pipeline only describes them.
type Uploader interface {
	// UploadBuffer writes data at offset zero of the named buffer. len(data)
	// equals desc.Size.
	UploadBuffer(desc BufferDesc, data []byte) error

	// UploadTexture writes the dirty regions of img into the named texture.
	UploadTexture(desc TextureDesc, img *image.RGBA, dirty []image.Rectangle) error

	// DeclareTexture makes sure a render-target texture exists, such as a
	// shadow atlas the draw pass renders into.
	DeclareTexture(desc TextureDesc) error

	// SetGlobals publishes the per-camera lighting globals.
	SetGlobals(g Globals) error
}

// GPULightingGlobalsSource is the canonical WGSL definition of the LightingGlobals struct.
//
//go:embed assets/lighting_globals.wgsl
var GPULightingGlobalsSource string

// Globals is the per-camera uniform block of the lit shaders.
// Size: 144 bytes.
type Globals struct {
	DirectionalCount float32
	PunctualCount    float32
	CookieCount      float32
	ShadowsEnabled   float32
	TileSettings     light.TileSettings
	Cascade          shadow.CascadeData
}

// Size returns the size of the Globals struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (144)
func (g *Globals) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the globals into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 144-byte buffer ready for GPU upload
func (g *Globals) Marshal() []byte {
	buf := make([]byte, 144)
	common.PutFloat32(buf[0:], g.DirectionalCount)
	common.PutFloat32(buf[4:], g.PunctualCount)
	common.PutFloat32(buf[8:], g.CookieCount)
	common.PutFloat32(buf[12:], g.ShadowsEnabled)
	common.PutVec4(buf[16:], g.TileSettings.Vec4())
	copy(buf[32:], g.Cascade.Marshal())
	return buf
}
