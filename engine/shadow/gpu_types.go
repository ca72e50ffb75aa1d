package shadow

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUShadowTileSource is the canonical WGSL definition of the ShadowTile struct.
//
//go:embed assets/shadow_tile.wgsl
var GPUShadowTileSource string

// GPUCascadeDataSource is the canonical WGSL definition of the CascadeData struct.
//
//go:embed assets/cascade_data.wgsl
var GPUCascadeDataSource string

// TileRecord is the GPU-aligned description of one atlas tile.
// Size: 80 bytes.
type TileRecord struct {
	TileData      mgl32.Vec4 // x/y: inset UV offset, z: inset UV scale, w: depth bias
	WorldToShadow mgl32.Mat4
}

// NewTileRecord builds a record for the tile covering the atlas UV rectangle
// [lo, hi]. The rectangle must come from the same pixel grid as the tile's
// viewport so sampling never leaves the rendered region.
//
// Parameters:
//   - lo: the tile's minimum atlas UV
//   - hi: the tile's maximum atlas UV
//   - bias: the depth bias sampled with this tile
//   - border: the UV inset applied on every side
//   - worldToShadow: the tile's world-to-shadow matrix
//
// Returns:
//   - TileRecord: the record
func NewTileRecord(lo, hi mgl32.Vec2, bias, border float32, worldToShadow mgl32.Mat4) TileRecord {
	return TileRecord{
		TileData: mgl32.Vec4{
			lo[0] + border,
			lo[1] + border,
			hi[0] - lo[0] - 2*border,
			bias,
		},
		WorldToShadow: worldToShadow,
	}
}

// Size returns the size of the TileRecord struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (t *TileRecord) Size() int {
	return int(unsafe.Sizeof(*t))
}

// Marshal serializes the struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload
func (t *TileRecord) Marshal() []byte {
	buf := make([]byte, 80)
	t.MarshalTo(buf)
	return buf
}

// MarshalTo writes the struct into buf[0:80].
func (t *TileRecord) MarshalTo(buf []byte) {
	common.PutVec4(buf[0:], t.TileData)
	common.PutMat4(buf[16:], t.WorldToShadow)
}

// MarshalTileBuffer serializes tiles into a buffer of exactly capacity records.
// Records past len(tiles) are zero.
func MarshalTileBuffer(tiles []TileRecord, capacity int) []byte {
	stride := (&TileRecord{}).Size()
	buf := make([]byte, capacity*stride)
	for i := range min(len(tiles), capacity) {
		tiles[i].MarshalTo(buf[i*stride:])
	}
	return buf
}

// CascadeData is the GPU-aligned cascade selection block shared by all
// directional lights.
// Size: 112 bytes.
type CascadeData struct {
	CullingSpheres   [MaxCascades]mgl32.Vec4
	SphereRadiusSqrs mgl32.Vec4
	SphereRanges     mgl32.Vec4 // 1 / (r_i^2 - r_{i-1}^2)
	Params           mgl32.Vec4 // -5 * cascade fade, distance fade, max distance^2, cascade count
}

// NewCascadeData derives the cascade block from the shared culling spheres.
// Spheres past the cascade count are ignored by the shader; their ranges are
// left zero instead of dividing by zero.
//
// Parameters:
//   - spheres: the culling spheres captured from the first directional light
//   - s: the shadow settings
//
// Returns:
//   - CascadeData: the cascade block
func NewCascadeData(spheres [MaxCascades]mgl32.Vec4, s Settings) CascadeData {
	d := CascadeData{
		CullingSpheres: spheres,
		Params: mgl32.Vec4{
			-5 * s.CascadeFade,
			s.DistanceFade,
			s.MaxDistance * s.MaxDistance,
			float32(s.CascadeCount),
		},
	}
	prev := float32(0)
	for i, sphere := range spheres {
		r2 := sphere[3] * sphere[3]
		d.SphereRadiusSqrs[i] = r2
		if delta := r2 - prev; delta > 0 {
			d.SphereRanges[i] = 1 / delta
		}
		prev = r2
	}
	return d
}

// Size returns the size of the CascadeData struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (112)
func (c *CascadeData) Size() int {
	return int(unsafe.Sizeof(*c))
}

// Marshal serializes the struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 112-byte buffer ready for GPU upload
func (c *CascadeData) Marshal() []byte {
	buf := make([]byte, 112)
	for i, s := range c.CullingSpheres {
		common.PutVec4(buf[i*16:], s)
	}
	common.PutVec4(buf[64:], c.SphereRadiusSqrs)
	common.PutVec4(buf[80:], c.SphereRanges)
	common.PutVec4(buf[96:], c.Params)
	return buf
}
