package cookie

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPULightCookieSource is the canonical WGSL definition of the LightCookie struct.
//
//go:embed assets/light_cookie.wgsl
var GPULightCookieSource string

// GPUCookie is the GPU-aligned sampling data of one cookie slot.
// Size: 96 bytes.
type GPUCookie struct {
	WorldToLight  mgl32.Mat4
	UVScaleOffset mgl32.Vec4
	WrapMode      float32
	_             [3]float32
}

// Size returns the size of the GPUCookie struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (g *GPUCookie) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload
func (g *GPUCookie) Marshal() []byte {
	buf := make([]byte, 96)
	g.MarshalTo(buf)
	return buf
}

// MarshalTo writes the struct into buf[0:96]. Padding is left untouched.
func (g *GPUCookie) MarshalTo(buf []byte) {
	common.PutMat4(buf[0:], g.WorldToLight)
	common.PutVec4(buf[64:], g.UVScaleOffset)
	common.PutFloat32(buf[80:], g.WrapMode)
}

// MarshalCookieBuffer serializes a full-capacity cookie buffer of MaxCookies slots.
func MarshalCookieBuffer(cookies []GPUCookie) []byte {
	stride := (&GPUCookie{}).Size()
	buf := make([]byte, MaxCookies*stride)
	for i := range min(len(cookies), MaxCookies) {
		cookies[i].MarshalTo(buf[i*stride:])
	}
	return buf
}
