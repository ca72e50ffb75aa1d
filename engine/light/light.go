package light

import (
	"fmt"
	"image"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Kind identifies the kind of light source. It is the single tagged variant
// used by every stage of the lighting pipeline; per-kind packing rules live on
// its methods instead of being re-derived by each consumer.
type Kind int

const (
	// KindDirectional represents a light with no position, only direction.
	// Used for large distant sources like the sun or moon. Directional lights
	// are shaded for every fragment and use cascaded shadow maps.
	KindDirectional Kind = iota

	// KindPoint represents a light that emits in all directions from a position.
	// Point lights are bucketed into Forward+ tiles and consume six shadow
	// atlas tiles (one per cube face).
	KindPoint

	// KindSpot represents a light that emits in a cone from a position along a direction.
	// Spot lights are bucketed into Forward+ tiles and consume one shadow atlas tile.
	KindSpot
)

// PointShadowTiles is the number of shadow atlas tiles a point light consumes.
const PointShadowTiles = 6

func (k Kind) String() string {
	switch k {
	case KindDirectional:
		return "directional"
	case KindPoint:
		return "point"
	case KindSpot:
		return "spot"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsPunctual reports whether the light has a position (spot or point).
func (k Kind) IsPunctual() bool {
	return k == KindPoint || k == KindSpot
}

// ShadowTileCount returns how many punctual shadow atlas tiles a light of
// this kind consumes. Directional lights use cascades instead and asking for
// their punctual tile count is a programmer error.
//
// Returns:
//   - int: 1 for spot lights, PointShadowTiles for point lights
func (k Kind) ShadowTileCount() int {
	switch k {
	case KindSpot:
		return 1
	case KindPoint:
		return PointShadowTiles
	default:
		panic(fmt.Sprintf("light: %s light has no punctual shadow tiles", k))
	}
}

// Projection identifies how a light's shadow splits are projected.
type Projection int

const (
	ProjectionOrthographic Projection = iota
	ProjectionPerspective
)

// CullingProjection returns the projection used when culling shadow casters
// for a light of this kind.
func (k Kind) CullingProjection() Projection {
	if k == KindDirectional {
		return ProjectionOrthographic
	}
	return ProjectionPerspective
}

// ShadowConfig holds the per-light shadow toggles read by the shadow planner.
type ShadowConfig struct {
	Enabled    bool
	Strength   float32
	Bias       float32 // depth bias used while rendering the light's shadow tiles
	NormalBias float32
	NearPlane  float32
}

// CookieDimension is the texture shape of a cookie.
type CookieDimension int

const (
	CookieDimension2D CookieDimension = iota
	CookieDimensionCube
)

// WrapMode is the sampler wrap mode the shader applies to a cookie. The
// numeric values are written to the GPU unchanged.
type WrapMode int

const (
	WrapRepeat WrapMode = iota
	WrapClamp
	WrapMirror
	WrapMirrorOnce
)

// Cube face order used by cube cookies and point-light shadow tiles.
const (
	CubeFacePositiveX = iota
	CubeFaceNegativeX
	CubeFacePositiveY
	CubeFaceNegativeY
	CubeFacePositiveZ
	CubeFaceNegativeZ
)

// Cookie is a texture masking a light's emitted intensity. Its ID is the cache
// identity inside the cookie atlas; Version is bumped whenever the pixel
// content changes so the atlas knows to re-blit an already placed cookie.
type Cookie struct {
	ID        uuid.UUID
	Dimension CookieDimension
	Image     image.Image    // 2D cookies
	Faces     [6]image.Image // cube cookies, +X -X +Y -Y +Z -Z
	WrapMode  WrapMode
	Size2D    mgl32.Vec2 // world-space size of a directional cookie
	Version   uint64
}

// NewCookie2D wraps a 2D image as a cookie with a fresh identity.
//
// Parameters:
//   - img: the cookie image (expected square)
//   - wrap: the sampler wrap mode
//
// Returns:
//   - *Cookie: the new cookie
func NewCookie2D(img image.Image, wrap WrapMode) *Cookie {
	return &Cookie{
		ID:        uuid.New(),
		Dimension: CookieDimension2D,
		Image:     img,
		WrapMode:  wrap,
		Size2D:    mgl32.Vec2{10, 10},
	}
}

// NewCubeCookie wraps six face images as a cube cookie with a fresh identity.
//
// Parameters:
//   - faces: the six cube faces in +X -X +Y -Y +Z -Z order
//   - wrap: the sampler wrap mode
//
// Returns:
//   - *Cookie: the new cookie
func NewCubeCookie(faces [6]image.Image, wrap WrapMode) *Cookie {
	return &Cookie{
		ID:        uuid.New(),
		Dimension: CookieDimensionCube,
		Faces:     faces,
		WrapMode:  wrap,
		Size2D:    mgl32.Vec2{10, 10},
	}
}

// LoadCookie2D decodes a PNG or JPEG file into a 2D cookie.
func LoadCookie2D(path string, wrap WrapMode) (*Cookie, error) {
	img, err := common.DecodeImage(nil, path)
	if err != nil {
		return nil, fmt.Errorf("light: load cookie: %w", err)
	}
	return NewCookie2D(img, wrap), nil
}

// Width returns the width in texels of the cookie (face width for cubes).
func (c *Cookie) Width() int {
	if c.Dimension == CookieDimensionCube {
		if c.Faces[0] == nil {
			return 0
		}
		return c.Faces[0].Bounds().Dx()
	}
	if c.Image == nil {
		return 0
	}
	return c.Image.Bounds().Dx()
}

// Height returns the height in texels of the cookie (face height for cubes).
func (c *Cookie) Height() int {
	if c.Dimension == CookieDimensionCube {
		if c.Faces[0] == nil {
			return 0
		}
		return c.Faces[0].Bounds().Dy()
	}
	if c.Image == nil {
		return 0
	}
	return c.Image.Bounds().Dy()
}

// Touch marks the cookie content as changed.
func (c *Cookie) Touch() {
	c.Version++
}

// VisibleLight is a light that survived camera culling this frame. It is the
// input record of the lighting pipeline; the culling collaborator fills
// ScreenRect for punctual lights.
type VisibleLight struct {
	Kind               Kind
	LocalToWorld       mgl32.Mat4
	FinalColor         mgl32.Vec3 // linear color premultiplied by intensity
	Range              float32
	SpotAngle          float32 // full outer cone angle in degrees
	InnerSpotAngle     float32 // full inner cone angle in degrees
	RenderingLayerMask uint32
	Shadow             ShadowConfig
	Cookie             *Cookie
	ScreenRect         common.Rect
}

// Position returns the world-space position of the light.
func (l VisibleLight) Position() mgl32.Vec3 {
	return l.LocalToWorld.Col(3).Vec3()
}

// Forward returns the normalized axis the light shines along (local +Z).
func (l VisibleLight) Forward() mgl32.Vec3 {
	f := l.LocalToWorld.Col(2).Vec3()
	if f.Len() == 0 {
		return mgl32.Vec3{0, 0, 1}
	}
	return f.Normalize()
}

// Direction returns the vector from a lit surface toward the light, which is
// what the shader dots against the surface normal.
func (l VisibleLight) Direction() mgl32.Vec3 {
	return l.Forward().Mul(-1)
}

// WorldToLocal returns the inverse of LocalToWorld.
func (l VisibleLight) WorldToLocal() mgl32.Mat4 {
	return l.LocalToWorld.Inv()
}
