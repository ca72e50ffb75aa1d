// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/go-gl/mathgl/mgl32"
)

// Rect is an axis-aligned rectangle in normalized screen UV space ([0, 1] on
// both axes, origin at the bottom-left of the attachment).
type Rect struct {
	MinX, MinY float32
	MaxX, MaxY float32
}

// Overlaps reports whether r and o share any point. Touching edges count as
// overlap so a light whose bounds end exactly on a tile edge is still listed.
//
// Parameters:
//   - o: the other rectangle
//
// Returns:
//   - bool: true if the rectangles overlap
func (r Rect) Overlaps(o Rect) bool {
	return r.MinX <= o.MaxX && r.MinY <= o.MaxY && o.MinX <= r.MaxX && o.MinY <= r.MaxY
}

// Contains reports whether the point (x, y) lies inside r (edges inclusive).
func (r Rect) Contains(x, y float32) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// Vec4 packs the rectangle as (minX, minY, maxX, maxY).
func (r Rect) Vec4() mgl32.Vec4 {
	return mgl32.Vec4{r.MinX, r.MinY, r.MaxX, r.MaxY}
}

// Bounds is a world-space axis-aligned bounding box stored as center and
// half-extents.
type Bounds struct {
	Center  mgl32.Vec3
	Extents mgl32.Vec3
}

// BoundsFromMinMax builds Bounds from its min and max corners.
func BoundsFromMinMax(lo, hi mgl32.Vec3) Bounds {
	return Bounds{
		Center:  lo.Add(hi).Mul(0.5),
		Extents: hi.Sub(lo).Mul(0.5),
	}
}

// Min returns the minimum corner.
func (b Bounds) Min() mgl32.Vec3 { return b.Center.Sub(b.Extents) }

// Max returns the maximum corner.
func (b Bounds) Max() mgl32.Vec3 { return b.Center.Add(b.Extents) }

// Empty reports whether the box has no extent on all three axes. Flat boxes
// such as planes are not empty.
func (b Bounds) Empty() bool {
	return b.Extents[0] <= 0 && b.Extents[1] <= 0 && b.Extents[2] <= 0
}

// Encapsulate returns the smallest box containing both b and o.
func (b Bounds) Encapsulate(o Bounds) Bounds {
	lo, hi := b.Min(), b.Max()
	olo, ohi := o.Min(), o.Max()
	for i := range 3 {
		lo[i] = min(lo[i], olo[i])
		hi[i] = max(hi[i], ohi[i])
	}
	return BoundsFromMinMax(lo, hi)
}

// IntersectsSphere reports whether the box touches the sphere.
func (b Bounds) IntersectsSphere(center mgl32.Vec3, radius float32) bool {
	lo, hi := b.Min(), b.Max()
	var d2 float32
	for i := range 3 {
		c := mgl32.Clamp(center[i], lo[i], hi[i])
		d := center[i] - c
		d2 += d * d
	}
	return d2 <= radius*radius
}

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
	// OriginX and OriginY place the data inside a larger texture for partial uploads.
	OriginX, OriginY uint32
}

// StageRegion copies the given region of img into a tightly packed
// TextureStagingData suitable for a partial texture write.
//
// Parameters:
//   - img: the source image
//   - r: the region to stage, clipped to img bounds
//
// Returns:
//   - TextureStagingData: the staged pixels and placement
func StageRegion(img *image.RGBA, r image.Rectangle) TextureStagingData {
	r = r.Intersect(img.Bounds())
	w, h := r.Dx(), r.Dy()
	pix := make([]byte, w*h*4)
	for y := range h {
		src := img.PixOffset(r.Min.X, r.Min.Y+y)
		copy(pix[y*w*4:(y+1)*w*4], img.Pix[src:src+w*4])
	}
	return TextureStagingData{
		Pixels:  pix,
		Width:   uint32(w),
		Height:  uint32(h),
		OriginX: uint32(r.Min.X - img.Rect.Min.X),
		OriginY: uint32(r.Min.Y - img.Rect.Min.Y),
	}
}

// DecodeImage decodes PNG or JPEG image bytes, or loads them from path when
// data is empty, and converts the result to RGBA.
// Reference: https://pkg.go.dev/image
//
// Parameters:
//   - data: raw encoded image bytes (may be nil)
//   - path: a file path used when data is empty
//
// Returns:
//   - *image.RGBA: the decoded image
//   - error: error if decoding fails
func DecodeImage(data []byte, path string) (*image.RGBA, error) {
	var img image.Image
	var err error

	if len(data) > 0 {
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode embedded image: %w", err)
		}
	} else if path != "" {
		file, fileErr := os.Open(path)
		if fileErr != nil {
			return nil, fmt.Errorf("failed to open texture file %s: %w", path, fileErr)
		}
		defer file.Close()

		img, _, err = image.Decode(file)
		if err != nil {
			return nil, fmt.Errorf("failed to decode texture file %s: %w", path, err)
		}
	} else {
		return nil, fmt.Errorf("texture has neither data nor path")
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba, nil
}
