package cookie

import (
	"image"

	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

type atlasEntry struct {
	region  image.Rectangle
	width   int
	height  int
	version uint64
}

// Atlas is the persistent CPU copy of the cookie atlas texture. Entries are
// keyed by cookie identity and survive across frames until the atlas is reset
// or the cookie changes size.
type Atlas struct {
	size    int
	img     *image.RGBA
	alloc   *allocator
	entries map[uuid.UUID]atlasEntry
	dirty   []image.Rectangle
}

// NewAtlas creates an empty size x size atlas.
func NewAtlas(size int) *Atlas {
	a := &Atlas{
		size:    size,
		img:     image.NewRGBA(image.Rect(0, 0, size, size)),
		alloc:   newAllocator(size),
		entries: make(map[uuid.UUID]atlasEntry),
	}
	return a
}

// Size returns the atlas edge length in texels.
func (a *Atlas) Size() int {
	return a.size
}

// Image returns the atlas pixels. The image is mutated in place by Place and Reset.
func (a *Atlas) Image() *image.RGBA {
	return a.img
}

// Len returns the number of cached cookies.
func (a *Atlas) Len() int {
	return len(a.entries)
}

// Dirty returns the regions written since the last ClearDirty.
func (a *Atlas) Dirty() []image.Rectangle {
	return a.dirty
}

// ClearDirty forgets the written regions once they have been uploaded.
func (a *Atlas) ClearDirty() {
	a.dirty = a.dirty[:0]
}

// Reset evicts every entry and clears the pixels. The whole atlas is marked dirty.
func (a *Atlas) Reset() {
	clear(a.entries)
	a.alloc.reset()
	clear(a.img.Pix)
	a.dirty = append(a.dirty[:0], a.img.Bounds())
}

// Lookup returns the region cached for id.
func (a *Atlas) Lookup(id uuid.UUID) (image.Rectangle, bool) {
	e, ok := a.entries[id]
	return e.region, ok
}

// AllocationSize returns the atlas footprint of a cookie: the image size for
// 2D cookies and the octahedral square for cube cookies.
func AllocationSize(c *light.Cookie) (w, h int) {
	if c.Dimension == light.CookieDimensionCube {
		s := OctahedralSize(c.Width(), c.Height())
		return s, s
	}
	return c.Width(), c.Height()
}

// Place makes sure c is in the atlas and returns its UV scale (xy) and offset
// (zw). A cached cookie of unchanged size keeps its region and is re-blitted
// only when its version moved; a size change abandons the old region. Place
// reports false when the cookie does not fit.
//
// Parameters:
//   - c: the cookie to place
//
// Returns:
//   - mgl32.Vec4: UV scale and offset of the cookie's region
//   - bool: false under capacity pressure
func (a *Atlas) Place(c *light.Cookie) (mgl32.Vec4, bool) {
	w, h := AllocationSize(c)
	if w <= 0 || h <= 0 {
		return mgl32.Vec4{}, false
	}

	if e, ok := a.entries[c.ID]; ok {
		if e.width == w && e.height == h {
			if e.version != c.Version {
				a.blit(c, e.region)
				e.version = c.Version
				a.entries[c.ID] = e
			}
			return a.scaleOffset(e.region), true
		}
		delete(a.entries, c.ID)
	}

	region, ok := a.alloc.allocate(w, h)
	if !ok {
		return mgl32.Vec4{}, false
	}
	a.blit(c, region)
	a.entries[c.ID] = atlasEntry{region: region, width: w, height: h, version: c.Version}
	return a.scaleOffset(region), true
}

func (a *Atlas) scaleOffset(r image.Rectangle) mgl32.Vec4 {
	s := float32(a.size)
	return mgl32.Vec4{
		float32(r.Dx()) / s,
		float32(r.Dy()) / s,
		float32(r.Min.X) / s,
		float32(r.Min.Y) / s,
	}
}

func (a *Atlas) blit(c *light.Cookie, region image.Rectangle) {
	var src image.Image
	switch c.Dimension {
	case light.CookieDimensionCube:
		src = RemapOctahedral(c.Faces, region.Dx())
	default:
		src = c.Image
	}
	if src == nil {
		return
	}

	if src.Bounds().Size() == region.Size() {
		draw.Draw(a.img, region, src, src.Bounds().Min, draw.Src)
	} else {
		draw.BiLinear.Scale(a.img, region, src, src.Bounds(), draw.Src, nil)
	}
	a.dirty = append(a.dirty, region)
}
