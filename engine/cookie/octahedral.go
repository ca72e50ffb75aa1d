package cookie

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
)

// OctahedralSize returns the edge length of the square octahedral image a
// cube cookie with w x h faces is remapped into. The 2.5 factor keeps roughly
// the texel density of the six faces.
func OctahedralSize(w, h int) int {
	return int(float32(max(w, h))*2.5 + 0.5)
}

// RemapOctahedral unwraps a cube given as six faces (+X -X +Y -Y +Z -Z) into a
// size x size octahedral image. Each output texel is decoded to a direction
// and the matching cube face is sampled at its nearest texel.
//
// Parameters:
//   - faces: the six cube faces, all the same size
//   - size: the output edge length
//
// Returns:
//   - *image.RGBA: the octahedral image
func RemapOctahedral(faces [6]image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	var rgba [6]*image.RGBA
	for i, f := range faces {
		if f == nil {
			return dst
		}
		rgba[i] = toRGBA(f)
	}

	for y := range size {
		for x := range size {
			u := (float32(x)+0.5)/float32(size)*2 - 1
			v := (float32(y)+0.5)/float32(size)*2 - 1
			face, s, t := cubeFaceUV(OctahedralDecode(u, v))
			dst.SetRGBA(x, y, sampleNearest(rgba[face], s, t))
		}
	}
	return dst
}

// OctahedralDecode maps a point of the [-1, 1] square to a unit direction.
func OctahedralDecode(u, v float32) mgl32.Vec3 {
	n := mgl32.Vec3{u, v, 1 - abs(u) - abs(v)}
	if n[2] < 0 {
		n[0], n[1] = (1-abs(v))*sign(u), (1-abs(u))*sign(v)
	}
	return n.Normalize()
}

// cubeFaceUV selects the cube face hit by dir and returns the [0, 1] face
// coordinates using the usual cube map orientation.
func cubeFaceUV(dir mgl32.Vec3) (face int, s, t float32) {
	ax, ay, az := abs(dir[0]), abs(dir[1]), abs(dir[2])
	var sc, tc, ma float32
	switch {
	case ax >= ay && ax >= az:
		ma = ax
		if dir[0] > 0 {
			face, sc, tc = 0, -dir[2], -dir[1]
		} else {
			face, sc, tc = 1, dir[2], -dir[1]
		}
	case ay >= az:
		ma = ay
		if dir[1] > 0 {
			face, sc, tc = 2, dir[0], dir[2]
		} else {
			face, sc, tc = 3, dir[0], -dir[2]
		}
	default:
		ma = az
		if dir[2] > 0 {
			face, sc, tc = 4, dir[0], -dir[1]
		} else {
			face, sc, tc = 5, -dir[0], -dir[1]
		}
	}
	return face, (sc/ma + 1) / 2, (tc/ma + 1) / 2
}

func sampleNearest(img *image.RGBA, s, t float32) color.RGBA {
	b := img.Bounds()
	x := min(int(s*float32(b.Dx())), b.Dx()-1)
	y := min(int(t*float32(b.Dy())), b.Dy()-1)
	return img.RGBAAt(b.Min.X+max(x, 0), b.Min.Y+max(y, 0))
}

func toRGBA(img image.Image) *image.RGBA {
	if r, ok := img.(*image.RGBA); ok {
		return r
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}
