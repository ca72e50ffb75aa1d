package shadow

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// SplitCount returns how many tiles per side an atlas holding tiles tiles is
// divided into. More than MaxPunctualTiles is unreachable under the caps and
// panics.
//
// Parameters:
//   - tiles: the number of tiles to pack
//
// Returns:
//   - int: 1, 2, 4 or 5
func SplitCount(tiles int) int {
	switch {
	case tiles <= 1:
		return 1
	case tiles <= 4:
		return 2
	case tiles <= 16:
		return 4
	case tiles <= 25:
		return 5
	default:
		panic(fmt.Sprintf("shadow: cannot pack %d tiles into one atlas", tiles))
	}
}

// AtlasLayout is the square grid an atlas is split into for one frame.
type AtlasLayout struct {
	MapSize  int
	Split    int
	TileSize int
}

// NewAtlasLayout lays out tiles tiles on a mapSize x mapSize atlas.
func NewAtlasLayout(mapSize, tiles int) AtlasLayout {
	split := SplitCount(tiles)
	return AtlasLayout{
		MapSize:  mapSize,
		Split:    split,
		TileSize: int(float32(mapSize) / float32(split)),
	}
}

// TileCoords returns the column and row of tile i. Tiles fill rows from the
// atlas origin.
func (a AtlasLayout) TileCoords(i int) (x, y int) {
	return i % a.Split, i / a.Split
}

// TileOffset returns the pixel offset of tile i from the atlas origin.
func (a AtlasLayout) TileOffset(i int) mgl32.Vec2 {
	x, y := a.TileCoords(i)
	return mgl32.Vec2{float32(x * a.TileSize), float32(y * a.TileSize)}
}

// Viewport returns the pixel rectangle of tile i.
func (a AtlasLayout) Viewport(i int) image.Rectangle {
	x, y := a.TileCoords(i)
	return image.Rect(x*a.TileSize, y*a.TileSize, (x+1)*a.TileSize, (y+1)*a.TileSize)
}

// TileScale returns the size of one tile in atlas UV. It is smaller than
// 1 / Split when the map size does not divide evenly.
func (a AtlasLayout) TileScale() float32 {
	return float32(a.TileSize) / float32(a.MapSize)
}

// UVRect returns the atlas UV rectangle (min, max) of tile i.
func (a AtlasLayout) UVRect(i int) (lo, hi mgl32.Vec2) {
	off := a.TileOffset(i).Mul(1 / float32(a.MapSize))
	size := a.TileScale()
	return off, off.Add(mgl32.Vec2{size, size})
}
