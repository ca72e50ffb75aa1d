package light

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// TileStats summarizes one frame's tile buffer.
type TileStats struct {
	MaxLights      int
	MeanLights     float32
	SaturatedTiles int // tiles whose list hit the per-tile cap
	EmptyTiles     int
}

// ComputeTileStats walks the headers of a tile buffer.
//
// Parameters:
//   - data: the tile buffer produced by CullTiles or a TileTask
//   - grid: the grid the buffer was built for
//   - maxPerTile: the per-tile cap used when culling
//
// Returns:
//   - TileStats: the summary
func ComputeTileStats(data []int32, grid TileGrid, maxPerTile int) TileStats {
	var s TileStats
	n := grid.TileCount()
	stride := TileStride(maxPerTile)
	if n == 0 || len(data) < n*stride {
		return s
	}
	total := 0
	for tile := range n {
		count := int(data[tile*stride])
		total += count
		s.MaxLights = max(s.MaxLights, count)
		if count >= maxPerTile {
			s.SaturatedTiles++
		}
		if count == 0 {
			s.EmptyTiles++
		}
	}
	s.MeanLights = float32(total) / float32(n)
	return s
}

// TileHeatmap renders per-tile light counts as an image of width x height
// pixels: black for empty tiles, ramping through blue and green to red at the
// per-tile cap. Row 0 of the grid is drawn at the bottom of the image.
//
// Parameters:
//   - data: the tile buffer
//   - grid: the grid the buffer was built for
//   - maxPerTile: the per-tile cap used when culling
//   - width, height: output image size in pixels
//
// Returns:
//   - *image.RGBA: the heatmap
func TileHeatmap(data []int32, grid TileGrid, maxPerTile, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if grid.TileCount() == 0 || len(data) < grid.TileCount()*TileStride(maxPerTile) {
		return dst
	}

	cells := image.NewRGBA(image.Rect(0, 0, grid.CountX, grid.CountY))
	stride := TileStride(maxPerTile)
	for y := range grid.CountY {
		for x := range grid.CountX {
			count := int(data[(y*grid.CountX+x)*stride])
			cells.SetRGBA(x, grid.CountY-1-y, heatColor(count, maxPerTile))
		}
	}
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), cells, cells.Bounds(), draw.Src, nil)
	return dst
}

func heatColor(count, maxPerTile int) color.RGBA {
	if count <= 0 || maxPerTile <= 0 {
		return color.RGBA{A: 255}
	}
	t := min(float32(count)/float32(maxPerTile), 1)
	switch {
	case t < 0.5:
		k := t * 2
		return color.RGBA{G: uint8(255 * k), B: uint8(255 * (1 - k)), A: 255}
	default:
		k := (t - 0.5) * 2
		return color.RGBA{R: uint8(255 * k), G: uint8(255 * (1 - k)), A: 255}
	}
}
