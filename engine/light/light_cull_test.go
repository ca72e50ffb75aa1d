package light

import (
	"math/rand"
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBounds(rng *rand.Rand, n int) []common.Rect {
	out := make([]common.Rect, n)
	for i := range out {
		x, y := rng.Float32(), rng.Float32()
		w, h := rng.Float32()*0.3, rng.Float32()*0.3
		out[i] = common.Rect{MinX: x, MinY: y, MaxX: min(x+w, 1), MaxY: min(y+h, 1)}
	}
	return out
}

func TestComputeTileGrid(t *testing.T) {
	g := ComputeTileGrid(1920, 1080, 16)
	assert.Equal(t, 120, g.CountX)
	assert.Equal(t, 68, g.CountY)
	assert.Equal(t, 120*68, g.TileCount())
	assert.InDelta(t, 120.0, g.ScreenToTile[0], 1e-4)
	assert.InDelta(t, 67.5, g.ScreenToTile[1], 1e-4)

	assert.Equal(t, TileGrid{}, ComputeTileGrid(0, 1080, 16))
	assert.Equal(t, TileGrid{}, ComputeTileGrid(1920, 1080, 0))
}

func TestTileGridSettings(t *testing.T) {
	g := ComputeTileGrid(256, 128, 16)
	s := g.Settings(TileStride(8))
	assert.Equal(t, float32(16), s.TileCountX)
	assert.Equal(t, float32(9), s.Stride)
	assert.Equal(t, 16, s.Size())
}

func TestCullTileOrderAndCap(t *testing.T) {
	g := ComputeTileGrid(64, 64, 32)
	full := common.Rect{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
	left := common.Rect{MinX: 0, MinY: 0, MaxX: 0.25, MaxY: 1}
	bounds := []common.Rect{left, full, full, full}

	out := make([]int32, TileStride(2))
	CullTile(0, g, bounds, 2, out)
	assert.Equal(t, []int32{2, 0, 1}, out)

	CullTile(1, g, bounds, 2, out)
	assert.Equal(t, []int32{2, 1, 2}, out)
}

func TestCullTileClearsTail(t *testing.T) {
	g := ComputeTileGrid(64, 64, 32)
	out := []int32{9, 9, 9, 9}
	CullTile(3, g, []common.Rect{{MinX: 0.6, MinY: 0.6, MaxX: 0.7, MaxY: 0.7}}, 3, out)
	assert.Equal(t, []int32{1, 0, 0, 0}, out)

	CullTile(0, g, []common.Rect{{MinX: 0.6, MinY: 0.6, MaxX: 0.7, MaxY: 0.7}}, 3, out)
	assert.Equal(t, []int32{0, 0, 0, 0}, out)
}

func TestCullTilesSeventyLights(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	bounds := randomBounds(rng, 69)
	bounds = append(bounds, common.Rect{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1})

	const maxPerTile = 8
	grid := ComputeTileGrid(16*16, 16*16, 16)
	data := CullTiles(TileJob{Grid: grid, Bounds: bounds, MaxPerTile: maxPerTile})
	stride := TileStride(maxPerTile)
	require.Len(t, data, grid.TileCount()*stride)

	fullScreen := int32(len(bounds) - 1)
	for tile := range grid.TileCount() {
		slot := data[tile*stride : (tile+1)*stride]
		count := int(slot[0])
		require.GreaterOrEqual(t, count, 0)
		require.LessOrEqual(t, count, maxPerTile)

		rect := grid.TileRect(tile)
		listed := map[int32]bool{}
		prev := int32(-1)
		for _, idx := range slot[1 : 1+count] {
			assert.Greater(t, idx, prev, "tile %d lists lights out of order", tile)
			prev = idx
			listed[idx] = true
			assert.True(t, bounds[idx].Overlaps(rect), "tile %d lists light %d which misses it", tile, idx)
		}
		if count < maxPerTile {
			assert.True(t, listed[fullScreen], "tile %d with free slots misses the full-screen light", tile)
		}
	}
}

func TestTileCullerMatchesSerial(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	bounds := randomBounds(rng, MaxPunctualLights)
	grid := ComputeTileGrid(1280, 720, 16)

	serial := CullTiles(TileJob{Grid: grid, Bounds: bounds, MaxPerTile: 16})

	pool := worker.NewDynamicWorkerPool(4, 64, time.Second)
	defer pool.Stop()
	task := NewTileCuller(pool).Schedule(TileJob{Grid: grid, Bounds: bounds, MaxPerTile: 16})
	pooled := task.Wait()
	assert.Equal(t, serial, pooled)
	assert.Equal(t, pooled, task.Wait())

	var nilPool *TileCuller
	assert.Equal(t, serial, nilPool.Schedule(TileJob{Grid: grid, Bounds: bounds, MaxPerTile: 16}).Wait())
}

func TestTileCullerReusesOutput(t *testing.T) {
	grid := ComputeTileGrid(64, 64, 16)
	buf := make([]int32, grid.TileCount()*TileStride(4))
	for i := range buf {
		buf[i] = -5
	}
	out := NewTileCuller(nil).Schedule(TileJob{Grid: grid, MaxPerTile: 4, Out: buf}).Wait()
	assert.Equal(t, &buf[0], &out[0])
	for _, v := range out {
		assert.Zero(t, v)
	}
}

func TestComputeTileStats(t *testing.T) {
	grid := ComputeTileGrid(32, 16, 16)
	data := []int32{
		2, 0, 1,
		0, 0, 0,
	}
	s := ComputeTileStats(data, grid, 2)
	assert.Equal(t, 2, s.MaxLights)
	assert.Equal(t, 1, s.SaturatedTiles)
	assert.Equal(t, 1, s.EmptyTiles)
	assert.InDelta(t, 1.0, s.MeanLights, 1e-6)

	assert.Equal(t, TileStats{}, ComputeTileStats(data[:3], grid, 2))
}

func TestTileHeatmap(t *testing.T) {
	grid := ComputeTileGrid(32, 16, 16)
	img := TileHeatmap([]int32{2, 0, 1, 0, 0, 0}, grid, 2, 64, 32)
	require.NotNil(t, img)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}
