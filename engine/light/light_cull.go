package light

import (
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/go-gl/mathgl/mgl32"
)

// TileGrid describes the screen-space tile layout for one camera.
type TileGrid struct {
	CountX, CountY int
	// ScreenToTile converts a normalized screen UV into tile coordinates.
	ScreenToTile mgl32.Vec2
	// TileUV is the size of one tile in normalized screen UV.
	TileUV mgl32.Vec2
}

// ComputeTileGrid lays tiles of tileSize pixels over a width x height target.
// Partial tiles at the right and top edges count as whole tiles.
//
// Parameters:
//   - width: render target width in pixels
//   - height: render target height in pixels
//   - tileSize: tile edge length in pixels
//
// Returns:
//   - TileGrid: the computed grid
func ComputeTileGrid(width, height, tileSize int) TileGrid {
	if width <= 0 || height <= 0 || tileSize <= 0 {
		return TileGrid{}
	}
	g := TileGrid{
		CountX: common.CeilDiv(width, tileSize),
		CountY: common.CeilDiv(height, tileSize),
	}
	g.ScreenToTile = mgl32.Vec2{float32(width) / float32(tileSize), float32(height) / float32(tileSize)}
	g.TileUV = mgl32.Vec2{float32(tileSize) / float32(width), float32(tileSize) / float32(height)}
	return g
}

// TileCount returns the total number of tiles.
func (g TileGrid) TileCount() int {
	return g.CountX * g.CountY
}

// TileRect returns the normalized UV rectangle of the tile at flat index tile.
func (g TileGrid) TileRect(tile int) common.Rect {
	x, y := tile%g.CountX, tile/g.CountX
	return common.Rect{
		MinX: float32(x) * g.TileUV[0],
		MinY: float32(y) * g.TileUV[1],
		MaxX: float32(x+1) * g.TileUV[0],
		MaxY: float32(y+1) * g.TileUV[1],
	}
}

// Settings returns the TileSettings vector the fragment shader needs.
func (g TileGrid) Settings(stride int) TileSettings {
	return TileSettings{
		ScreenToTile: g.ScreenToTile,
		TileCountX:   float32(g.CountX),
		Stride:       float32(stride),
	}
}

// TileStride returns the number of int32 slots one tile occupies: a count
// header followed by maxLightsPerTile light indices.
func TileStride(maxLightsPerTile int) int {
	return maxLightsPerTile + 1
}

// CullTile writes the header and light list of a single tile into out, which
// must be exactly one stride long. Light indices are written in ascending
// punctual-slot order and the list stops at maxPerTile. Unused slots are
// zeroed so repeated frames produce identical bytes.
//
// Parameters:
//   - tile: flat tile index
//   - grid: the tile grid
//   - bounds: normalized screen rectangles of the punctual lights, in slot order
//   - maxPerTile: maximum number of lights listed in one tile
//   - out: the tile's slot, length maxPerTile+1
func CullTile(tile int, grid TileGrid, bounds []common.Rect, maxPerTile int, out []int32) {
	rect := grid.TileRect(tile)
	n := 0
	for i, b := range bounds {
		if n >= maxPerTile {
			break
		}
		if b.Overlaps(rect) {
			out[1+n] = int32(i)
			n++
		}
	}
	out[0] = int32(n)
	clear(out[1+n:])
}

// TileJob is one frame's worth of tile culling input.
type TileJob struct {
	Grid       TileGrid
	Bounds     []common.Rect
	MaxPerTile int
	// Out receives TileCount * stride entries; allocated when nil or too short.
	Out []int32
}

// Stride returns the per-tile slot length of the job.
func (j TileJob) Stride() int {
	return TileStride(j.MaxPerTile)
}

func (j *TileJob) prepare() {
	need := j.Grid.TileCount() * j.Stride()
	if cap(j.Out) < need {
		j.Out = make([]int32, need)
	}
	j.Out = j.Out[:need]
}

func (j TileJob) cullRow(y int) {
	stride := j.Stride()
	for x := range j.Grid.CountX {
		tile := y*j.Grid.CountX + x
		CullTile(tile, j.Grid, j.Bounds, j.MaxPerTile, j.Out[tile*stride:(tile+1)*stride])
	}
}

// CullTiles runs every tile of the job on the calling goroutine.
//
// Returns:
//   - []int32: the tile buffer, TileCount * stride entries
func CullTiles(job TileJob) []int32 {
	job.prepare()
	for y := range job.Grid.CountY {
		job.cullRow(y)
	}
	return job.Out
}

// TileTask is the pending result of a scheduled tile culling job.
type TileTask struct {
	wg     sync.WaitGroup
	once   sync.Once
	result []int32
}

// Wait blocks until every tile is written and returns the tile buffer. Later
// calls return the same buffer immediately.
func (t *TileTask) Wait() []int32 {
	t.once.Do(t.wg.Wait)
	return t.result
}

// TileCuller fans tile culling out over a worker pool. Each row of tiles is
// one task; the tiles inside a row are still independent and write disjoint
// parts of the output.
type TileCuller struct {
	pool worker.DynamicWorkerPool
}

// NewTileCuller creates a TileCuller on top of pool. A nil pool runs each job
// on a single background goroutine.
func NewTileCuller(pool worker.DynamicWorkerPool) *TileCuller {
	return &TileCuller{pool: pool}
}

// Schedule starts culling job and returns immediately. Tasks are batched one
// tile row (CountX tiles) at a time so a 1080p frame submits tens of tasks
// rather than hundreds; each tile in a batch is still culled on its own. The
// job's bounds and output must not be touched until the task's Wait returns.
//
// Parameters:
//   - job: the tile culling input
//
// Returns:
//   - *TileTask: the future to join on
func (c *TileCuller) Schedule(job TileJob) *TileTask {
	job.prepare()
	task := &TileTask{result: job.Out}
	rows := job.Grid.CountY
	if rows == 0 {
		return task
	}

	if c == nil || c.pool == nil {
		task.wg.Add(1)
		go func() {
			defer task.wg.Done()
			for y := range rows {
				job.cullRow(y)
			}
		}()
		return task
	}

	task.wg.Add(rows)
	// SubmitTask blocks on a full queue, so submission runs off the caller.
	go func() {
		for y := range rows {
			row := y
			c.pool.SubmitTask(worker.Task{
				ID:      row,
				Payload: job.Grid,
				Do: func() (any, error) {
					defer task.wg.Done()
					job.cullRow(row)
					return nil, nil
				},
			})
		}
	}()
	return task
}
