package lighting

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/engine/light"
)

// FrameArena holds the scratch state of one Prepare call. Arenas are recycled
// through a sync.Pool so the fixed-size classification arrays and the tile
// buffer are not reallocated every frame.
type FrameArena struct {
	Classification light.Classification
	Tiles          []int32
}

type arenaPool struct {
	pool sync.Pool
}

func newArenaPool() *arenaPool {
	return &arenaPool{
		pool: sync.Pool{
			New: func() any { return &FrameArena{} },
		},
	}
}

func (p *arenaPool) acquire() *FrameArena {
	a := p.pool.Get().(*FrameArena)
	a.Classification.Reset()
	return a
}

func (p *arenaPool) release(a *FrameArena) {
	p.pool.Put(a)
}
