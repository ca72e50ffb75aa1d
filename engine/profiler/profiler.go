package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/common"
)

// Stage names one timed step of lighting preparation.
type Stage int

const (
	StageClassify Stage = iota
	StageShadows
	StageCookies
	StageTileJoin
	StageUpload
	stageCount
)

func (s Stage) String() string {
	switch s {
	case StageClassify:
		return "classify"
	case StageShadows:
		return "shadows"
	case StageCookies:
		return "cookies"
	case StageTileJoin:
		return "tile_join"
	case StageUpload:
		return "upload"
	default:
		return "unknown"
	}
}

// Profiler tracks frame rate, per-stage timings and memory statistics.
// Outputs stats to the logger at a configurable interval.
type Profiler struct {
	logger         *slog.Logger
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastTotalAlloc uint64

	stages [stageCount]time.Duration
	last   Snapshot
}

// Snapshot is the summary produced at the end of an interval.
type Snapshot struct {
	FramesPerSecond float64
	// StageAverages is the mean time per frame spent in each stage.
	StageAverages [stageCount]time.Duration
	HeapMB        float64
	AllocRateMB   float64
	GCCount       uint32
}

// NewProfiler creates a new Profiler logging to logger. Update interval
// defaults to 1 second.
//
// Parameters:
//   - logger: destination of the periodic stats line (nil discards)
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(logger *slog.Logger) *Profiler {
	return &Profiler{
		logger:         common.LoggerOrNop(logger),
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
}

// SetInterval changes how often stats are logged.
func (p *Profiler) SetInterval(d time.Duration) {
	p.updateInterval = d
}

// Begin starts timing stage and returns the function that stops it.
//
// Parameters:
//   - stage: the stage being timed
//
// Returns:
//   - func(): call when the stage ends
func (p *Profiler) Begin(stage Stage) func() {
	if p == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.stages[stage] += time.Since(start)
	}
}

// Last returns the summary of the most recent completed interval.
func (p *Profiler) Last() Snapshot {
	return p.last
}

// Tick should be called once per prepared frame.
// Logs performance statistics when the update interval has elapsed.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	if p == nil {
		return false
	}
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	snap := Snapshot{
		FramesPerSecond: float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:          float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB:     float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:         p.memStats.NumGC,
	}
	for i, total := range p.stages {
		snap.StageAverages[i] = total / time.Duration(p.frameCount)
	}

	attrs := []any{
		"fps", snap.FramesPerSecond,
		"heap_mb", snap.HeapMB,
		"alloc_rate_mb", snap.AllocRateMB,
		"gc", snap.GCCount,
	}
	for i, avg := range snap.StageAverages {
		attrs = append(attrs, Stage(i).String(), avg)
	}
	p.logger.Info("[Profiler]", attrs...)

	p.last = snap
	p.frameCount = 0
	p.lastTime = currentTime
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.stages = [stageCount]time.Duration{}
	return true
}
