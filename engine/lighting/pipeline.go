// Package lighting drives light classification, Forward+ tile culling, shadow
// atlas planning and cookie atlas packing once per camera per frame, and
// uploads the results through an Uploader.
package lighting

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/cookie"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/profiler"
	"github.com/Carmen-Shannon/oxy-forward/engine/shadow"
)

// workerQueueSize bounds the tile culling task queue.
const workerQueueSize = 256

// Pipeline prepares and uploads the lighting data of one camera per call.
// A Pipeline is not safe for concurrent Prepare calls.
type Pipeline interface {
	// Prepare classifies the frame's lights, culls them into tiles, plans
	// shadows and cookies, then uploads every buffer at its maximum size.
	//
	// Parameters:
	//   - in: the frame's camera and visible lights
	//
	// Returns:
	//   - *FrameOutput: copies of everything that was uploaded
	//   - error: invalid input or an upload failure
	Prepare(in FrameInput) (*FrameOutput, error)

	// Settings returns the validated settings.
	Settings() Settings

	// Close stops the worker pool if the pipeline created it.
	Close()
}

type pipelineImpl struct {
	settings Settings
	uploader Uploader
	logger   *slog.Logger
	profiler *profiler.Profiler

	pool     worker.DynamicWorkerPool
	ownsPool bool
	tiles    *light.TileCuller
	shadows  shadow.Planner
	cookies  cookie.Planner
	arenas   *arenaPool

	declared bool
}

var _ Pipeline = &pipelineImpl{}

// NewPipeline validates settings and builds the pipeline with its planners and
// worker pool.
//
// Parameters:
//   - settings: the lighting settings
//   - uploader: the GPU upload target
//   - options: variadic list of PipelineBuilderOption functions
//
// Returns:
//   - Pipeline: the new pipeline
//   - error: ErrInvalidSettings when the settings are rejected
func NewPipeline(settings Settings, uploader Uploader, options ...PipelineBuilderOption) (Pipeline, error) {
	if uploader == nil {
		panic("lighting: NewPipeline requires an Uploader")
	}
	p := &pipelineImpl{
		settings: settings,
		uploader: uploader,
		arenas:   newArenaPool(),
	}
	for _, opt := range options {
		opt(p)
	}
	p.settings = p.settings.withDefaults()
	if err := p.settings.Validate(); err != nil {
		return nil, err
	}
	settings = p.settings
	p.logger = common.LoggerOrNop(p.logger)

	if p.pool == nil {
		p.pool = worker.NewDynamicWorkerPool(settings.Workers, workerQueueSize, time.Second)
		p.ownsPool = true
	}
	p.tiles = light.NewTileCuller(p.pool)
	p.shadows = shadow.NewPlanner(
		shadow.WithSettings(settings.shadowSettings()),
		shadow.WithLogger(p.logger),
	)
	p.cookies = cookie.NewPlanner(
		cookie.WithAtlasSize(settings.CookieAtlasSize),
		cookie.WithLogger(p.logger),
	)
	return p, nil
}

func (p *pipelineImpl) Settings() Settings {
	return p.settings
}

func (p *pipelineImpl) Close() {
	if p.ownsPool && p.pool != nil {
		p.pool.Stop()
	}
	p.pool = nil
}

// declareTextures creates the fixed-size render targets once.
func (p *pipelineImpl) declareTextures() error {
	if p.declared {
		return nil
	}
	s := p.settings
	descs := []TextureDesc{
		{Name: TextureDirectionalShadowMap, Width: s.Shadow.DirectionalMapSize, Height: s.Shadow.DirectionalMapSize, Format: TextureFormatDepth32},
		{Name: TexturePunctualShadowMap, Width: s.Shadow.PunctualMapSize, Height: s.Shadow.PunctualMapSize, Format: TextureFormatDepth32},
		{Name: TextureCookieAtlas, Width: s.CookieAtlasSize, Height: s.CookieAtlasSize, Format: TextureFormatRGBA8Srgb},
	}
	for _, d := range descs {
		if err := p.uploader.DeclareTexture(d); err != nil {
			return fmt.Errorf("lighting: declare %s: %w", d.Name, err)
		}
	}
	p.declared = true
	return nil
}
