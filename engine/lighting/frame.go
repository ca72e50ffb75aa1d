package lighting

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/cookie"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/profiler"
	"github.com/Carmen-Shannon/oxy-forward/engine/shadow"
)

// FrameInput is everything Prepare needs for one camera.
type FrameInput struct {
	// Width and Height are the color attachment size in pixels.
	Width, Height int
	// Preview marks preview cameras, which get a fallback directional light
	// when the scene has none.
	Preview bool
	// Lights is the camera's visible-light list. Punctual lights carry their
	// screen rectangles.
	Lights []light.VisibleLight
	// DrawShadows enables shadow planning; Culler must be set for it to
	// have any effect.
	DrawShadows bool
	Culler      shadow.Culler
}

// FrameOutput is a copy of what one Prepare call uploaded.
type FrameOutput struct {
	DirectionalLights []light.DirectionalLightGPU
	PunctualLights    []light.PunctualLightGPU
	// PunctualSource maps each punctual slot back to its visible-light index.
	PunctualSource []int

	Grid         light.TileGrid
	TileSettings light.TileSettings
	// Tiles is nil when the frame had no punctual lights.
	Tiles []int32

	// Shadow is nil when shadows were not drawn.
	Shadow  *shadow.Plan
	Cookies []cookie.GPUCookie

	PreviewFallback    bool
	DroppedDirectional int
	DroppedPunctual    int
}

func (p *pipelineImpl) Prepare(in FrameInput) (*FrameOutput, error) {
	if in.Width <= 0 || in.Height <= 0 {
		return nil, fmt.Errorf("lighting: prepare: invalid attachment size %dx%d", in.Width, in.Height)
	}
	if err := p.declareTextures(); err != nil {
		return nil, err
	}

	arena := p.arenas.acquire()
	defer p.arenas.release(arena)
	s := p.settings
	prof := p.profiler

	drawShadows := in.DrawShadows && in.Culler != nil
	classifier := light.Classifier{Cookies: p.cookies}
	if drawShadows {
		p.shadows.Setup(in.Culler, len(in.Lights))
		classifier.Shadows = p.shadows
	}
	p.cookies.Setup()

	stop := prof.Begin(profiler.StageClassify)
	cls := &arena.Classification
	classifier.Classify(in.Lights, cls)
	out := &FrameOutput{
		DroppedDirectional: cls.DroppedDirectional,
		DroppedPunctual:    cls.DroppedPunctual,
	}
	if in.Preview {
		out.PreviewFallback = light.ApplyPreviewFallback(cls)
	}
	stop()
	if cls.DroppedDirectional+cls.DroppedPunctual > 0 {
		p.logger.Debug("lighting: lights beyond capacity dropped",
			"directional", cls.DroppedDirectional, "punctual", cls.DroppedPunctual)
	}

	// Fork tile culling as soon as the bounds are known.
	grid := light.ComputeTileGrid(in.Width, in.Height, s.TileSize)
	stride := light.TileStride(s.MaxLightsPerTile)
	var tileTask *light.TileTask
	if cls.PunctualCount > 0 {
		tileTask = p.tiles.Schedule(light.TileJob{
			Grid:       grid,
			Bounds:     cls.Bounds(),
			MaxPerTile: s.MaxLightsPerTile,
			Out:        arena.Tiles,
		})
	}

	stop = prof.Begin(profiler.StageShadows)
	var plan *shadow.Plan
	if drawShadows {
		plan = p.shadows.Plan()
	}
	stop()

	stop = prof.Begin(profiler.StageCookies)
	cookies := p.cookies.Build(s.Platform.UVStartsAtTop)
	stop()

	stop = prof.Begin(profiler.StageTileJoin)
	if tileTask != nil {
		arena.Tiles = tileTask.Wait()
	}
	stop()

	out.DirectionalLights = append([]light.DirectionalLightGPU(nil), cls.DirectionalLights()...)
	out.PunctualLights = append([]light.PunctualLightGPU(nil), cls.PunctualLights()...)
	out.PunctualSource = append([]int(nil), cls.PunctualSource[:cls.PunctualCount]...)
	out.Grid = grid
	out.TileSettings = grid.Settings(stride)
	out.Cookies = append([]cookie.GPUCookie(nil), cookies...)
	if tileTask != nil {
		out.Tiles = append([]int32(nil), arena.Tiles...)
	}
	if plan != nil {
		cp := *plan
		cp.Draws = append([]shadow.Draw(nil), plan.Draws...)
		out.Shadow = &cp
	}

	stop = prof.Begin(profiler.StageUpload)
	err := p.upload(out)
	stop()
	prof.Tick()
	if err != nil {
		return nil, err
	}
	return out, nil
}

// upload writes every buffer at its maximum capacity so backing resources
// keep the same size from frame to frame.
func (p *pipelineImpl) upload(out *FrameOutput) error {
	s := p.settings
	put := func(name string, data []byte) error {
		if err := p.uploader.UploadBuffer(BufferDesc{Name: name, Size: len(data)}, data); err != nil {
			return fmt.Errorf("lighting: upload %s: %w", name, err)
		}
		return nil
	}

	if err := put(BufferDirectionalLights, light.MarshalDirectionalBuffer(out.DirectionalLights)); err != nil {
		return err
	}
	if len(out.PunctualLights) > 0 {
		if err := put(BufferPunctualLights, light.MarshalPunctualBuffer(out.PunctualLights)); err != nil {
			return err
		}
		if err := put(BufferTiles, common.SliceToBytes(out.Tiles)); err != nil {
			return err
		}
	}

	globals := Globals{
		DirectionalCount: float32(len(out.DirectionalLights)),
		PunctualCount:    float32(len(out.PunctualLights)),
		CookieCount:      float32(len(out.Cookies)),
		TileSettings:     out.TileSettings,
	}

	if out.Shadow != nil && !out.Shadow.Empty() {
		plan := out.Shadow
		if err := put(BufferDirectionalShadowTiles, shadow.MarshalTileBuffer(plan.DirectionalTiles[:], shadow.MaxDirectionalTiles)); err != nil {
			return err
		}
		if err := put(BufferPunctualShadowTiles, shadow.MarshalTileBuffer(plan.PunctualTiles[:], shadow.MaxPunctualTiles)); err != nil {
			return err
		}
		globals.ShadowsEnabled = 1
		globals.Cascade = plan.Cascade
	}

	if len(out.Cookies) > 0 {
		if err := put(BufferCookies, cookie.MarshalCookieBuffer(out.Cookies)); err != nil {
			return err
		}
	}
	atlas := p.cookies.Atlas()
	if dirty := atlas.Dirty(); len(dirty) > 0 {
		desc := TextureDesc{Name: TextureCookieAtlas, Width: s.CookieAtlasSize, Height: s.CookieAtlasSize, Format: TextureFormatRGBA8Srgb}
		if err := p.uploader.UploadTexture(desc, atlas.Image(), dirty); err != nil {
			return fmt.Errorf("lighting: upload %s: %w", TextureCookieAtlas, err)
		}
		atlas.ClearDirty()
	}

	if err := p.uploader.SetGlobals(globals); err != nil {
		return fmt.Errorf("lighting: set globals: %w", err)
	}
	return nil
}
