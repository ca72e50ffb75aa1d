package renderer

import (
	_ "embed"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/lighting"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ForwardLightingSource declares every resource the forward shading passes
// read from the lighting pipeline.
//
//go:embed assets/forward_lighting.wgsl
var ForwardLightingSource string

const (
	lightingGroup = 0
	atlasGroup    = 1
)

// bufferVars maps uploader resource names to their WGSL variable names.
var bufferVars = map[string]string{
	lighting.BufferDirectionalLights:      "directional_lights",
	lighting.BufferPunctualLights:         "punctual_lights",
	lighting.BufferTiles:                  "tiles",
	lighting.BufferDirectionalShadowTiles: "directional_shadow_tiles",
	lighting.BufferPunctualShadowTiles:    "punctual_shadow_tiles",
	lighting.BufferCookies:                "light_cookies",
}

var textureVars = map[string]string{
	lighting.TextureDirectionalShadowMap: "directional_shadow_map",
	lighting.TexturePunctualShadowMap:    "punctual_shadow_map",
	lighting.TextureCookieAtlas:          "cookie_atlas",
}

const (
	globalsVar       = "globals"
	shadowSamplerVar = "shadow_sampler"
	cookieSamplerVar = "cookie_sampler"
)

type lightingUploaderImpl struct {
	mu     *sync.Mutex
	logger *slog.Logger

	device *wgpu.Device
	queue  *wgpu.Queue
	shader shader.Shader

	reversedZ bool

	// providers own the resources and bind group of each group index.
	providers    map[int]bind_group_provider.BindGroupProvider
	textureDescs map[string]lighting.TextureDesc
}

// LightingUploader is the WebGPU implementation of lighting.Uploader. Buffers
// and textures are pooled by name and only recreated when their size changes,
// which the lighting pipeline avoids by always uploading at full capacity.
type LightingUploader interface {
	lighting.Uploader

	// Shader returns the parsed forward lighting declarations.
	Shader() shader.Shader

	// BindGroupLayout returns the layout of bind group 0 (lighting data) or
	// 1 (shadow and cookie atlases).
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout
	//   - error: an error if the layout could not be created
	BindGroupLayout(group int) (*wgpu.BindGroupLayout, error)

	// BindGroup returns the bind group for a group index, rebuilding it when a
	// resource behind it was recreated. Bindings that were never uploaded
	// are backed by zeroed buffers of their minimum size.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group
	//   - error: an error if a texture binding has not been declared
	BindGroup(group int) (*wgpu.BindGroup, error)

	// TextureView returns the view of a declared texture, such as the shadow
	// atlas the depth pass renders into.
	TextureView(name string) (*wgpu.TextureView, bool)

	// Release frees every GPU resource the uploader owns.
	Release()
}

var _ LightingUploader = &lightingUploaderImpl{}

// NewLightingUploader creates a LightingUploader on an existing device.
//
// Parameters:
//   - device: the WebGPU device resources are created on
//   - queue: the device queue writes are submitted to
//   - options: variadic list of LightingUploaderOption functions
//
// Returns:
//   - LightingUploader: the uploader
//   - error: an error if the lighting declarations cannot be parsed or samplers cannot be created
func NewLightingUploader(device *wgpu.Device, queue *wgpu.Queue, options ...LightingUploaderOption) (LightingUploader, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("renderer: lighting uploader needs a device and queue")
	}
	sh, err := shader.NewShader("Forward Lighting", ForwardLightingSource)
	if err != nil {
		return nil, err
	}
	u := &lightingUploaderImpl{
		mu:           &sync.Mutex{},
		logger:       common.NopLogger(),
		device:       device,
		queue:        queue,
		shader:       sh,
		textureDescs: make(map[string]lighting.TextureDesc),
		providers: map[int]bind_group_provider.BindGroupProvider{
			lightingGroup: bind_group_provider.NewBindGroupProvider("Forward Lighting Data"),
		},
	}
	for _, opt := range options {
		opt(u)
	}
	if err := u.createAtlasProvider(); err != nil {
		u.providers[lightingGroup].Release()
		return nil, err
	}
	return u, nil
}

// createAtlasProvider creates the atlas group provider with its shadow
// comparison and cookie samplers.
func (u *lightingUploaderImpl) createAtlasProvider() error {
	shadowBinding, ok := u.shader.BindGroupFromVarName(atlasGroup, shadowSamplerVar)
	if !ok {
		return fmt.Errorf("renderer: forward lighting does not declare %s", shadowSamplerVar)
	}
	cookieBinding, ok := u.shader.BindGroupFromVarName(atlasGroup, cookieSamplerVar)
	if !ok {
		return fmt.Errorf("renderer: forward lighting does not declare %s", cookieSamplerVar)
	}

	compare := wgpu.CompareFunctionLess
	if u.reversedZ {
		compare = wgpu.CompareFunctionGreater
	}
	shadowSampler, err := u.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Shadow Comparison Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		Compare:       compare,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("renderer: create shadow sampler: %w", err)
	}
	cookieSampler, err := u.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Light Cookie Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		shadowSampler.Release()
		return fmt.Errorf("renderer: create cookie sampler: %w", err)
	}
	u.providers[atlasGroup] = bind_group_provider.NewBindGroupProvider("Forward Lighting Atlases",
		bind_group_provider.WithSampler(shadowBinding, shadowSampler),
		bind_group_provider.WithSampler(cookieBinding, cookieSampler),
	)
	return nil
}

func (u *lightingUploaderImpl) Shader() shader.Shader {
	return u.shader
}

// buffer returns the pooled buffer bound to a WGSL variable of the lighting
// group, recreating it when the requested size differs. Caller must hold the mutex.
func (u *lightingUploaderImpl) buffer(label, varName string, size uint64) (int, error) {
	binding, ok := u.shader.BindGroupFromVarName(lightingGroup, varName)
	if !ok {
		return 0, fmt.Errorf("renderer: forward lighting does not declare %s", varName)
	}
	p := u.providers[lightingGroup]
	buf, current := p.Buffer(binding)
	if buf != nil && current == size {
		return binding, nil
	} else if buf != nil {
		u.logger.Debug("renderer: resizing lighting buffer", "buffer", label, "from", current, "to", size)
	}

	usage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	if varName == globalsVar {
		usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	}
	buf, err := u.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return 0, err
	}
	p.SetBuffer(binding, buf, size)
	return binding, nil
}

// write creates or resizes the buffer behind varName and writes data to it.
// Caller must hold the mutex.
func (u *lightingUploaderImpl) write(label, varName string, data []byte) error {
	binding, err := u.buffer(label, varName, uint64(len(data)))
	if err != nil {
		return fmt.Errorf("renderer: create %s: %w", label, err)
	}
	return bind_group_provider.BufferWrite{
		Provider: u.providers[lightingGroup],
		Binding:  binding,
		Data:     data,
	}.Apply(u.queue)
}

func (u *lightingUploaderImpl) UploadBuffer(desc lighting.BufferDesc, data []byte) error {
	if len(data) != desc.Size {
		return fmt.Errorf("renderer: %s: got %d bytes, want %d", desc.Name, len(data), desc.Size)
	}
	varName, ok := bufferVars[desc.Name]
	if !ok {
		return fmt.Errorf("renderer: unknown lighting buffer %q", desc.Name)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.write(desc.Name, varName, data)
}

func (u *lightingUploaderImpl) SetGlobals(g lighting.Globals) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.write("Lighting Globals Buffer", globalsVar, g.Marshal())
}

func textureFormat(f lighting.TextureFormat) (wgpu.TextureFormat, wgpu.TextureUsage) {
	if f == lighting.TextureFormatDepth32 {
		return wgpu.TextureFormatDepth32Float, wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	}
	return wgpu.TextureFormatRGBA8UnormSrgb, wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
}

// texture returns the pooled texture for desc, recreating it when its size or
// format changed. Caller must hold the mutex.
func (u *lightingUploaderImpl) texture(desc lighting.TextureDesc) (*wgpu.Texture, error) {
	varName, ok := textureVars[desc.Name]
	if !ok {
		return nil, fmt.Errorf("renderer: unknown lighting texture %q", desc.Name)
	}
	binding, ok := u.shader.BindGroupFromVarName(atlasGroup, varName)
	if !ok {
		return nil, fmt.Errorf("renderer: forward lighting does not declare %s", varName)
	}
	p := u.providers[atlasGroup]
	if current, ok := u.textureDescs[desc.Name]; ok && current == desc {
		return p.Texture(binding), nil
	}

	format, usage := textureFormat(desc.Format)
	tex, err := u.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Name,
		Size: wgpu.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create %s: %w", desc.Name, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("renderer: create %s view: %w", desc.Name, err)
	}
	p.SetTexture(binding, tex, view)
	u.textureDescs[desc.Name] = desc
	return tex, nil
}

func (u *lightingUploaderImpl) DeclareTexture(desc lighting.TextureDesc) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, err := u.texture(desc)
	return err
}

func (u *lightingUploaderImpl) UploadTexture(desc lighting.TextureDesc, img *image.RGBA, dirty []image.Rectangle) error {
	if desc.Format != lighting.TextureFormatRGBA8Srgb {
		return fmt.Errorf("renderer: %s is not an uploadable color texture", desc.Name)
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	tex, err := u.texture(desc)
	if err != nil {
		return err
	}
	for _, r := range dirty {
		staged := common.StageRegion(img, r)
		if staged.Width == 0 || staged.Height == 0 {
			continue
		}
		u.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{X: staged.OriginX, Y: staged.OriginY},
				Aspect:   wgpu.TextureAspectAll,
			},
			staged.Pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  staged.Width * 4,
				RowsPerImage: staged.Height,
			},
			&wgpu.Extent3D{
				Width:              staged.Width,
				Height:             staged.Height,
				DepthOrArrayLayers: 1,
			},
		)
	}
	return nil
}

func (u *lightingUploaderImpl) TextureView(name string) (*wgpu.TextureView, bool) {
	varName, ok := textureVars[name]
	if !ok {
		return nil, false
	}
	binding, ok := u.shader.BindGroupFromVarName(atlasGroup, varName)
	if !ok {
		return nil, false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	view := u.providers[atlasGroup].TextureView(binding)
	return view, view != nil
}

// provider returns the provider of a group with its layout created. Caller must hold the mutex.
func (u *lightingUploaderImpl) provider(group int) (bind_group_provider.BindGroupProvider, error) {
	p, ok := u.providers[group]
	if !ok {
		return nil, fmt.Errorf("renderer: forward lighting has no bind group %d", group)
	}
	if p.BindGroupLayout() != nil {
		return p, nil
	}
	desc := u.shader.BindGroupLayoutDescriptor(group)
	if len(desc.Entries) == 0 {
		return nil, fmt.Errorf("renderer: forward lighting has no bind group %d", group)
	}
	l, err := u.device.CreateBindGroupLayout(&desc)
	if err != nil {
		return nil, fmt.Errorf("renderer: create bind group layout %d: %w", group, err)
	}
	p.SetBindGroupLayout(l)
	return p, nil
}

func (u *lightingUploaderImpl) BindGroupLayout(group int) (*wgpu.BindGroupLayout, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	p, err := u.provider(group)
	if err != nil {
		return nil, err
	}
	return p.BindGroupLayout(), nil
}

func (u *lightingUploaderImpl) BindGroup(group int) (*wgpu.BindGroup, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	p, err := u.provider(group)
	if err != nil {
		return nil, err
	}
	if bg := p.BindGroup(); bg != nil {
		return bg, nil
	}

	desc := u.shader.BindGroupLayoutDescriptor(group)
	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, entry := range desc.Entries {
		binding := int(entry.Binding)
		varName := u.shader.BindGroupVarName(group, binding)
		switch {
		case entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			view := p.TextureView(binding)
			if view == nil {
				return nil, fmt.Errorf("renderer: texture %q has not been declared", varName)
			}
			entries[i] = wgpu.BindGroupEntry{Binding: entry.Binding, TextureView: view}
		case entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			s := p.Sampler(binding)
			if s == nil {
				return nil, fmt.Errorf("renderer: sampler %q has no resource", varName)
			}
			entries[i] = wgpu.BindGroupEntry{Binding: entry.Binding, Sampler: s}
		default:
			buf, _ := p.Buffer(binding)
			if buf == nil {
				// Placeholder until the first upload replaces it.
				if _, err := u.buffer(varName, varName, entry.Buffer.MinBindingSize); err != nil {
					return nil, err
				}
				buf, _ = p.Buffer(binding)
			}
			entries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
		}
	}

	bg, err := u.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   fmt.Sprintf("%s Bind Group", p.Label()),
		Layout:  p.BindGroupLayout(),
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create bind group %d: %w", group, err)
	}
	p.SetBindGroup(bg)
	return bg, nil
}

func (u *lightingUploaderImpl) Release() {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, p := range u.providers {
		p.Release()
	}
	clear(u.textureDescs)
}
