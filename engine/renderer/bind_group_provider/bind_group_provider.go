package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// providerBuffer is a GPU buffer together with the size it was created at.
type providerBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
}

// providerTexture is a GPU texture and the view bound to the shader.
type providerTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// bindGroup is the GPU bind group built from the current resources, or nil
	// when it has not been built yet or a resource behind it was replaced.
	bindGroup *wgpu.BindGroup
	// bindGroupLayout is the GPU bind group layout created from the shader's descriptor.
	bindGroupLayout *wgpu.BindGroupLayout
	// buffers holds the GPU buffers of this group, keyed by binding index.
	buffers map[int]providerBuffer
	// textures holds the GPU textures of this group, keyed by binding index.
	textures map[int]providerTexture
	// samplers holds the GPU samplers of this group, keyed by binding index.
	samplers map[int]*wgpu.Sampler
}

// BindGroupProvider owns the GPU resources of one bind group and the bind
// group built from them. Every resource set on a provider is owned by it and
// released when replaced or when the provider is released. Replacing any
// resource drops the bind group so the next build sees the new resource.
//
// Usage pattern:
//  1. The owner creates a provider per bind group index
//  2. Buffers, textures and samplers are set as they are created or resized
//  3. The owner rebuilds the bind group whenever BindGroup() returns nil
//  4. Release() frees everything at shutdown
type BindGroupProvider interface {
	// Release releases every GPU resource held by this provider.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the current bind group, or nil if it must be rebuilt.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the bind group layout for this provider, or nil
	// if it has not been created.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer at a binding and the size it was created at.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	//   - uint64: the buffer size in bytes, 0 if unset
	Buffer(binding int) (*wgpu.Buffer, uint64)

	// Texture returns the texture at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Texture: the texture or nil
	Texture(binding int) *wgpu.Texture

	// TextureView returns the texture view at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the sampler at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// SetBindGroup stores a freshly built bind group, releasing any previous one.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout stores the bind group layout, releasing any previous one.
	//
	// Parameters:
	//   - bgl: the created bind group layout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer stores a buffer at a binding, releasing the buffer it replaces.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	//   - size: the buffer size in bytes
	SetBuffer(binding int, buf *wgpu.Buffer, size uint64)

	// SetTexture stores a texture and its view at a binding, releasing the
	// pair it replaces.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tex: the created texture
	//   - view: the view bound to the shader
	SetTexture(binding int, tex *wgpu.Texture, view *wgpu.TextureView)

	// SetSampler stores a sampler at a binding, releasing the sampler it replaces.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler to store
	SetSampler(binding int, s *wgpu.Sampler)

	// Invalidate releases the bind group so it is rebuilt on next use.
	Invalidate()
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: a debug label for the provider
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:    label,
		buffers:  make(map[int]providerBuffer),
		textures: make(map[int]providerTexture),
		samplers: make(map[int]*wgpu.Sampler),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) (*wgpu.Buffer, uint64) {
	b, ok := p.buffers[binding]
	if !ok {
		return nil, 0
	}
	return b.buffer, b.size
}

func (p *bindGroupProvider) Texture(binding int) *wgpu.Texture {
	return p.textures[binding].texture
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textures[binding].view
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.Invalidate()
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	if p.bindGroupLayout != nil && p.bindGroupLayout != bgl {
		p.Invalidate()
		p.bindGroupLayout.Release()
	}
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer, size uint64) {
	if old, ok := p.buffers[binding]; ok && old.buffer != buf {
		old.buffer.Release()
	}
	p.buffers[binding] = providerBuffer{buffer: buf, size: size}
	p.Invalidate()
}

func (p *bindGroupProvider) SetTexture(binding int, tex *wgpu.Texture, view *wgpu.TextureView) {
	if old, ok := p.textures[binding]; ok && old.texture != tex {
		old.view.Release()
		old.texture.Release()
	}
	p.textures[binding] = providerTexture{texture: tex, view: view}
	p.Invalidate()
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	if old, ok := p.samplers[binding]; ok && old != nil && old != s {
		old.Release()
	}
	p.samplers[binding] = s
	p.Invalidate()
}

func (p *bindGroupProvider) Invalidate() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
}

func (p *bindGroupProvider) Release() {
	p.Invalidate()
	for i, t := range p.textures {
		t.view.Release()
		t.texture.Release()
		delete(p.textures, i)
	}
	for i, s := range p.samplers {
		if s != nil {
			s.Release()
		}
		delete(p.samplers, i)
	}
	for i, b := range p.buffers {
		b.buffer.Release()
		delete(p.buffers, i)
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
}
