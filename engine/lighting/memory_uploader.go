package lighting

import (
	"fmt"
	"image"
	"sync"
)

// MemoryUploader keeps every upload in host memory. It backs headless runs
// and tests.
type MemoryUploader struct {
	mu       sync.Mutex
	buffers  map[string][]byte
	textures map[string]*image.RGBA
	declared map[string]TextureDesc
	globals  Globals
	uploads  int
}

var _ Uploader = &MemoryUploader{}

// NewMemoryUploader creates an empty MemoryUploader.
func NewMemoryUploader() *MemoryUploader {
	return &MemoryUploader{
		buffers:  make(map[string][]byte),
		textures: make(map[string]*image.RGBA),
		declared: make(map[string]TextureDesc),
	}
}

func (m *MemoryUploader) UploadBuffer(desc BufferDesc, data []byte) error {
	if len(data) != desc.Size {
		return fmt.Errorf("lighting: buffer %q: got %d bytes, want %d", desc.Name, len(data), desc.Size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffers[desc.Name] = append(m.buffers[desc.Name][:0], data...)
	m.uploads++
	return nil
}

func (m *MemoryUploader) UploadTexture(desc TextureDesc, img *image.RGBA, dirty []image.Rectangle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dst, ok := m.textures[desc.Name]
	if !ok || dst.Bounds().Dx() != desc.Width || dst.Bounds().Dy() != desc.Height {
		dst = image.NewRGBA(image.Rect(0, 0, desc.Width, desc.Height))
		m.textures[desc.Name] = dst
	}
	for _, r := range dirty {
		r = r.Intersect(img.Bounds()).Intersect(dst.Bounds())
		for y := r.Min.Y; y < r.Max.Y; y++ {
			src := img.PixOffset(r.Min.X, y)
			to := dst.PixOffset(r.Min.X, y)
			copy(dst.Pix[to:to+r.Dx()*4], img.Pix[src:src+r.Dx()*4])
		}
	}
	m.uploads++
	return nil
}

func (m *MemoryUploader) DeclareTexture(desc TextureDesc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.declared[desc.Name] = desc
	return nil
}

func (m *MemoryUploader) SetGlobals(g Globals) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.globals = g
	return nil
}

// Buffer returns a copy of the last data uploaded to the named buffer.
func (m *MemoryUploader) Buffer(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buffers[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}

// Texture returns the named texture as last uploaded.
func (m *MemoryUploader) Texture(name string) (*image.RGBA, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.textures[name]
	return t, ok
}

// Declared returns the descriptor of a declared texture.
func (m *MemoryUploader) Declared(name string) (TextureDesc, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.declared[name]
	return d, ok
}

// Globals returns the last published globals.
func (m *MemoryUploader) Globals() Globals {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.globals
}

// Uploads returns the number of buffer and texture uploads so far.
func (m *MemoryUploader) Uploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploads
}
