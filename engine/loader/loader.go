package loader

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
)

// LoaderBackendType identifies the scene file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// Scene is the lighting-relevant content of an imported scene file: the
// lights it declares and the world bounds of its meshes, which act as
// shadow casters.
type Scene struct {
	Name    string
	Lights  []light.VisibleLight
	Casters []common.Bounds
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	logger *slog.Logger

	sceneCache map[string]*Scene

	backend loaderBackend
}

// Loader defines the public-facing interface for loading and caching scenes.
// It abstracts the file format behind a generic backend and keeps a cache of
// previously loaded scenes. Cached scenes are shared; callers that mutate the
// light slice must copy it first.
type Loader interface {
	// Load imports a scene file and caches the result.
	// If the scene is already cached (by file path), the cached version is returned.
	// The backend is selected based on the file extension (.gltf/.glb → glTF backend).
	//
	// Parameters:
	//   - path: the file path to the scene file
	//
	// Returns:
	//   - *Scene: the loaded and cached scene
	//   - error: error if loading fails
	Load(path string) (*Scene, error)

	// LoadReader imports a scene from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded scene
	//   - r: the reader providing scene data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *Scene: the loaded scene
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (*Scene, error)

	// Get retrieves a cached scene by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *Scene: the cached scene or nil
	Get(name string) *Scene

	// Scenes returns a copy of the scene cache.
	//
	// Returns:
	//   - map[string]*Scene: all cached scenes keyed by name
	Scenes() map[string]*Scene
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		sceneCache: make(map[string]*Scene),
	}
	for _, option := range options {
		option(l)
	}
	l.logger = common.LoggerOrNop(l.logger)

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend(l.logger)
	}
	return l
}

func (l *loader) Load(path string) (*Scene, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	scene, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return l.store(path, scene), nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (*Scene, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}
	if l.backend == nil {
		return nil, fmt.Errorf("loader: no backend configured")
	}

	scene, err := l.backend.LoadReader(r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	return l.store(name, scene), nil
}

func (l *loader) Get(name string) *Scene {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sceneCache[name]
}

func (l *loader) Scenes() map[string]*Scene {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*Scene, len(l.sceneCache))
	for k, v := range l.sceneCache {
		result[k] = v
	}
	return result
}

// store caches scene under key unless a concurrent load got there first, in
// which case the earlier scene wins so every caller sees the same pointer.
func (l *loader) store(key string, scene *Scene) *Scene {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.sceneCache[key]; ok {
		return existing
	}
	l.sceneCache[key] = scene
	l.logger.Info("scene loaded", "key", key, "lights", len(scene.Lights), "casters", len(scene.Casters))
	return scene
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only glTF/GLB is supported.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		if l.backend == nil {
			return nil, fmt.Errorf("loader: no backend configured")
		}
		return l.backend, nil
	default:
		return nil, fmt.Errorf("unsupported scene format: %s", ext)
	}
}
