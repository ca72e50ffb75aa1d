package loader

import "io"

// loaderBackend defines the generic interface for loading scenes from files or streams.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load performs a scene import from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *Scene: the imported lights and casters
	//   - error: error if loading fails
	Load(path string) (*Scene, error)

	// LoadReader imports a scene from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing scene data
	//   - isGLB: true if the reader provides GLB binary data, false for text-based formats
	//
	// Returns:
	//   - *Scene: the imported lights and casters
	//   - error: error if loading fails
	LoadReader(r io.Reader, isGLB bool) (*Scene, error)
}
