// gltf_types.go contains glTF 2.0 data structures for JSON deserialization.
// Only the parts of the schema needed to recover scene lights and caster bounds
// are kept; encoding/json ignores the rest.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package loader

// --- glTF Root Structure ---

// gltfDocument represents the root of a glTF JSON document.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-gltf
type gltfDocument struct {
	// Asset contains metadata about the glTF asset.
	Asset gltfAsset `json:"asset"`

	// Scene is the index of the default scene.
	Scene *int `json:"scene,omitempty"`

	// Scenes is an array of scenes.
	Scenes []gltfScene `json:"scenes,omitempty"`

	// Nodes is an array of nodes (transform hierarchy).
	Nodes []gltfNode `json:"nodes,omitempty"`

	// Meshes is an array of meshes.
	Meshes []gltfMesh `json:"meshes,omitempty"`

	// Accessors define how to interpret buffer data.
	Accessors []gltfAccessor `json:"accessors,omitempty"`

	// BufferViews define portions of buffers.
	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`

	// Buffers are raw binary data containers.
	Buffers []gltfBuffer `json:"buffers,omitempty"`

	// Images is an array of images, referenced by light cookies.
	Images []gltfImage `json:"images,omitempty"`

	// Extensions holds document-level extension data.
	Extensions gltfDocumentExtensions `json:"extensions,omitempty"`

	// ExtensionsUsed lists extensions used by this asset.
	ExtensionsUsed []string `json:"extensionsUsed,omitempty"`
}

// gltfDocumentExtensions holds the document-level extensions the loader reads.
type gltfDocumentExtensions struct {
	LightsPunctual *gltfLightsPunctual `json:"KHR_lights_punctual,omitempty"`
}

// --- Asset Metadata ---

// gltfAsset contains metadata about the glTF asset.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-asset
type gltfAsset struct {
	// Version is the glTF version (required, must be "2.0").
	Version string `json:"version"`

	// Generator is the tool that generated this asset.
	Generator string `json:"generator,omitempty"`
}

// --- Scene Graph ---

// gltfScene is a set of visual objects to render.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-scene
type gltfScene struct {
	// Name is an optional name for this scene.
	Name string `json:"name,omitempty"`

	// Nodes are the indices of root nodes in this scene.
	Nodes []int `json:"nodes,omitempty"`
}

// gltfNode is a node in the node hierarchy.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-node
type gltfNode struct {
	// Name is an optional name for this node.
	Name string `json:"name,omitempty"`

	// Children are indices of child nodes.
	Children []int `json:"children,omitempty"`

	// Mesh is the index of the mesh in this node.
	Mesh *int `json:"mesh,omitempty"`

	// Matrix is a 4x4 transformation matrix (column-major).
	Matrix *[16]float32 `json:"matrix,omitempty"`

	// Translation is the node's translation (x, y, z).
	Translation *[3]float32 `json:"translation,omitempty"`

	// Rotation is the node's rotation as a quaternion (x, y, z, w).
	Rotation *[4]float32 `json:"rotation,omitempty"`

	// Scale is the node's scale (x, y, z).
	Scale *[3]float32 `json:"scale,omitempty"`

	// Extensions holds node-level extension data.
	Extensions gltfNodeExtensions `json:"extensions,omitempty"`

	// Extras holds application data; the loader reads light shadow and cookie settings from it.
	Extras *gltfLightExtras `json:"extras,omitempty"`
}

// gltfNodeExtensions holds the node-level extensions the loader reads.
type gltfNodeExtensions struct {
	LightsPunctual *gltfNodeLight `json:"KHR_lights_punctual,omitempty"`
}

// --- Mesh Data ---

// gltfMesh is a set of primitives to be rendered.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-mesh
type gltfMesh struct {
	// Name is an optional name for this mesh.
	Name string `json:"name,omitempty"`

	// Primitives defines the geometry to render.
	Primitives []gltfPrimitive `json:"primitives"`
}

// gltfPrimitive is geometry to be rendered with a material.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-mesh-primitive
type gltfPrimitive struct {
	// Attributes maps attribute semantic names to accessor indices.
	Attributes map[string]int `json:"attributes"`
}

// gltfAttributePosition is the vertex position attribute semantic.
const gltfAttributePosition = "POSITION"

// --- Buffer Data ---

// gltfAccessor defines how to interpret buffer data.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-accessor
type gltfAccessor struct {
	// BufferView is the index of the bufferView.
	BufferView *int `json:"bufferView,omitempty"`

	// ByteOffset is the offset within the bufferView.
	ByteOffset int `json:"byteOffset,omitempty"`

	// ComponentType is the data type of components; positions use 5126 (FLOAT).
	ComponentType int `json:"componentType"`

	// Count is the number of elements.
	Count int `json:"count"`

	// Type is the element type (SCALAR, VEC2, VEC3, VEC4, MAT2, MAT3, MAT4).
	Type string `json:"type"`

	// Max is the maximum value of each component. Required for POSITION.
	Max []float32 `json:"max,omitempty"`

	// Min is the minimum value of each component. Required for POSITION.
	Min []float32 `json:"min,omitempty"`

	// Sparse defines sparse storage of accessor values. Only presence is checked.
	Sparse *struct{} `json:"sparse,omitempty"`
}

// Accessor component and element types the importer decodes.
const (
	gltfComponentTypeFloat = 5126
	gltfAccessorTypeVec3   = "VEC3"
)

// gltfBufferView represents a subset of a buffer.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-bufferview
type gltfBufferView struct {
	// Buffer is the index of the buffer.
	Buffer int `json:"buffer"`

	// ByteOffset is the offset into the buffer.
	ByteOffset int `json:"byteOffset,omitempty"`

	// ByteLength is the length of the bufferView.
	ByteLength int `json:"byteLength"`

	// ByteStride is the stride for interleaved data (optional).
	ByteStride *int `json:"byteStride,omitempty"`
}

// gltfBuffer represents binary data.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-buffer
type gltfBuffer struct {
	// URI is the URI of the buffer data (can be data: URI or external file).
	URI string `json:"uri,omitempty"`

	// ByteLength is the length of the buffer.
	ByteLength int `json:"byteLength"`

	// Data holds the loaded binary data (not part of JSON, populated during load).
	Data []byte `json:"-"`
}

// gltfImage is an image referenced by URI or by a buffer view.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-image
type gltfImage struct {
	// URI is a relative file path or data: URI.
	URI string `json:"uri,omitempty"`

	// BufferView holds the encoded image when URI is empty.
	BufferView *int `json:"bufferView,omitempty"`
}

// --- KHR_lights_punctual ---

// gltfLightsPunctual is the document-level light list of KHR_lights_punctual.
// Reference: https://github.com/KhronosGroup/glTF/tree/main/extensions/2.0/Khronos/KHR_lights_punctual
type gltfLightsPunctual struct {
	Lights []gltfLight `json:"lights"`
}

// gltfLight is one KHR_lights_punctual light. Lights shine along the node's local -Z.
type gltfLight struct {
	Name string `json:"name,omitempty"`

	// Type is "directional", "point" or "spot".
	Type string `json:"type"`

	// Color is linear RGB, default white.
	Color *[3]float32 `json:"color,omitempty"`

	// Intensity is lux for directional lights and candela otherwise, default 1.
	Intensity *float32 `json:"intensity,omitempty"`

	// Range is the cutoff distance; absent means infinite.
	Range *float32 `json:"range,omitempty"`

	Spot *gltfSpot `json:"spot,omitempty"`
}

// gltfSpot holds cone half-angles in radians.
type gltfSpot struct {
	InnerConeAngle float32  `json:"innerConeAngle,omitempty"`
	OuterConeAngle *float32 `json:"outerConeAngle,omitempty"`
}

// gltfNodeLight attaches a light to a node.
type gltfNodeLight struct {
	Light int `json:"light"`
}

// gltfLightExtras carries per-light settings glTF has no schema for.
type gltfLightExtras struct {
	CastShadows bool     `json:"castShadows,omitempty"`
	ShadowBias  *float32 `json:"shadowNormalBias,omitempty"`
	Cookie      *int     `json:"cookie,omitempty"`
	CookieSize  *float32 `json:"cookieSize,omitempty"`
}

// KHR_lights_punctual light types.
const (
	gltfLightTypeDirectional = "directional"
	gltfLightTypePoint       = "point"
	gltfLightTypeSpot        = "spot"
)

// --- GLB Binary Format ---

// gltfGLBHeader is the header of a GLB file (12 bytes).
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
type gltfGLBHeader struct {
	Magic   uint32 // Must be 0x46546C67 ("glTF" in ASCII)
	Version uint32 // Must be 2
	Length  uint32 // Total file length
}

// gltfGLBChunkHeader is the header of a GLB chunk (8 bytes).
type gltfGLBChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32 // 0x4E4F534A for JSON, 0x004E4942 for BIN
}

// GLB magic number and chunk type constants
const (
	gltfGLBMagic     = 0x46546C67 // "glTF" in little-endian ASCII
	gltfGLBVersion   = 2
	gltfGLBChunkJSON = 0x4E4F534A // "JSON" in little-endian ASCII
	gltfGLBChunkBIN  = 0x004E4942 // "BIN\0" in little-endian ASCII
)
