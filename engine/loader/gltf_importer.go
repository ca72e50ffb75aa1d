package loader

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfMinIlluminance is the illuminance below which a light without an
// explicit range is treated as contributing nothing. It sets the inverse
// square cutoff used to give such lights a finite range.
const gltfMinIlluminance = 0.01

// gltfDefaultOuterCone is the KHR_lights_punctual default outer cone half-angle.
const gltfDefaultOuterCone = math.Pi / 4

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	logger *slog.Logger
}

// gltfImporter walks a parsed glTF scene graph and collects the lights
// declared with KHR_lights_punctual together with the world bounds of every
// mesh node, which become shadow casters.
type gltfImporter interface {
	// Import loads a glTF/GLB file and extracts its lights and casters.
	//
	// Parameters:
	//   - path: the file path to the glTF or GLB file
	//
	// Returns:
	//   - *Scene: the imported scene
	//   - error: error if import fails
	Import(path string) (*Scene, error)

	// ImportReader loads a glTF document from a reader and extracts its lights
	// and casters. Relative URIs cannot be resolved from a reader, so buffers
	// and images must be embedded.
	//
	// Parameters:
	//   - r: the reader providing glTF/GLB data
	//   - isGLB: true if the reader provides GLB binary data, false for glTF JSON
	//
	// Returns:
	//   - *Scene: the imported scene
	//   - error: error if import fails
	ImportReader(r io.Reader, isGLB bool) (*Scene, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Parameters:
//   - logger: logger for skipped nodes and lights, nil for none
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter(logger *slog.Logger) gltfImporter {
	return &gltfImporterImpl{logger: common.LoggerOrNop(logger)}
}

func (imp *gltfImporterImpl) Import(path string) (*Scene, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return imp.importFromParser(parser, path)
}

func (imp *gltfImporterImpl) ImportReader(r io.Reader, isGLB bool) (*Scene, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse from reader: %w", err)
	}
	return imp.importFromParser(parser, "")
}

// importFromParser walks the default scene of a parsed document.
//
// Parameters:
//   - parser: the glTF parser that has already loaded a document
//   - fallbackPath: optional file path used as a fallback for scene naming
//
// Returns:
//   - *Scene: the imported scene
//   - error: error if a light or mesh cannot be read
func (imp *gltfImporterImpl) importFromParser(parser gltfParser, fallbackPath string) (*Scene, error) {
	doc := parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document after parsing")
	}

	w := &gltfSceneWalker{
		parser:  parser,
		doc:     doc,
		logger:  imp.logger,
		cookies: make(map[int]*light.Cookie),
		visited: make([]bool, len(doc.Nodes)),
		scene:   &Scene{Name: gltfExtractSceneName(doc, fallbackPath)},
	}
	for _, root := range gltfSceneRoots(doc) {
		if err := w.walk(root, mgl32.Ident4()); err != nil {
			return nil, err
		}
	}
	imp.logger.Debug("glTF scene imported",
		"name", w.scene.Name,
		"lights", len(w.scene.Lights),
		"casters", len(w.scene.Casters))
	return w.scene, nil
}

// gltfSceneWalker carries the state of one depth-first scene traversal.
type gltfSceneWalker struct {
	parser  gltfParser
	doc     *gltfDocument
	logger  *slog.Logger
	cookies map[int]*light.Cookie
	visited []bool
	scene   *Scene
}

// walk visits a node and its children, accumulating world transforms.
func (w *gltfSceneWalker) walk(index int, parent mgl32.Mat4) error {
	if index < 0 || index >= len(w.doc.Nodes) {
		return fmt.Errorf("node index %d out of range", index)
	}
	// glTF node graphs are strict trees; a revisit means a malformed cycle.
	if w.visited[index] {
		return fmt.Errorf("node %d is reachable more than once", index)
	}
	w.visited[index] = true

	node := &w.doc.Nodes[index]
	world := parent.Mul4(gltfNodeLocalMatrix(node))

	if node.Mesh != nil {
		b, ok, err := w.meshBounds(*node.Mesh, world)
		if err != nil {
			return fmt.Errorf("node %d: %w", index, err)
		}
		if ok {
			w.scene.Casters = append(w.scene.Casters, b)
		}
	}

	if node.Extensions.LightsPunctual != nil {
		l, ok, err := w.convertLight(node, world)
		if err != nil {
			return fmt.Errorf("node %d: %w", index, err)
		}
		if ok {
			w.scene.Lights = append(w.scene.Lights, l)
		}
	}

	for _, child := range node.Children {
		if err := w.walk(child, world); err != nil {
			return err
		}
	}
	return nil
}

// meshBounds returns the world AABB of every POSITION attribute of a mesh.
// Accessor min/max are used when present, otherwise positions are read.
func (w *gltfSceneWalker) meshBounds(meshIndex int, world mgl32.Mat4) (common.Bounds, bool, error) {
	if meshIndex < 0 || meshIndex >= len(w.doc.Meshes) {
		return common.Bounds{}, false, fmt.Errorf("mesh index %d out of range", meshIndex)
	}

	var lo, hi mgl32.Vec3
	found := false
	include := func(plo, phi mgl32.Vec3) {
		if !found {
			lo, hi, found = plo, phi, true
			return
		}
		for i := range 3 {
			lo[i] = min(lo[i], plo[i])
			hi[i] = max(hi[i], phi[i])
		}
	}

	for _, prim := range w.doc.Meshes[meshIndex].Primitives {
		accIndex, ok := prim.Attributes[gltfAttributePosition]
		if !ok {
			continue
		}
		if accIndex < 0 || accIndex >= len(w.doc.Accessors) {
			return common.Bounds{}, false, fmt.Errorf("position accessor %d out of range", accIndex)
		}
		acc := &w.doc.Accessors[accIndex]
		if len(acc.Min) == 3 && len(acc.Max) == 3 {
			include(mgl32.Vec3{acc.Min[0], acc.Min[1], acc.Min[2]}, mgl32.Vec3{acc.Max[0], acc.Max[1], acc.Max[2]})
			continue
		}
		positions, err := w.parser.ReadVec3Accessor(accIndex)
		if err != nil {
			return common.Bounds{}, false, fmt.Errorf("read positions: %w", err)
		}
		for _, p := range positions {
			v := mgl32.Vec3(p)
			include(v, v)
		}
	}
	if !found {
		return common.Bounds{}, false, nil
	}
	return gltfTransformBounds(lo, hi, world), true, nil
}

// convertLight builds a VisibleLight from the KHR_lights_punctual light a
// node references. Unknown light types are skipped with a warning.
func (w *gltfSceneWalker) convertLight(node *gltfNode, world mgl32.Mat4) (light.VisibleLight, bool, error) {
	ext := w.doc.Extensions.LightsPunctual
	ref := node.Extensions.LightsPunctual.Light
	if ext == nil || ref < 0 || ref >= len(ext.Lights) {
		return light.VisibleLight{}, false, fmt.Errorf("light index %d out of range", ref)
	}
	src := ext.Lights[ref]

	var kind light.Kind
	switch src.Type {
	case gltfLightTypeDirectional:
		kind = light.KindDirectional
	case gltfLightTypePoint:
		kind = light.KindPoint
	case gltfLightTypeSpot:
		kind = light.KindSpot
	default:
		w.logger.Warn("skipping light with unknown type", "node", node.Name, "type", src.Type)
		return light.VisibleLight{}, false, nil
	}

	intensity := float32(1)
	if src.Intensity != nil {
		intensity = *src.Intensity
	}
	// glTF lights shine down local -Z; VisibleLight shines down local +Z.
	opts := []light.VisibleLightOption{
		light.WithTransform(world.Mul4(mgl32.HomogRotate3DY(math.Pi))),
		light.WithIntensity(intensity),
	}
	if src.Color != nil {
		opts = append(opts, light.WithColor(src.Color[0], src.Color[1], src.Color[2]))
	}

	if kind.IsPunctual() {
		opts = append(opts, light.WithRange(gltfLightRange(src.Range, intensity)))
	}
	if kind == light.KindSpot {
		outer := float32(gltfDefaultOuterCone)
		var inner float32
		if src.Spot != nil {
			if src.Spot.OuterConeAngle != nil {
				outer = *src.Spot.OuterConeAngle
			}
			inner = min(src.Spot.InnerConeAngle, outer)
		}
		opts = append(opts, light.WithSpotCone(2*mgl32.RadToDeg(inner), 2*mgl32.RadToDeg(outer)))
	}

	if extras := node.Extras; extras != nil {
		if extras.CastShadows {
			normalBias := light.NewVisibleLight(kind).Shadow.NormalBias
			if extras.ShadowBias != nil {
				normalBias = *extras.ShadowBias
			}
			opts = append(opts, light.WithShadows(1, normalBias))
		}
		if extras.Cookie != nil {
			cookie, err := w.cookie(*extras.Cookie, kind, extras.CookieSize)
			if err != nil {
				return light.VisibleLight{}, false, err
			}
			if cookie != nil {
				opts = append(opts, light.WithCookie(cookie))
			}
		}
	}

	return light.NewVisibleLight(kind, opts...), true, nil
}

// cookie decodes the image at index into a 2D cookie, sharing one Cookie per
// image so the atlas caches it once. Point lights need cube cookies, which an
// image reference cannot express, so theirs are dropped.
func (w *gltfSceneWalker) cookie(imageIndex int, kind light.Kind, size *float32) (*light.Cookie, error) {
	if kind == light.KindPoint {
		w.logger.Warn("point light cookies require a cube map, ignoring", "image", imageIndex)
		return nil, nil
	}
	c, ok := w.cookies[imageIndex]
	if !ok {
		data, err := w.parser.ReadImage(imageIndex)
		if err != nil {
			return nil, fmt.Errorf("cookie image: %w", err)
		}
		img, err := common.DecodeImage(data, "")
		if err != nil {
			return nil, fmt.Errorf("cookie image %d: %w", imageIndex, err)
		}
		c = light.NewCookie2D(img, light.WrapClamp)
		w.cookies[imageIndex] = c
	}
	if kind == light.KindDirectional && size != nil && *size > 0 {
		c.Size2D = mgl32.Vec2{*size, *size}
	}
	return c, nil
}

// --- Helper Functions ---

// gltfNodeLocalMatrix returns a node's local transform, from its matrix or
// its translation, rotation and scale.
func gltfNodeLocalMatrix(node *gltfNode) mgl32.Mat4 {
	if node.Matrix != nil {
		return mgl32.Mat4(*node.Matrix)
	}
	m := mgl32.Ident4()
	if t := node.Translation; t != nil {
		m = mgl32.Translate3D(t[0], t[1], t[2])
	}
	if r := node.Rotation; r != nil {
		q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}.Normalize()
		m = m.Mul4(q.Mat4())
	}
	if s := node.Scale; s != nil {
		m = m.Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
	}
	return m
}

// gltfTransformBounds transforms the eight corners of a local box and returns
// the enclosing world-space box.
func gltfTransformBounds(lo, hi mgl32.Vec3, m mgl32.Mat4) common.Bounds {
	var wlo, whi mgl32.Vec3
	for i := range 8 {
		corner := mgl32.Vec3{lo[0], lo[1], lo[2]}
		if i&1 != 0 {
			corner[0] = hi[0]
		}
		if i&2 != 0 {
			corner[1] = hi[1]
		}
		if i&4 != 0 {
			corner[2] = hi[2]
		}
		p := m.Mul4x1(corner.Vec4(1)).Vec3()
		if i == 0 {
			wlo, whi = p, p
			continue
		}
		for a := range 3 {
			wlo[a] = min(wlo[a], p[a])
			whi[a] = max(whi[a], p[a])
		}
	}
	return common.BoundsFromMinMax(wlo, whi)
}

// gltfLightRange returns the explicit range, or the distance at which an
// inverse-square falloff of intensity drops below gltfMinIlluminance.
func gltfLightRange(r *float32, intensity float32) float32 {
	if r != nil && *r > 0 {
		return *r
	}
	return float32(math.Sqrt(float64(max(intensity, 0)) / gltfMinIlluminance))
}

// gltfSceneRoots returns the root nodes of the default scene. Documents
// without scenes treat every node that is nobody's child as a root.
func gltfSceneRoots(doc *gltfDocument) []int {
	if scene := gltfDefaultScene(doc); scene != nil {
		return scene.Nodes
	}
	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots
}

// gltfDefaultScene returns the scene named by the document's scene index,
// else the first scene, else nil.
func gltfDefaultScene(doc *gltfDocument) *gltfScene {
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		return &doc.Scenes[*doc.Scene]
	}
	if len(doc.Scenes) > 0 {
		return &doc.Scenes[0]
	}
	return nil
}

// gltfExtractSceneName derives a scene name from the walked scene or a file path fallback.
func gltfExtractSceneName(doc *gltfDocument, fallbackPath string) string {
	if scene := gltfDefaultScene(doc); scene != nil && scene.Name != "" {
		return scene.Name
	}
	if fallbackPath != "" {
		return fallbackPath
	}
	return "unnamed_scene"
}
