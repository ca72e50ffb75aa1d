package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// boxPositions is two VEC3 positions spanning (-1,-1,-1)..(1,0.5,1).
var boxPositions = common.SliceToBytes([]float32{-1, -1, -1, 1, 0.5, 1})

func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

// courtyard holds a sun, a shadowed spot with a cookie under a translated
// root, a scaled box, a light of unknown type and a node outside the scene.
func courtyard(t *testing.T, bufferURI string) string {
	return fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"name": "Courtyard", "nodes": [0, 3, 5]}],
  "nodes": [
    {"name": "root", "translation": [0, 2, 0], "children": [1, 2]},
    {"name": "sun", "rotation": [-0.70710678, 0, 0, 0.70710678],
     "extensions": {"KHR_lights_punctual": {"light": 0}},
     "extras": {"castShadows": true}},
    {"name": "lamp", "translation": [1, 0, 0],
     "extensions": {"KHR_lights_punctual": {"light": 1}},
     "extras": {"castShadows": true, "shadowNormalBias": 0.2, "cookie": 0}},
    {"name": "box", "mesh": 0, "scale": [2, 2, 2]},
    {"name": "orphan", "extensions": {"KHR_lights_punctual": {"light": 2}}},
    {"name": "panel", "extensions": {"KHR_lights_punctual": {"light": 3}}}
  ],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 2, "type": "VEC3"}],
  "bufferViews": [{"buffer": 0, "byteLength": 24}],
  "buffers": [{"uri": %q, "byteLength": 24}],
  "images": [{"uri": %q}],
  "extensions": {"KHR_lights_punctual": {"lights": [
    {"type": "directional", "intensity": 3},
    {"type": "spot", "color": [1, 0.5, 0], "range": 5,
     "spot": {"innerConeAngle": 0.39269908, "outerConeAngle": 0.78539816}},
    {"type": "point", "intensity": 4},
    {"type": "area"}
  ]}}
}`, bufferURI, dataURI("image/png", pngBytes(t, 2, 2)))
}

func assertVec3(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d of %v", i, got)
	}
}

func TestLoadReaderImportsLightsAndCasters(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)
	scene, err := l.LoadReader("courtyard", strings.NewReader(courtyard(t, dataURI("application/octet-stream", boxPositions))), false)
	require.NoError(t, err)

	assert.Equal(t, "Courtyard", scene.Name)
	require.Len(t, scene.Lights, 2)

	sun := scene.Lights[0]
	assert.Equal(t, light.KindDirectional, sun.Kind)
	assertVec3(t, mgl32.Vec3{0, 2, 0}, sun.Position())
	assertVec3(t, mgl32.Vec3{0, -1, 0}, sun.Forward())
	assertVec3(t, mgl32.Vec3{3, 3, 3}, sun.FinalColor)
	assert.True(t, sun.Shadow.Enabled)
	assert.Equal(t, light.NewVisibleLight(light.KindDirectional).Shadow.NormalBias, sun.Shadow.NormalBias)
	assert.Nil(t, sun.Cookie)

	spot := scene.Lights[1]
	assert.Equal(t, light.KindSpot, spot.Kind)
	assertVec3(t, mgl32.Vec3{1, 2, 0}, spot.Position())
	assertVec3(t, mgl32.Vec3{0, 0, -1}, spot.Forward())
	assertVec3(t, mgl32.Vec3{1, 0.5, 0}, spot.FinalColor)
	assert.Equal(t, float32(5), spot.Range)
	assert.InDelta(t, 90, spot.SpotAngle, 1e-3)
	assert.InDelta(t, 45, spot.InnerSpotAngle, 1e-3)
	assert.Equal(t, float32(0.2), spot.Shadow.NormalBias)
	require.NotNil(t, spot.Cookie)
	assert.Equal(t, 2, spot.Cookie.Width())

	require.Len(t, scene.Casters, 1)
	assertVec3(t, mgl32.Vec3{-2, -2, -2}, scene.Casters[0].Min())
	assertVec3(t, mgl32.Vec3{2, 1, 2}, scene.Casters[0].Max())
}

func TestImportWithoutScenes(t *testing.T) {
	doc := `{
  "asset": {"version": "2.0"},
  "nodes": [
    {"children": [1], "translation": [0, 0, 3],
     "extensions": {"KHR_lights_punctual": {"light": 0}},
     "extras": {"cookie": 0}},
    {"matrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 5,0,0,1],
     "extensions": {"KHR_lights_punctual": {"light": 1}}}
  ],
  "extensions": {"KHR_lights_punctual": {"lights": [
    {"type": "point", "intensity": 4},
    {"type": "spot"}
  ]}}
}`
	scene, err := NewLoader(BackendTypeGLTF).LoadReader("bare", strings.NewReader(doc), false)
	require.NoError(t, err)
	assert.Equal(t, "unnamed_scene", scene.Name)
	require.Len(t, scene.Lights, 2)

	point := scene.Lights[0]
	assert.InDelta(t, 20, point.Range, 1e-4)
	// Point lights cannot use a 2D image cookie.
	assert.Nil(t, point.Cookie)

	spot := scene.Lights[1]
	assertVec3(t, mgl32.Vec3{5, 0, 3}, spot.Position())
	assert.InDelta(t, 90, spot.SpotAngle, 1e-3)
	assert.Equal(t, float32(0), spot.InnerSpotAngle)
	assert.InDelta(t, 10, spot.Range, 1e-4)
}

func TestImportRejectsMalformedDocuments(t *testing.T) {
	cases := map[string]string{
		"version": `{"asset": {"version": "1.0"}}`,
		"cycle": `{"asset": {"version": "2.0"}, "scenes": [{"nodes": [0]}],
		  "nodes": [{"children": [1]}, {"children": [0]}]}`,
		"node range": `{"asset": {"version": "2.0"}, "scenes": [{"nodes": [4]}]}`,
		"light range": `{"asset": {"version": "2.0"}, "scenes": [{"nodes": [0]}],
		  "nodes": [{"extensions": {"KHR_lights_punctual": {"light": 2}}}]}`,
		"buffer size": fmt.Sprintf(`{"asset": {"version": "2.0"},
		  "buffers": [{"uri": %q, "byteLength": 48}]}`, dataURI("application/octet-stream", boxPositions)),
		"accessor": fmt.Sprintf(`{"asset": {"version": "2.0"}, "scenes": [{"nodes": [0]}],
		  "nodes": [{"mesh": 0}],
		  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
		  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 4, "type": "VEC3"}],
		  "bufferViews": [{"buffer": 0, "byteLength": 24}],
		  "buffers": [{"uri": %q, "byteLength": 24}]}`, dataURI("application/octet-stream", boxPositions)),
		"cookie image": `{"asset": {"version": "2.0"}, "scenes": [{"nodes": [0]}],
		  "nodes": [{"extensions": {"KHR_lights_punctual": {"light": 0}}, "extras": {"cookie": 3}}],
		  "extensions": {"KHR_lights_punctual": {"lights": [{"type": "spot"}]}}}`,
		"json": `{"asset":`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoader(BackendTypeGLTF).LoadReader(name, strings.NewReader(doc), false)
			assert.Error(t, err)
		})
	}
}

func glb(t *testing.T, doc string, bin []byte) []byte {
	t.Helper()
	pad := func(b []byte, with byte) []byte {
		for len(b)%4 != 0 {
			b = append(b, with)
		}
		return b
	}
	jsonChunk := pad([]byte(doc), ' ')
	binChunk := pad(append([]byte(nil), bin...), 0)

	var buf bytes.Buffer
	write := func(v any) { require.NoError(t, binary.Write(&buf, binary.LittleEndian, v)) }
	write(gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: uint32(12 + 8 + len(jsonChunk) + 8 + len(binChunk))})
	write(gltfGLBChunkHeader{ChunkLength: uint32(len(jsonChunk)), ChunkType: gltfGLBChunkJSON})
	buf.Write(jsonChunk)
	write(gltfGLBChunkHeader{ChunkLength: uint32(len(binChunk)), ChunkType: gltfGLBChunkBIN})
	buf.Write(binChunk)
	return buf.Bytes()
}

func TestLoadReaderGLB(t *testing.T) {
	img := pngBytes(t, 4, 2)
	bin := append(append([]byte(nil), boxPositions...), img...)
	doc := fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "scenes": [{"name": "Packed", "nodes": [0, 1]}],
  "nodes": [
    {"mesh": 0},
    {"extensions": {"KHR_lights_punctual": {"light": 0}}, "extras": {"cookie": 0, "cookieSize": 8}}
  ],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 2, "type": "VEC3",
    "min": [-3, -3, -3], "max": [3, 3, 3]}],
  "bufferViews": [{"buffer": 0, "byteLength": 24}, {"buffer": 0, "byteOffset": 24, "byteLength": %d}],
  "buffers": [{"byteLength": %d}],
  "images": [{"bufferView": 1, "mimeType": "image/png"}],
  "extensions": {"KHR_lights_punctual": {"lights": [{"type": "directional"}]}}
}`, len(img), len(bin))

	scene, err := NewLoader(BackendTypeGLTF).LoadReader("packed", bytes.NewReader(glb(t, doc, bin)), true)
	require.NoError(t, err)
	assert.Equal(t, "Packed", scene.Name)

	// Accessor min/max win over the buffer contents.
	require.Len(t, scene.Casters, 1)
	assertVec3(t, mgl32.Vec3{-3, -3, -3}, scene.Casters[0].Min())

	require.Len(t, scene.Lights, 1)
	c := scene.Lights[0].Cookie
	require.NotNil(t, c)
	assert.Equal(t, 4, c.Width())
	assert.Equal(t, 2, c.Height())
	assert.Equal(t, mgl32.Vec2{8, 8}, c.Size2D)

	_, err = NewLoader(BackendTypeGLTF).LoadReader("bad", bytes.NewReader([]byte("glTF but not really")), true)
	assert.Error(t, err)
}

func TestLoadFileAndCache(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "box.bin"), boxPositions, 0o644))
	path := filepath.Join(dir, "courtyard.gltf")
	require.NoError(t, os.WriteFile(path, []byte(courtyard(t, "box.bin")), 0o644))

	preset := &Scene{Name: "preset"}
	l := NewLoader(BackendTypeGLTF, WithScene("preset", preset), WithLogger(nil))
	assert.Same(t, preset, l.Get("preset"))

	first, err := l.Load(path)
	require.NoError(t, err)
	require.Len(t, first.Casters, 1)
	assertVec3(t, mgl32.Vec3{2, 1, 2}, first.Casters[0].Max())

	// Cached scenes are returned without reading the file again.
	require.NoError(t, os.Remove(path))
	second, err := l.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)

	cached, err := l.LoadReader("preset", strings.NewReader("not json"), false)
	require.NoError(t, err)
	assert.Same(t, preset, cached)

	assert.Len(t, l.Scenes(), 2)
	assert.Nil(t, l.Get("missing"))

	_, err = l.Load(filepath.Join(dir, "scene.obj"))
	assert.Error(t, err)
	_, err = l.Load(filepath.Join(dir, "missing.glb"))
	assert.Error(t, err)
}

func TestSceneNameFollowsWalkedScene(t *testing.T) {
	idx := func(i int) *int { return &i }
	scenes := []gltfScene{{Name: "First", Nodes: []int{0}}, {Name: "Second", Nodes: []int{1}}}

	cases := []struct {
		name  string
		doc   gltfDocument
		want  string
		roots []int
	}{
		{"default index", gltfDocument{Scene: idx(1), Scenes: scenes}, "Second", []int{1}},
		{"no index uses first", gltfDocument{Scenes: scenes}, "First", []int{0}},
		{"bad index uses first", gltfDocument{Scene: idx(7), Scenes: scenes}, "First", []int{0}},
		{"no scenes", gltfDocument{Nodes: []gltfNode{{}}}, "lamp.gltf", []int{0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, gltfExtractSceneName(&tc.doc, "lamp.gltf"))
			assert.Equal(t, tc.roots, gltfSceneRoots(&tc.doc))
		})
	}
}
