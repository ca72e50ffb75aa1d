package loader

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLB         = errors.New("invalid GLB container")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	baseDir  string
	document *gltfDocument
}

// gltfParser decodes a glTF/GLB document and resolves the binary data the
// light importer reads from it: caster positions and cookie images.
type gltfParser interface {
	// Parse loads a .gltf or .glb file. GLB is detected by extension or by
	// its magic number.
	//
	// Parameters:
	//   - path: path to the file; relative URIs resolve against its directory
	//
	// Returns:
	//   - error: error if the file cannot be read or decoded
	Parse(path string) error

	// ParseReader decodes a document from r. Relative URIs resolve against
	// the working directory.
	ParseReader(r io.Reader, isGLB bool) error

	// Document returns the decoded document, or nil before a successful parse.
	Document() *gltfDocument

	// ReadVec3Accessor decodes a VEC3 FLOAT accessor, honoring byte strides.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - [][3]float32: one entry per element
	//   - error: error if the accessor is out of range, sparse or of another type
	ReadVec3Accessor(accessorIndex int) ([][3]float32, error)

	// ReadImage returns the encoded bytes of an image from a data URI, a
	// file next to the document, or a buffer view.
	ReadImage(index int) ([]byte, error)
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a new glTF parser instance.
func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) Parse(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	p.baseDir = filepath.Dir(path)

	isGLB := strings.EqualFold(filepath.Ext(path), ".glb") ||
		len(data) >= 4 && binary.LittleEndian.Uint32(data) == gltfGLBMagic
	return p.decode(data, isGLB)
}

func (p *gltfParserImpl) ParseReader(r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	return p.decode(data, isGLB)
}

// decode unwraps a GLB container when needed, unmarshals the JSON and
// resolves every buffer.
func (p *gltfParserImpl) decode(data []byte, isGLB bool) error {
	var bin []byte
	if isGLB {
		var err error
		if data, bin, err = splitGLB(data); err != nil {
			return err
		}
	}

	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}

	for i := range doc.Buffers {
		buf := &doc.Buffers[i]
		switch {
		case buf.URI != "":
			b, err := p.readURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = b
		case i == 0 && bin != nil:
			buf.Data = bin
		default:
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		}
		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}

	p.document = &doc
	return nil
}

// splitGLB returns the JSON and BIN chunks of a GLB container. Unknown
// chunk types are skipped.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func splitGLB(data []byte) (jsonChunk, binChunk []byte, err error) {
	var header gltfGLBHeader
	n, err := binary.Decode(data, binary.LittleEndian, &header)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %d bytes", errInvalidGLB, len(data))
	}
	if header.Magic != gltfGLBMagic {
		return nil, nil, fmt.Errorf("%w: bad magic", errInvalidGLB)
	}
	if header.Version != gltfGLBVersion {
		return nil, nil, fmt.Errorf("%w: version %d", errInvalidGLB, header.Version)
	}

	rest := data[n:]
	for len(rest) > 0 {
		var chunk gltfGLBChunkHeader
		n, err := binary.Decode(rest, binary.LittleEndian, &chunk)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: truncated chunk header", errInvalidGLB)
		}
		rest = rest[n:]
		size := int(chunk.ChunkLength)
		if size > len(rest) {
			return nil, nil, fmt.Errorf("%w: chunk of %d bytes exceeds file", errInvalidGLB, size)
		}
		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			jsonChunk = rest[:size]
		case gltfGLBChunkBIN:
			binChunk = rest[:size]
		}
		rest = rest[size:]
	}

	if jsonChunk == nil {
		return nil, nil, fmt.Errorf("%w: missing JSON chunk", errInvalidGLB)
	}
	return jsonChunk, binChunk, nil
}

// readURI resolves a base64 data URI or a file relative to the document.
func (p *gltfParserImpl) readURI(uri string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(uri, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("unsupported data URI %q", header)
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(filepath.Join(p.baseDir, filepath.FromSlash(uri)))
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", uri, err)
	}
	return data, nil
}

// bufferView returns the bytes a buffer view covers, aliasing the buffer.
func (p *gltfParserImpl) bufferView(index int) (gltfBufferView, []byte, error) {
	doc := p.document
	if doc == nil {
		return gltfBufferView{}, nil, errors.New("no document loaded")
	}
	if index < 0 || index >= len(doc.BufferViews) {
		return gltfBufferView{}, nil, fmt.Errorf("buffer view index %d out of range", index)
	}
	bv := doc.BufferViews[index]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return bv, nil, fmt.Errorf("buffer view %d: buffer %d out of range", index, bv.Buffer)
	}
	data := doc.Buffers[bv.Buffer].Data
	if bv.ByteOffset < 0 || bv.ByteOffset+bv.ByteLength > len(data) {
		return bv, nil, fmt.Errorf("buffer view %d: %w", index, errBufferSizeMismatch)
	}
	return bv, data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], nil
}

func (p *gltfParserImpl) ReadVec3Accessor(accessorIndex int) ([][3]float32, error) {
	if p.document == nil || accessorIndex < 0 || accessorIndex >= len(p.document.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", accessorIndex)
	}
	acc := p.document.Accessors[accessorIndex]
	switch {
	case acc.Type != gltfAccessorTypeVec3 || acc.ComponentType != gltfComponentTypeFloat:
		return nil, fmt.Errorf("accessor %d is %s/%d, want VEC3 FLOAT", accessorIndex, acc.Type, acc.ComponentType)
	case acc.Sparse != nil:
		return nil, fmt.Errorf("accessor %d: sparse accessors are not supported", accessorIndex)
	case acc.BufferView == nil:
		return nil, fmt.Errorf("accessor %d has no bufferView", accessorIndex)
	}

	bv, view, err := p.bufferView(*acc.BufferView)
	if err != nil {
		return nil, fmt.Errorf("accessor %d: %w", accessorIndex, err)
	}

	const elemSize = 12
	stride := elemSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}
	if acc.Count > 0 && acc.ByteOffset+(acc.Count-1)*stride+elemSize > len(view) {
		return nil, fmt.Errorf("accessor %d: %w", accessorIndex, errBufferSizeMismatch)
	}

	out := make([][3]float32, acc.Count)
	for i := range out {
		at := view[acc.ByteOffset+i*stride:]
		for c := range 3 {
			out[i][c] = math.Float32frombits(binary.LittleEndian.Uint32(at[c*4:]))
		}
	}
	return out, nil
}

func (p *gltfParserImpl) ReadImage(index int) ([]byte, error) {
	if p.document == nil || index < 0 || index >= len(p.document.Images) {
		return nil, fmt.Errorf("image index %d out of range", index)
	}
	img := p.document.Images[index]
	switch {
	case img.URI != "":
		return p.readURI(img.URI)
	case img.BufferView != nil:
		_, data, err := p.bufferView(*img.BufferView)
		return data, err
	default:
		return nil, fmt.Errorf("image %d has neither uri nor bufferView", index)
	}
}
