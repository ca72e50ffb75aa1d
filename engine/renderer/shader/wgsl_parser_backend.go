package shader

import (
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// Host-shareable layout rules for the types the lighting structs use.
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size

// scalarLayouts holds the 4-byte scalars plus f16.
var scalarLayouts = map[string]wgslTypeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"bool": {4, 4},
	"f16":  {2, 2},
}

// shorthandScalars maps the suffix of vec3f style aliases to their scalar.
var shorthandScalars = map[byte]string{'f': "f32", 'i': "i32", 'u': "u32", 'h': "f16"}

// vectorLayout returns the layout of a vector with n components of scalar s.
// vec3 aligns like vec4.
func vectorLayout(n int, s wgslTypeLayout) wgslTypeLayout {
	alignCount := n
	if n == 3 {
		alignCount = 4
	}
	return wgslTypeLayout{size: uint64(n) * s.size, align: uint64(alignCount) * s.size}
}

// parseVectorOrMatrix recognizes vecN<T>, vecNT, matCxR<T> and matCxRT.
// Matrices are stored as C column vectors of R rows.
func parseVectorOrMatrix(typeName string) (wgslTypeLayout, bool) {
	base, param := splitTypeParams(typeName)
	if param == "" && len(base) > 0 {
		if s, ok := shorthandScalars[base[len(base)-1]]; ok && (strings.HasPrefix(base, "vec") || strings.HasPrefix(base, "mat")) {
			base, param = base[:len(base)-1], s
		}
	}
	scalar, ok := scalarLayouts[param]
	if !ok || param == "bool" && strings.HasPrefix(base, "mat") {
		return wgslTypeLayout{}, false
	}

	switch {
	case len(base) == 4 && strings.HasPrefix(base, "vec"):
		n := int(base[3] - '0')
		if n < 2 || n > 4 {
			return wgslTypeLayout{}, false
		}
		return vectorLayout(n, scalar), true
	case len(base) == 6 && strings.HasPrefix(base, "mat") && base[4] == 'x':
		cols, rows := int(base[3]-'0'), int(base[5]-'0')
		if cols < 2 || cols > 4 || rows < 2 || rows > 4 {
			return wgslTypeLayout{}, false
		}
		col := vectorLayout(rows, scalar)
		return wgslTypeLayout{size: uint64(cols) * roundUpAlign(col.align, col.size), align: col.align}, true
	}
	return wgslTypeLayout{}, false
}

// roundUpAlign rounds value up to a multiple of the power-of-two alignment.
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// arrayParts splits array<T, N> into element type and count text. The count
// is empty for runtime-sized arrays.
func arrayParts(typeName string) (elem, count string, ok bool) {
	if !strings.HasPrefix(typeName, "array<") || !strings.HasSuffix(typeName, ">") {
		return "", "", false
	}
	parts := splitAtTopLevelCommas(typeName[len("array<") : len(typeName)-1])
	elem = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		count = strings.TrimSpace(parts[1])
	}
	return elem, count, true
}

// isRuntimeArray reports whether typeName is array<T> with no element count.
func isRuntimeArray(typeName string) bool {
	_, count, ok := arrayParts(typeName)
	return ok && count == ""
}

// resolveTypeLayout resolves a type against the primitives and the structs
// resolved so far. A runtime-sized array resolves to one element stride,
// which is what a binding needs at minimum.
//
// Parameters:
//   - typeName: e.g. "f32", "PunctualLight", "array<vec4<f32>, 4>"
//   - knownTypes: struct layouts resolved so far
//
// Returns:
//   - wgslTypeLayout: the resolved layout
//   - bool: false for unknown types
func resolveTypeLayout(typeName string, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if l, ok := scalarLayouts[typeName]; ok {
		return l, true
	}
	if l, ok := knownTypes[typeName]; ok {
		return l, true
	}
	if l, ok := parseVectorOrMatrix(typeName); ok {
		return l, true
	}

	elem, count, ok := arrayParts(typeName)
	if !ok {
		return wgslTypeLayout{}, false
	}
	el, ok := resolveTypeLayout(elem, knownTypes)
	if !ok {
		return wgslTypeLayout{}, false
	}
	stride := roundUpAlign(el.align, el.size)
	if count == "" {
		return wgslTypeLayout{stride, el.align}, true
	}
	n, err := strconv.ParseUint(strings.TrimSuffix(count, "u"), 10, 64)
	if err != nil || n == 0 {
		return wgslTypeLayout{}, false
	}
	return wgslTypeLayout{n * stride, el.align}, true
}

// computeStructLayout places each field at its next aligned offset and rounds
// the total up to the widest alignment. A trailing runtime-sized array ends
// the fixed-size prefix, which becomes the struct size. Builtin fields are
// not part of buffer layouts and are skipped.
func computeStructLayout(ps parsedStruct, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	var offset uint64
	maxAlign := uint64(1)

	for i, f := range ps.fields {
		if f.isBuiltin {
			continue
		}
		fl, ok := resolveTypeLayout(f.typeName, knownTypes)
		if !ok {
			return wgslTypeLayout{}, false
		}
		maxAlign = max(maxAlign, fl.align)

		if i == len(ps.fields)-1 && isRuntimeArray(f.typeName) {
			if offset == 0 {
				return fl, true
			}
			return wgslTypeLayout{roundUpAlign(maxAlign, offset), maxAlign}, true
		}
		offset = roundUpAlign(fl.align, offset) + fl.size
	}

	return wgslTypeLayout{roundUpAlign(maxAlign, offset), maxAlign}, true
}

// computeStructSizes resolves every struct, repeating passes until structs
// that embed other structs have their dependencies. Structs that never
// resolve are left out of the result.
func computeStructSizes(structs []parsedStruct) map[string]wgslTypeLayout {
	resolved := make(map[string]wgslTypeLayout, len(structs))
	pending := append([]parsedStruct(nil), structs...)

	for len(pending) > 0 {
		var unresolved []parsedStruct
		for _, ps := range pending {
			if l, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = l
			} else {
				unresolved = append(unresolved, ps)
			}
		}
		if len(unresolved) == len(pending) {
			break
		}
		pending = unresolved
	}
	return resolved
}

// textureViewDimensions maps texture base names, sampled and depth, to their
// view dimension.
var textureViewDimensions = map[string]wgpu.TextureViewDimension{
	"texture_2d":               wgpu.TextureViewDimension2D,
	"texture_2d_array":         wgpu.TextureViewDimension2DArray,
	"texture_cube":             wgpu.TextureViewDimensionCube,
	"texture_depth_2d":         wgpu.TextureViewDimension2D,
	"texture_depth_2d_array":   wgpu.TextureViewDimension2DArray,
	"texture_depth_cube":       wgpu.TextureViewDimensionCube,
	"texture_depth_cube_array": wgpu.TextureViewDimensionCubeArray,
}

// textureSampleTypes maps the texel type parameter of a sampled texture.
var textureSampleTypes = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

// classifyResource builds the layout entry for one resource declaration.
// Buffers are told apart by their address space; handle types (textures and
// samplers) by their type name.
//
// Parameters:
//   - binding: the @binding index
//   - visibility: the shader stages that see the resource
//   - addressSpace: e.g. "uniform", "storage, read"; empty for handle types
//   - typeName: e.g. "LightingGlobals", "texture_depth_2d", "sampler"
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the populated entry
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}

	switch space := strings.ReplaceAll(addressSpace, " ", ""); {
	case space == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		return entry
	case space == "storage,read_write":
		entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		return entry
	case strings.HasPrefix(space, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		return entry
	}

	base, param := splitTypeParams(typeName)
	switch {
	case base == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case base == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(base, "texture_"):
		entry.Texture.ViewDimension = textureViewDimensions[base]
		if strings.HasPrefix(base, "texture_depth_") {
			entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		} else {
			entry.Texture.SampleType = textureSampleTypes[param]
		}
	}
	return entry
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32"). Types
// without parameters return an empty params string.
func splitTypeParams(typeName string) (base, params string) {
	base, rest, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return base, strings.TrimSpace(strings.TrimSuffix(rest, ">"))
}

// stripComments blanks line comments and (nestable) block comments in one
// pass. Newlines are kept so later errors can still count lines.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))

	depth := 0
	inLine := false
	for i := 0; i < len(source); i++ {
		c := source[i]
		next := byte(0)
		if i+1 < len(source) {
			next = source[i+1]
		}

		switch {
		case c == '\n':
			inLine = false
			sb.WriteByte(c)
		case inLine:
		case c == '/' && next == '*':
			depth++
			i++
		case c == '*' && next == '/' && depth > 0:
			depth--
			i++
		case depth > 0:
		case c == '/' && next == '/':
			inLine = true
			i++
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// splitAtTopLevelCommas splits s on commas outside angle brackets, so
// array<vec4<f32>, 4> stays one part.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
		case r == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
