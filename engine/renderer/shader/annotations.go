// annotations.go defines the annotation types, argument constants, and parser for the
// Oxy WGSL shader pre-processor. Annotations are single-line WGSL comments prefixed
// with @oxy: that drive struct injection, bind group declaration, and resource
// provider registration for the forward lighting shaders.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct definition
	// into the shader at the annotation site.
	//
	// Syntax: //@oxy:include <struct_type>
	//
	// Example: //@oxy:include punctual_light
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration
	// and appends an Annotation to the PreProcessor's declarations list.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 2 storage_read punctual_lights array<punctual_light>
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider registers a resource provider identity for a group and binding
	// without generating any WGSL output. The WGSL declaration (a texture or sampler)
	// stays hand-written directly below the annotation.
	//
	// Syntax:
	//   //@oxy:provider <group> <binding> <provider_identity>
	//   //@oxy:provider <group> <binding> <provider_identity> <binding_role>
	//
	// Example: //@oxy:provider 1 0 shadow_atlas directional_shadow_map
	AnnotationTypeProvider AnnotationType = "provider"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed (include, group, or provider).
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:  [0] = struct type key
	//   - group:    [0] = address space, [1] = var name, [2] = WGSL type key
	//   - provider: [0] = provider identity, [1] = binding role (optional)
	Args []AnnotationArg

	// Line is the 1-based source line, used for error reporting.
	Line int

	// Group is the @group index for group and provider annotations. Nil for include annotations.
	Group *int

	// Binding is the @binding index for group and provider annotations. Nil for include annotations.
	Binding *int
}

// AnnotationArg is a typed string constant used as an argument in annotations.
type AnnotationArg string

// Struct type arguments. Each maps to a Go GPU type with an embedded .wgsl asset.
const (
	// AnnotationArgDirectionalLight identifies the DirectionalLight struct.
	// Source: engine/light/assets/directional_light.wgsl
	AnnotationArgDirectionalLight AnnotationArg = "directional_light"

	// AnnotationArgPunctualLight identifies the PunctualLight struct.
	// Source: engine/light/assets/punctual_light.wgsl
	AnnotationArgPunctualLight AnnotationArg = "punctual_light"

	// AnnotationArgTileSettings identifies the Forward+ TileSettings struct.
	// Source: engine/light/assets/tile_settings.wgsl
	AnnotationArgTileSettings AnnotationArg = "tile_settings"

	// AnnotationArgShadowTile identifies the ShadowTile struct of either shadow atlas.
	// Source: engine/shadow/assets/shadow_tile.wgsl
	AnnotationArgShadowTile AnnotationArg = "shadow_tile"

	// AnnotationArgCascadeData identifies the CascadeData struct.
	// Source: engine/shadow/assets/cascade_data.wgsl
	AnnotationArgCascadeData AnnotationArg = "cascade_data"

	// AnnotationArgLightCookie identifies the LightCookie struct.
	// Source: engine/cookie/assets/light_cookie.wgsl
	AnnotationArgLightCookie AnnotationArg = "light_cookie"

	// AnnotationArgLightingGlobals identifies the LightingGlobals uniform.
	// Source: engine/lighting/assets/lighting_globals.wgsl
	AnnotationArgLightingGlobals AnnotationArg = "lighting_globals"

	// annotationArgTileIndex identifies the flat i32 Forward+ tile list.
	annotationArgTileIndex AnnotationArg = "i32"
)

// Address space arguments, mapped to WGSL var<> declarations.
const (
	annotationArgStorageTypeUniform   AnnotationArg = "storage_uniform"
	annotationArgStorageTypeRead      AnnotationArg = "storage_read"
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

// Provider identity arguments. These name who owns a texture or sampler binding.
const (
	// AnnotationArgShadowAtlas identifies the shadow atlas provider (depth maps and comparison sampler).
	AnnotationArgShadowAtlas AnnotationArg = "shadow_atlas"

	// AnnotationArgCookieAtlas identifies the cookie atlas provider (atlas texture and sampler).
	AnnotationArgCookieAtlas AnnotationArg = "cookie_atlas"
)

// Binding role arguments qualifying individual provider bindings.
const (
	AnnotationArgDirectionalShadowMap AnnotationArg = "directional_shadow_map"
	AnnotationArgPunctualShadowMap    AnnotationArg = "punctual_shadow_map"
	AnnotationArgShadowSampler        AnnotationArg = "shadow_sampler"
	AnnotationArgCookieTexture        AnnotationArg = "cookie_texture"
	AnnotationArgCookieSampler        AnnotationArg = "cookie_sampler"
)

// validStructTypes lists every struct type accepted by include and group
// annotations. Each entry has a registryEntry in the PreProcessor.
var validStructTypes = []AnnotationArg{
	AnnotationArgDirectionalLight,
	AnnotationArgPunctualLight,
	AnnotationArgTileSettings,
	AnnotationArgShadowTile,
	AnnotationArgCascadeData,
	AnnotationArgLightCookie,
	AnnotationArgLightingGlobals,
	annotationArgTileIndex,
}

var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
	annotationArgStorageTypeReadWrite,
}

var validProviderIdentities = []AnnotationArg{
	AnnotationArgShadowAtlas,
	AnnotationArgCookieAtlas,
}

var validBindingRoles = []AnnotationArg{
	AnnotationArgDirectionalShadowMap,
	AnnotationArgPunctualShadowMap,
	AnnotationArgShadowSampler,
	AnnotationArgCookieTexture,
	AnnotationArgCookieSampler,
}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch args[0] {
	case string(annotationTypeInclude):
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case string(AnnotationTypeBindingGroup):
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires exactly five arguments (group, binding, address space, var name, type)", lineNum)
		}
		group, binding, err := parseSlot(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		typeArg := args[5]
		if inner, ok := strings.CutPrefix(typeArg, "array<"); ok {
			typeArg = strings.TrimSuffix(inner, ">")
		}
		if !slices.Contains(validStructTypes, AnnotationArg(typeArg)) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy group annotation", lineNum, typeArg)
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	case string(AnnotationTypeProvider):
		if len(args) < 4 || len(args) > 5 {
			return nil, fmt.Errorf("line %d: @oxy provider annotation requires three or four arguments (group, binding, provider identity[, binding role])", lineNum)
		}
		group, binding, err := parseSlot(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validProviderIdentities, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown provider identity %q in @oxy provider annotation", lineNum, args[3])
		}
		providerArgs := []AnnotationArg{AnnotationArg(args[3])}
		if len(args) == 5 {
			if !slices.Contains(validBindingRoles, AnnotationArg(args[4])) {
				return nil, fmt.Errorf("line %d: unknown binding role %q in @oxy provider annotation", lineNum, args[4])
			}
			providerArgs = append(providerArgs, AnnotationArg(args[4]))
		}
		return &Annotation{
			Type:    AnnotationTypeProvider,
			Args:    providerArgs,
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}

func parseSlot(groupArg, bindingArg string, lineNum int) (group, binding int, err error) {
	group, err = strconv.Atoi(groupArg)
	if err != nil {
		return 0, 0, fmt.Errorf("line %d: invalid group number %q: %v", lineNum, groupArg, err)
	}
	binding, err = strconv.Atoi(bindingArg)
	if err != nil {
		return 0, 0, fmt.Errorf("line %d: invalid binding number %q: %v", lineNum, bindingArg, err)
	}
	return group, binding, nil
}
