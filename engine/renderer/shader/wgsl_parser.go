package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// typeLayout is the byte size and alignment of a WGSL type in host-shareable memory.
type typeLayout struct {
	size  uint64
	align uint64
}

// structMember is one member of a parsed WGSL struct.
type structMember struct {
	name      string
	typeName  string
	isBuiltin bool
}

// parsedStruct is a WGSL struct block.
type parsedStruct struct {
	name    string
	members []structMember
}

// primitiveLayouts holds the scalar and vector types the kernels put in buffers.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var primitiveLayouts = map[string]typeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"bool": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	"vec2<i32>": {8, 8},
	"vec2i":     {8, 8},
	"vec4<i32>": {16, 16},
	"vec4i":     {16, 16},

	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},

	"mat4x4<f32>": {64, 16},
	"atomic<u32>": {4, 4},
	"atomic<i32>": {4, 4},
}

// sampledTextureDims maps sampled texture base names to their view dimension.
var sampledTextureDims = map[string]wgpu.TextureViewDimension{
	"texture_2d":       wgpu.TextureViewDimension2D,
	"texture_2d_array": wgpu.TextureViewDimension2DArray,
	"texture_3d":       wgpu.TextureViewDimension3D,
}

// storageTextureDims maps storage texture base names to their view dimension.
var storageTextureDims = map[string]wgpu.TextureViewDimension{
	"texture_storage_2d": wgpu.TextureViewDimension2D,
	"texture_storage_3d": wgpu.TextureViewDimension3D,
}

// sampleTypes maps texel scalar types to their sample type.
var sampleTypes = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

// storageAccess maps access keywords to storage texture access modes.
var storageAccess = map[string]wgpu.StorageTextureAccess{
	"write":      wgpu.StorageTextureAccessWriteOnly,
	"read":       wgpu.StorageTextureAccessReadOnly,
	"read_write": wgpu.StorageTextureAccessReadWrite,
}

// texelFormats maps storage texel formats to texture formats.
var texelFormats = map[string]wgpu.TextureFormat{
	"rgba8unorm":  wgpu.TextureFormatRGBA8Unorm,
	"rgba16float": wgpu.TextureFormatRGBA16Float,
	"r32float":    wgpu.TextureFormatR32Float,
	"rgba32float": wgpu.TextureFormatRGBA32Float,
}

var (
	// structBlockRegex captures a struct's name and body.
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// builtinRegex matches @builtin(...) attributes.
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// memberRegex captures a member name and type after any attributes.
	memberRegex = regexp.MustCompile(`(?:@\w+\([^)]*\)\s*)*(\w+)\s*:\s*(.+)`)

	// entryRegexes capture the function name following a stage attribute.
	entryRegexes = map[ShaderType]*regexp.Regexp{
		ShaderTypeCompute:  regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`),
		ShaderTypeVertex:   regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`),
		ShaderTypeFragment: regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`),
	}

	// workgroupSizeRegex captures 1-3 dimensions from @workgroup_size(x[, y[, z]]).
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?,?\s*\)`)

	// bindingRegex captures group, binding, address space, name and type of a resource variable,
	// e.g. @group(0) @binding(1) var<storage, read_write> field_a: array<f32>;
	bindingRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseBindGroupLayouts reflects every @group/@binding declaration into layout entries,
// sorted by binding within each group. Buffer entries get MinBindingSize from the bound type.
//
// Parameters:
//   - source: the processed WGSL source
//   - visibility: the stage visibility applied to every entry
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
//   - map[int]map[int]string: variable names keyed by group and binding
func parseBindGroupLayouts(source string, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	cleaned := stripComments(source)
	known := structLayouts(parseStructBlocks(cleaned))

	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	varNames := make(map[int]map[int]string)
	for _, m := range bindingRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		typeName := strings.TrimSpace(m[5])

		entry := classifyResource(uint32(binding), visibility, strings.TrimSpace(m[3]), typeName)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if layout, ok := resolveLayout(typeName, known); ok {
				entry.Buffer.MinBindingSize = layout.size
			}
		}
		groups[group] = append(groups[group], entry)

		if varNames[group] == nil {
			varNames[group] = make(map[int]string)
		}
		varNames[group][binding] = strings.TrimSpace(m[4])
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return result, varNames
}

// parseWorkgroupSize reads @workgroup_size; omitted dimensions are 1, and so is a missing attribute.
func parseWorkgroupSize(source string) [3]uint32 {
	result := [3]uint32{1, 1, 1}
	m := workgroupSizeRegex.FindStringSubmatch(stripComments(source))
	if m == nil {
		return result
	}
	for i := range 3 {
		if m[i+1] == "" {
			continue
		}
		if v, err := strconv.ParseUint(m[i+1], 10, 32); err == nil {
			result[i] = uint32(v)
		}
	}
	return result
}

// parseEntryPoint returns the first function carrying the stage attribute of shaderType, or "".
func parseEntryPoint(source string, shaderType ShaderType) string {
	re, ok := entryRegexes[shaderType]
	if !ok {
		return ""
	}
	if m := re.FindStringSubmatch(stripComments(source)); m != nil {
		return m[1]
	}
	return ""
}

// parseStructBlocks parses every struct in comment-free source.
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, m := range matches {
		ps := parsedStruct{name: m[1]}
		for _, part := range splitAtTopLevelCommas(m[2]) {
			part = strings.TrimSpace(part)
			mm := memberRegex.FindStringSubmatch(part)
			if mm == nil {
				continue
			}
			ps.members = append(ps.members, structMember{
				name:      mm[1],
				typeName:  strings.TrimSpace(mm[2]),
				isBuiltin: builtinRegex.MatchString(part),
			})
		}
		structs = append(structs, ps)
	}
	return structs
}

// structLayouts resolves struct sizes, repeating until structs nested in other structs settle.
func structLayouts(structs []parsedStruct) map[string]typeLayout {
	resolved := make(map[string]typeLayout, len(structs))
	remaining := structs
	for len(remaining) > 0 {
		var next []parsedStruct
		for _, ps := range remaining {
			if layout, ok := structLayout(ps, resolved); ok {
				resolved[ps.name] = layout
			} else {
				next = append(next, ps)
			}
		}
		if len(next) == len(remaining) {
			break
		}
		remaining = next
	}
	return resolved
}

// structLayout lays members out at their alignment and rounds the size up to the widest alignment.
// A trailing runtime-sized array contributes nothing to the fixed size.
func structLayout(ps parsedStruct, known map[string]typeLayout) (typeLayout, bool) {
	var offset uint64
	maxAlign := uint64(1)
	for _, m := range ps.members {
		if m.isBuiltin {
			continue
		}
		if isRuntimeArray(m.typeName) {
			break
		}
		layout, ok := resolveLayout(m.typeName, known)
		if !ok {
			return typeLayout{}, false
		}
		offset = roundUp(layout.align, offset) + layout.size
		maxAlign = max(maxAlign, layout.align)
	}
	return typeLayout{roundUp(maxAlign, offset), maxAlign}, true
}

// resolveLayout sizes a primitive, a known struct or an array. A runtime-sized array
// resolves to one element stride, the smallest binding that is still usable.
func resolveLayout(typeName string, known map[string]typeLayout) (typeLayout, bool) {
	if layout, ok := primitiveLayouts[typeName]; ok {
		return layout, true
	}
	if layout, ok := known[typeName]; ok {
		return layout, true
	}
	inner, ok := strings.CutPrefix(typeName, "array<")
	if !ok || !strings.HasSuffix(inner, ">") {
		return typeLayout{}, false
	}
	elem, count, sized := strings.Cut(strings.TrimSuffix(inner, ">"), ",")
	elemLayout, ok := resolveLayout(strings.TrimSpace(elem), known)
	if !ok {
		return typeLayout{}, false
	}
	stride := roundUp(elemLayout.align, elemLayout.size)
	if !sized {
		return typeLayout{stride, elemLayout.align}, true
	}
	n, err := strconv.ParseUint(strings.TrimSpace(count), 10, 64)
	if err != nil {
		return typeLayout{}, false
	}
	return typeLayout{n * stride, elemLayout.align}, true
}

func isRuntimeArray(typeName string) bool {
	return strings.HasPrefix(typeName, "array<") && !strings.Contains(typeName, ",")
}

// classifyResource builds a layout entry from an address space and type.
// Variables with an address space are buffers; the rest are handle types.
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(addressSpace, "storage"):
		if strings.Contains(addressSpace, "read_write") {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		} else {
			entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		}
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case strings.HasPrefix(typeName, "texture_storage_"):
		base, params := splitTypeParams(typeName)
		entry.StorageTexture.ViewDimension = storageTextureDims[base]
		format, access, _ := strings.Cut(params, ",")
		entry.StorageTexture.Format = texelFormats[strings.TrimSpace(format)]
		entry.StorageTexture.Access = storageAccess[strings.TrimSpace(access)]
	case strings.HasPrefix(typeName, "texture_"):
		base, param := splitTypeParams(typeName)
		entry.Texture.ViewDimension = sampledTextureDims[base]
		entry.Texture.SampleType = sampleTypes[param]
	}
	return entry
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32").
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

// splitAtTopLevelCommas splits at commas outside angle brackets so array<T, N> stays whole.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// stripComments removes line comments and nested block comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch {
			case source[i] == '/' && source[i+1] == '*':
				depth++
				i++
				continue
			case source[i] == '*' && source[i+1] == '/' && depth > 0:
				depth--
				i++
				continue
			case depth == 0 && source[i] == '/' && source[i+1] == '/':
				for i < len(source) && source[i] != '\n' {
					i++
				}
				if i < len(source) {
					sb.WriteByte('\n')
				}
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

func roundUp(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}
