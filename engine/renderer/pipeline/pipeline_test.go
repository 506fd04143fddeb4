package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const presentSource = `
@group(0) @binding(0) var<uniform> tint: vec4<f32>;
@group(0) @binding(1) var frame: texture_2d<f32>;

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> @builtin(position) vec4<f32> {
    return tint;
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return tint;
}
`

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("present", PipelineTypeRender)

	assert.Equal(t, "present", p.PipelineKey())
	assert.Equal(t, PipelineTypeRender, p.Type())
	assert.Equal(t, wgpu.CullModeNone, p.CullMode())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, p.Topology())
	assert.Equal(t, wgpu.FrontFaceCCW, p.FrontFace())
	assert.Equal(t, wgpu.ColorWriteMaskAll, p.WriteMask())
	assert.Nil(t, p.Pipeline())
	assert.Nil(t, p.Shader(shader.ShaderTypeVertex))
	assert.Equal(t, [3]uint32{}, p.WorkgroupSize())
	assert.Empty(t, p.BindGroupLayoutDescriptors())
}

func TestPipelineOptions(t *testing.T) {
	p := NewPipeline("present", PipelineTypeRender,
		WithCullMode(wgpu.CullModeBack),
		WithFrontFace(wgpu.FrontFaceCW),
		WithWriteMask(wgpu.ColorWriteMaskRed),
	)

	assert.Equal(t, wgpu.CullModeBack, p.CullMode())
	assert.Equal(t, wgpu.FrontFaceCW, p.FrontFace())
	assert.Equal(t, wgpu.ColorWriteMaskRed, p.WriteMask())
}

func TestRenderPipelineMergesStageVisibility(t *testing.T) {
	vs := shader.NewShader("present", shader.ShaderTypeVertex, presentSource)
	fs := shader.NewShader("present", shader.ShaderTypeFragment, presentSource)
	p := NewPipeline("present", PipelineTypeRender, WithVertexShader(vs), WithFragmentShader(fs))

	assert.Same(t, vs, p.Shader(shader.ShaderTypeVertex))
	assert.Same(t, fs, p.Shader(shader.ShaderTypeFragment))
	assert.Nil(t, p.Shader(shader.ShaderTypeCompute))

	desc := p.BindGroupLayoutDescriptors()[0]
	require.Len(t, desc.Entries, 2)
	for _, e := range desc.Entries {
		assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, e.Visibility)
	}
	assert.Equal(t, uint32(0), desc.Entries[0].Binding)
	assert.Equal(t, uint64(16), desc.Entries[0].Buffer.MinBindingSize)
}

func TestComputePipelineWorkgroupSize(t *testing.T) {
	cs := shader.NewShader("k", shader.ShaderTypeCompute, "@compute @workgroup_size(16, 16) fn k_main() {}")
	p := NewPipeline("k", PipelineTypeCompute, WithComputeShader(cs))

	assert.Equal(t, [3]uint32{16, 16, 1}, p.WorkgroupSize())
	assert.Nil(t, p.Pipeline())
	assert.NotPanics(t, p.Release)
}

func TestMergeBindGroupLayouts(t *testing.T) {
	a := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 2, Visibility: wgpu.ShaderStageCompute},
			{Binding: 0, Visibility: wgpu.ShaderStageCompute},
		}},
	}
	b := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 1, Visibility: wgpu.ShaderStageCompute},
			{Binding: 0, Visibility: wgpu.ShaderStageFragment},
		}},
		1: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageVertex},
		}},
	}

	merged := MergeBindGroupLayouts(a, b)
	require.Len(t, merged, 2)

	group0 := merged[0].Entries
	require.Len(t, group0, 3)
	assert.Equal(t, []uint32{0, 1, 2}, []uint32{group0[0].Binding, group0[1].Binding, group0[2].Binding})
	assert.Equal(t, wgpu.ShaderStageCompute|wgpu.ShaderStageFragment, group0[0].Visibility)
	assert.Equal(t, wgpu.ShaderStageVertex, merged[1].Entries[0].Visibility)

	assert.Empty(t, MergeBindGroupLayouts())
}
