package renderer

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-voxel/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/init.wgsl
var initShaderSource string

//go:embed assets/laplacian.wgsl
var laplacianShaderSource string

//go:embed assets/raymarch.wgsl
var raymarchShaderSource string

//go:embed assets/present.wgsl
var presentShaderSource string

// Pipeline keys registered by NewRenderer.
const (
	PipelineKeyInit      = "init"
	PipelineKeyLaplacian = "laplacian"
	PipelineKeyRaymarch  = "raymarch"
	PipelineKeyPresent   = "present"
)

// Variable names shared by the compute kernels and the present pass.
const (
	varFrameUniform = "params"
	varFieldA       = "field_a"
	varFieldB       = "field_b"
	varOutput       = "output"
	varFrame        = "frame"
)

// computePipelineKeys lists the compute kernels in the order they were written.
var computePipelineKeys = []string{PipelineKeyInit, PipelineKeyLaplacian, PipelineKeyRaymarch}

// newPipelines builds the CPU-side pipeline objects from the embedded WGSL.
// No GPU objects are created; the backend fills them in on registration.
func newPipelines() map[string]pipeline.Pipeline {
	return map[string]pipeline.Pipeline{
		PipelineKeyInit: pipeline.NewPipeline(PipelineKeyInit, pipeline.PipelineTypeCompute,
			pipeline.WithComputeShader(shader.NewShader("init.wgsl", shader.ShaderTypeCompute, initShaderSource)),
		),
		PipelineKeyLaplacian: pipeline.NewPipeline(PipelineKeyLaplacian, pipeline.PipelineTypeCompute,
			pipeline.WithComputeShader(shader.NewShader("laplacian.wgsl", shader.ShaderTypeCompute, laplacianShaderSource)),
		),
		PipelineKeyRaymarch: pipeline.NewPipeline(PipelineKeyRaymarch, pipeline.PipelineTypeCompute,
			pipeline.WithComputeShader(shader.NewShader("raymarch.wgsl", shader.ShaderTypeCompute, raymarchShaderSource)),
		),
		PipelineKeyPresent: pipeline.NewPipeline(PipelineKeyPresent, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(shader.NewShader("present.wgsl", shader.ShaderTypeVertex, presentShaderSource)),
			pipeline.WithFragmentShader(shader.NewShader("present.wgsl", shader.ShaderTypeFragment, presentShaderSource)),
			pipeline.WithTopology(wgpu.PrimitiveTopologyTriangleList),
			pipeline.WithCullMode(wgpu.CullModeNone),
		),
	}
}

// computeLayoutDescriptors merges the bind group layouts of every compute kernel into the
// single layout their shared bind group is created against.
func computeLayoutDescriptors(pipelines map[string]pipeline.Pipeline) map[int]wgpu.BindGroupLayoutDescriptor {
	layouts := make([]map[int]wgpu.BindGroupLayoutDescriptor, 0, len(computePipelineKeys))
	for _, key := range computePipelineKeys {
		layouts = append(layouts, pipelines[key].BindGroupLayoutDescriptors())
	}
	merged := pipeline.MergeBindGroupLayouts(layouts...)
	if desc, ok := merged[0]; ok {
		desc.Label = "Voxel Compute Layout"
		merged[0] = desc
	}
	return merged
}

// checkWorkgroupSizes verifies the declared @workgroup_size of every compute kernel against the planner.
func checkWorkgroupSizes(planner dispatch.Planner, pipelines map[string]pipeline.Pipeline) error {
	kernels := map[string]string{
		PipelineKeyInit:      dispatch.KernelDiffusion,
		PipelineKeyLaplacian: dispatch.KernelDiffusion,
		PipelineKeyRaymarch:  dispatch.KernelRaymarch,
	}
	for _, key := range computePipelineKeys {
		if err := planner.CheckWorkgroupSize(kernels[key], pipelines[key].WorkgroupSize()); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// binding resolves a variable name to its binding index in group 0 of a shader.
func binding(s shader.Shader, varName string) (int, error) {
	b, ok := s.BindGroupFromVarName(0, varName)
	if !ok {
		return -1, fmt.Errorf("%s declares no binding %q", s.Key(), varName)
	}
	return b, nil
}
