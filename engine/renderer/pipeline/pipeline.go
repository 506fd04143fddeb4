package pipeline

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a render pipeline or a compute pipeline.
type PipelineType int

const (
	// PipelineTypeCompute is a single compute kernel.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender is a vertex and fragment shader pair.
	PipelineTypeRender
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineType PipelineType
	pipelineKey  string

	vertexShader, fragmentShader, computeShader shader.Shader

	renderPipeline  *wgpu.RenderPipeline
	computePipeline *wgpu.ComputePipeline

	cullMode  wgpu.CullMode
	topology  wgpu.PrimitiveTopology
	frontFace wgpu.FrontFace
	writeMask wgpu.ColorWriteMask
}

// Pipeline couples the shaders of one GPU pipeline with its fixed-function state and,
// once registered with the renderer, the created wgpu pipeline object.
type Pipeline interface {
	// Type returns whether this is a render or compute pipeline.
	Type() PipelineType

	// PipelineKey returns the unique identifier of this pipeline.
	PipelineKey() string

	// Shader returns the shader bound to a stage, or nil.
	//
	// Parameters:
	//   - shaderType: the stage to look up
	//
	// Returns:
	//   - shader.Shader: the stage's shader, or nil if unset
	Shader(shaderType shader.ShaderType) shader.Shader

	// Pipeline returns the created *wgpu.RenderPipeline or *wgpu.ComputePipeline, nil before registration.
	Pipeline() any

	// BindGroupLayoutDescriptors returns the bind group layouts of every stage merged per group.
	// A binding declared by more than one stage gets the union of their visibilities.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: merged descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// WorkgroupSize returns the compute shader's workgroup size, [0, 0, 0] for render pipelines.
	WorkgroupSize() [3]uint32

	CullMode() wgpu.CullMode
	Topology() wgpu.PrimitiveTopology
	FrontFace() wgpu.FrontFace
	WriteMask() wgpu.ColorWriteMask

	// SetRenderPipeline stores the created render pipeline.
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// SetComputePipeline stores the created compute pipeline.
	SetComputePipeline(p *wgpu.ComputePipeline)

	// Release frees the created GPU pipeline, if any.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a Pipeline with the given options applied.
// Render pipelines default to a triangle list with no culling and full colour writes.
//
// Parameters:
//   - pipelineKey: a unique identifier for the pipeline
//   - pipelineType: render or compute
//   - opts: functional options to configure the pipeline
//
// Returns:
//   - Pipeline: the configured pipeline, not yet registered with a device
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:  pipelineKey,
		pipelineType: pipelineType,
		cullMode:     wgpu.CullModeNone,
		topology:     wgpu.PrimitiveTopologyTriangleList,
		frontFace:    wgpu.FrontFaceCCW,
		writeMask:    wgpu.ColorWriteMaskAll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Pipeline() any {
	switch p.pipelineType {
	case PipelineTypeRender:
		if p.renderPipeline != nil {
			return p.renderPipeline
		}
	case PipelineTypeCompute:
		if p.computePipeline != nil {
			return p.computePipeline
		}
	}
	return nil
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	case shader.ShaderTypeCompute:
		return p.computeShader
	default:
		return nil
	}
}

func (p *pipeline) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	var stages []map[int]wgpu.BindGroupLayoutDescriptor
	for _, s := range []shader.Shader{p.computeShader, p.vertexShader, p.fragmentShader} {
		if s != nil {
			stages = append(stages, s.BindGroupLayoutDescriptors())
		}
	}
	return MergeBindGroupLayouts(stages...)
}

func (p *pipeline) WorkgroupSize() [3]uint32 {
	if p.computeShader == nil {
		return [3]uint32{}
	}
	return p.computeShader.WorkgroupSize()
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.computePipeline = cp
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
}

// MergeBindGroupLayouts combines per-stage bind group layouts into one descriptor per group.
// Entries sharing a binding number have their visibility flags ORed; all other entries are
// kept as declared. Entries come out sorted by binding.
//
// Parameters:
//   - layouts: the reflected layouts of each stage
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func MergeBindGroupLayouts(layouts ...map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	byGroup := make(map[int]map[uint32]wgpu.BindGroupLayoutEntry)
	for _, stage := range layouts {
		for g, desc := range stage {
			if byGroup[g] == nil {
				byGroup[g] = make(map[uint32]wgpu.BindGroupLayoutEntry)
			}
			for _, e := range desc.Entries {
				if existing, ok := byGroup[g][e.Binding]; ok {
					existing.Visibility |= e.Visibility
					byGroup[g][e.Binding] = existing
					continue
				}
				byGroup[g][e.Binding] = e
			}
		}
	}

	merged := make(map[int]wgpu.BindGroupLayoutDescriptor, len(byGroup))
	for g, entryMap := range byGroup {
		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
		for _, e := range entryMap {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		merged[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return merged
}
