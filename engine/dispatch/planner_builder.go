package dispatch

// PlannerBuilderOption is a functional option for configuring a Planner.
type PlannerBuilderOption func(*plannerImpl)

// WithSeed fixes the seed instead of drawing one at construction.
//
// Parameters:
//   - seed: the seed for the initialization pass
//
// Returns:
//   - PlannerBuilderOption: option function to apply
func WithSeed(seed uint32) PlannerBuilderOption {
	return func(p *plannerImpl) {
		p.seed = seed
		p.seedSet = true
	}
}

// WithDiffusionGroupSize overrides the diffusion workgroup shape.
//
// Parameters:
//   - x, y, z: the workgroup extents; their product must not exceed MaxInvocationsPerGroup
//
// Returns:
//   - PlannerBuilderOption: option function to apply
func WithDiffusionGroupSize(x, y, z uint32) PlannerBuilderOption {
	return func(p *plannerImpl) {
		p.diffusionSize = [3]uint32{x, y, z}
	}
}

// WithRaymarchGroupSize overrides the raymarch workgroup shape.
//
// Parameters:
//   - x, y: the workgroup extents in pixels
//
// Returns:
//   - PlannerBuilderOption: option function to apply
func WithRaymarchGroupSize(x, y uint32) PlannerBuilderOption {
	return func(p *plannerImpl) {
		p.raymarchSize = [2]uint32{x, y}
	}
}
