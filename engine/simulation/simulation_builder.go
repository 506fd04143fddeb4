package simulation

import (
	"github.com/Carmen-Shannon/oxy-voxel/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-voxel/engine/projector"
)

// SimulationBuilderOption is a functional option for configuring a Simulation.
type SimulationBuilderOption func(*simulationImpl)

// WithPresenter sets the presentation collaborator. Without one, frames end after raymarch.
//
// Parameters:
//   - p: the presenter
//
// Returns:
//   - SimulationBuilderOption: option function to apply
func WithPresenter(p Presenter) SimulationBuilderOption {
	return func(s *simulationImpl) {
		s.presenter = p
	}
}

// WithPlanner replaces the planner built from the grid extents.
//
// Parameters:
//   - p: the planner
//
// Returns:
//   - SimulationBuilderOption: option function to apply
func WithPlanner(p dispatch.Planner) SimulationBuilderOption {
	return func(s *simulationImpl) {
		s.planner = p
	}
}

// WithPlannerOptions passes options to the planner built from the grid extents.
//
// Parameters:
//   - opts: planner options such as dispatch.WithSeed
//
// Returns:
//   - SimulationBuilderOption: option function to apply
func WithPlannerOptions(opts ...dispatch.PlannerBuilderOption) SimulationBuilderOption {
	return func(s *simulationImpl) {
		s.plannerOptions = append(s.plannerOptions, opts...)
	}
}

// WithProjector replaces the projector built from the grid extents.
//
// Parameters:
//   - p: the projector
//
// Returns:
//   - SimulationBuilderOption: option function to apply
func WithProjector(p projector.Projector) SimulationBuilderOption {
	return func(s *simulationImpl) {
		s.projector = p
	}
}

// WithMaxTimestep sets the timestep cap applied at the start of every frame.
//
// Parameters:
//   - dt: the cap in seconds
//
// Returns:
//   - SimulationBuilderOption: option function to apply
func WithMaxTimestep(dt float32) SimulationBuilderOption {
	return func(s *simulationImpl) {
		s.maxTimestep = dt
	}
}

// WithBaseCoefficient sets the diffusion coefficient passed to the stages.
//
// Parameters:
//   - d: coefficient at the reference temperature
//
// Returns:
//   - SimulationBuilderOption: option function to apply
func WithBaseCoefficient(d float32) SimulationBuilderOption {
	return func(s *simulationImpl) {
		s.baseCoefficient = d
	}
}

// WithReferenceTemperature sets the temperature at which the base coefficient applies.
//
// Parameters:
//   - t: temperature in kelvin
//
// Returns:
//   - SimulationBuilderOption: option function to apply
func WithReferenceTemperature(t float32) SimulationBuilderOption {
	return func(s *simulationImpl) {
		s.referenceTemperature = t
	}
}

// WithSpecies sets the number of scalar fields per voxel reported to the kernels.
//
// Parameters:
//   - n: species count
//
// Returns:
//   - SimulationBuilderOption: option function to apply
func WithSpecies(n int) SimulationBuilderOption {
	return func(s *simulationImpl) {
		s.species = n
	}
}
