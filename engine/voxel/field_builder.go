package voxel

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
)

// DiffusionFieldOption is a functional option for configuring a DiffusionField.
type DiffusionFieldOption func(*diffusionFieldImpl)

// WithSpecies sets the number of independent scalar fields stored per voxel.
//
// Parameters:
//   - n: species count, at least 1
//
// Returns:
//   - DiffusionFieldOption: option function to apply
func WithSpecies(n int) DiffusionFieldOption {
	return func(f *diffusionFieldImpl) {
		f.species = n
	}
}

// WithMaxTimestep overrides the stability cap applied to every step.
//
// Parameters:
//   - dt: the largest timestep in seconds
//
// Returns:
//   - DiffusionFieldOption: option function to apply
func WithMaxTimestep(dt float32) DiffusionFieldOption {
	return func(f *diffusionFieldImpl) {
		f.maxTimestep = dt
	}
}

// WithBaseCoefficient sets the diffusion coefficient at the reference temperature.
//
// Parameters:
//   - d: coefficient in voxels² per second
//
// Returns:
//   - DiffusionFieldOption: option function to apply
func WithBaseCoefficient(d float32) DiffusionFieldOption {
	return func(f *diffusionFieldImpl) {
		f.baseCoefficient = d
	}
}

// WithReferenceTemperature sets the temperature at which the base coefficient applies.
// Every voxel starts at this temperature.
//
// Parameters:
//   - t: temperature in kelvin
//
// Returns:
//   - DiffusionFieldOption: option function to apply
func WithReferenceTemperature(t float32) DiffusionFieldOption {
	return func(f *diffusionFieldImpl) {
		f.referenceTemperature = t
	}
}

// WithInsideScale sets the factor applied to the coefficient of voxels inside a micelle.
//
// Parameters:
//   - s: the scale factor
//
// Returns:
//   - DiffusionFieldOption: option function to apply
func WithInsideScale(s float32) DiffusionFieldOption {
	return func(f *diffusionFieldImpl) {
		f.insideScale = s
	}
}

// WithCoefficientFunc replaces the temperature/state coefficient model.
//
// Parameters:
//   - fn: the coefficient function
//
// Returns:
//   - DiffusionFieldOption: option function to apply
func WithCoefficientFunc(fn CoefficientFunc) DiffusionFieldOption {
	return func(f *diffusionFieldImpl) {
		f.coefficientFunc = fn
	}
}

// WithWorkerPool runs each step as z-slab tasks on the given pool.
//
// Parameters:
//   - pool: the worker pool, shared with the caller
//   - slabs: number of slabs per step; 0 uses the pool's worker count
//
// Returns:
//   - DiffusionFieldOption: option function to apply
func WithWorkerPool(pool worker.DynamicWorkerPool, slabs int) DiffusionFieldOption {
	return func(f *diffusionFieldImpl) {
		f.pool = pool
		f.slabs = slabs
	}
}
