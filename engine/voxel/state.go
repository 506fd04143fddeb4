package voxel

// VoxelState tags a voxel with its position relative to a micelle.
type VoxelState uint8

const (
	// StateOutside marks a voxel in the bulk solvent. It is the initial state.
	StateOutside VoxelState = iota
	// StateInside marks a voxel inside a micelle, where diffusion is slowed.
	StateInside
)

// String implements fmt.Stringer.
func (s VoxelState) String() string {
	switch s {
	case StateOutside:
		return "outside"
	case StateInside:
		return "inside"
	default:
		return "unknown"
	}
}

// CoefficientFunc computes the diffusion coefficient of a voxel from its temperature and state.
type CoefficientFunc func(temperature float32, state VoxelState) float32
