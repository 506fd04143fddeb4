package voxel

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-voxel/common"
)

// ErrInvalidDims is returned when a grid extent is zero.
var ErrInvalidDims = errors.New("voxel: grid dimensions must be positive")

// Dims3 describes the extents of a voxel grid. It is immutable once created.
type Dims3 struct {
	I, J, K uint32
}

// NewDims3 validates and returns grid extents.
//
// Parameters:
//   - i, j, k: voxel counts along x, y and z
//
// Returns:
//   - Dims3: the validated extents
//   - error: ErrInvalidDims if any extent is zero
func NewDims3(i, j, k uint32) (Dims3, error) {
	d := Dims3{I: i, J: j, K: k}
	if err := d.Validate(); err != nil {
		return Dims3{}, err
	}
	return d, nil
}

// Validate reports whether every extent is positive.
func (d Dims3) Validate() error {
	if d.I == 0 || d.J == 0 || d.K == 0 {
		return fmt.Errorf("%w: got %dx%dx%d", ErrInvalidDims, d.I, d.J, d.K)
	}
	return nil
}

// Count returns the number of voxels, I*J*K.
func (d Dims3) Count() int {
	return int(d.I) * int(d.J) * int(d.K)
}

// Stride returns the distance between consecutive z slices, I*J.
func (d Dims3) Stride() uint32 {
	return d.I * d.J
}

// Contains reports whether (x, y, z) lies inside the grid.
func (d Dims3) Contains(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < int(d.I) && y < int(d.J) && z < int(d.K)
}

// Index maps (x, y, z) to the flat, x-major index x + I*(y + J*z).
// The same layout is used by the compute kernels.
//
// Parameters:
//   - x, y, z: voxel coordinates
//
// Returns:
//   - int: the flat index
//   - bool: false if the coordinates are out of range
func (d Dims3) Index(x, y, z int) (int, bool) {
	if !d.Contains(x, y, z) {
		return 0, false
	}
	return x + int(d.I)*(y+int(d.J)*z), true
}

// HalfExtents returns dims/2 along each axis, the half-size of the grid's bounding cuboid.
func (d Dims3) HalfExtents() common.Vec3 {
	return common.Vec3{float32(d.I) / 2, float32(d.J) / 2, float32(d.K) / 2}
}

// Array returns the extents as a [3]uint32.
func (d Dims3) Array() [3]uint32 {
	return [3]uint32{d.I, d.J, d.K}
}
