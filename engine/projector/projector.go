package projector

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/voxel"
	"github.com/chewxy/math32"
)

// View is the part of the camera the projector needs. camera.Camera satisfies it.
type View interface {
	// WorldToCameraSpace returns p in the camera's (R, U, F) frame.
	WorldToCameraSpace(p common.Vec3) common.Vec3
	// CameraSpaceToScreenPlane returns normalized screen coordinates, ok=false behind the camera.
	CameraSpaceToScreenPlane(p common.Vec3, rightScale float32) (x, y float32, ok bool)
	// HalfExtents returns half the viewport size in pixels.
	HalfExtents() (halfW, halfH float32)
}

// padding is added around the folded extremes to absorb rounding.
const padding = 1

type projectorImpl struct {
	mu      *sync.Mutex
	dims    voxel.Dims3
	corners [8]common.Vec3
}

// Projector reduces the grid's bounding cuboid to a screen-space rectangle each frame.
type Projector interface {
	// Project folds the 8 projected corners into a padded box clamped to the viewport.
	// If every corner is behind the camera the empty box is returned. If only some are,
	// the grid straddles the camera plane and the full viewport is returned.
	//
	// Parameters:
	//   - view: the camera to project through
	//
	// Returns:
	//   - common.BoundingBox: the box in pixels, centred on the viewport
	Project(view View) common.BoundingBox

	// Corners returns the 8 world-space corners of the grid's cuboid.
	Corners() [8]common.Vec3

	// Resize rebuilds the corners for a new grid.
	Resize(dims voxel.Dims3)
}

var _ Projector = &projectorImpl{}

// NewProjector creates a projector for a grid centred on the origin.
//
// Parameters:
//   - dims: the grid extents
//
// Returns:
//   - Projector: the new projector
func NewProjector(dims voxel.Dims3) Projector {
	p := &projectorImpl{mu: &sync.Mutex{}}
	p.setCorners(dims)
	return p
}

func (p *projectorImpl) Project(view View) common.BoundingBox {
	p.mu.Lock()
	corners := p.corners
	p.mu.Unlock()

	halfW, halfH := view.HalfExtents()
	hw, hh := int32(halfW), int32(halfH)
	if hw <= 0 || hh <= 0 {
		return common.BoundingBox{}
	}
	rightScale := halfW / halfH

	minX, minY := math32.Inf(1), math32.Inf(1)
	maxX, maxY := math32.Inf(-1), math32.Inf(-1)
	visible := 0
	for _, corner := range corners {
		x, y, ok := view.CameraSpaceToScreenPlane(view.WorldToCameraSpace(corner), rightScale)
		if !ok {
			continue
		}
		visible++
		px, py := x*halfW, y*halfH
		minX, maxX = math32.Min(minX, px), math32.Max(maxX, px)
		minY, maxY = math32.Min(minY, py), math32.Max(maxY, py)
	}

	switch visible {
	case 0:
		return common.BoundingBox{}
	case len(corners):
	default:
		return common.FullViewport(hw, hh)
	}

	return common.BoundingBox{
		MinX: clampPixel(math32.Floor(minX)-padding, halfW),
		MinY: clampPixel(math32.Floor(minY)-padding, halfH),
		MaxX: clampPixel(math32.Ceil(maxX)+padding, halfW),
		MaxY: clampPixel(math32.Ceil(maxY)+padding, halfH),
	}
}

func (p *projectorImpl) Corners() [8]common.Vec3 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.corners
}

func (p *projectorImpl) Resize(dims voxel.Dims3) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setCorners(dims)
}

// setCorners enumerates the cuboid corners with bit 0 selecting +x, bit 1 +y and bit 2 +z.
func (p *projectorImpl) setCorners(dims voxel.Dims3) {
	p.dims = dims
	h := dims.HalfExtents()
	for i := range p.corners {
		c := common.Vec3{-h[0], -h[1], -h[2]}
		for axis := range 3 {
			if i&(1<<axis) != 0 {
				c[axis] = h[axis]
			}
		}
		p.corners[i] = c
	}
}

// clampPixel clamps v to [-half, half] and converts it to a pixel coordinate.
func clampPixel(v, half float32) int32 {
	return int32(common.Clamp(v, -math32.Floor(half), math32.Floor(half)))
}
