package camera

import (
	"github.com/Carmen-Shannon/oxy-voxel/common"
)

type CameraBuilderOption func(*cameraImpl)

// WithPosition sets the camera's initial world-space position. The camera always looks at the origin.
//
// Parameters:
//   - x, y, z: position components
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's position
func WithPosition(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = common.Vec3{x, y, z}
	}
}

// WithViewport sets the initial viewport size in pixels.
//
// Parameters:
//   - width, height: viewport dimensions
//
// Returns:
//   - CameraBuilderOption: a function that sets the viewport
func WithViewport(width, height int) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.width = width
		c.height = height
	}
}

// WithReferenceFov sets the field of view in radians spanned by the viewport's min dimension.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the reference field of view
func WithReferenceFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.referenceFov = fov
	}
}

// WithScrollSensitivity sets how many world units one scroll step moves the camera.
//
// Parameters:
//   - s: zoom units per scroll step
//
// Returns:
//   - CameraBuilderOption: a function that sets the scroll sensitivity
func WithScrollSensitivity(s float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.scrollSensitivity = s
	}
}

// WithRotationSensitivity sets the radians of yaw and pitch per dragged pixel.
//
// Parameters:
//   - x: yaw sensitivity
//   - y: pitch sensitivity
//
// Returns:
//   - CameraBuilderOption: a function that sets the rotation sensitivity
func WithRotationSensitivity(x, y float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.rotationSensitivityX = x
		c.rotationSensitivityY = y
	}
}

// WithPanSensitivity sets the world units moved per dragged pixel when panning.
//
// Parameters:
//   - s: pan sensitivity
//
// Returns:
//   - CameraBuilderOption: a function that sets the pan sensitivity
func WithPanSensitivity(s float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.panSensitivity = s
	}
}

// WithRadiusBounds sets the minimum and maximum orbit radius.
//
// Parameters:
//   - lo: minimum distance from the origin
//   - hi: maximum distance from the origin
//
// Returns:
//   - CameraBuilderOption: a function that sets the radius bounds
func WithRadiusBounds(lo, hi float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.radiusMin = lo
		c.radiusMax = hi
	}
}
