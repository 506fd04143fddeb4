package camera

import (
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/chewxy/math32"
)

// basisTolerance is the largest deviation from orthonormality accepted after Orthonormalize.
const basisTolerance = 1e-4

// poleThreshold is the |dot(position, worldUp)| above which the up reference switches away from worldUp.
const poleThreshold = 0.9

// minReferenceSine rejects up references closer than ~0.06° to the forward axis.
const minReferenceSine = 1e-3

// Basis is the camera's right/up/forward frame. F always equals normalize(cross(R, U)).
type Basis struct {
	R common.Vec3
	U common.Vec3
	F common.Vec3
}

type cameraImpl struct {
	mu *sync.Mutex

	position common.Vec3
	home     common.Vec3
	basis    Basis
	centre   common.Vec3

	width        int
	height       int
	referenceFov float32
	focalScale   float32

	scrollSensitivity    float32
	rotationSensitivityX float32
	rotationSensitivityY float32
	panSensitivity       float32

	radiusMin float32
	radiusMax float32
}

// Camera defines the interface for the orbital camera.
// The camera sits on a sphere around the world origin and keeps an orthonormal
// right/up/forward basis that is updated incrementally by input commands.
type Camera interface {
	// Position returns the world-space camera position.
	//
	// Returns:
	//   - common.Vec3: the camera position
	Position() common.Vec3

	// Basis returns the current right/up/forward frame.
	//
	// Returns:
	//   - Basis: a copy of the camera basis
	Basis() Basis

	// Centre returns the near-plane projection centre, position + F*focalScale.
	//
	// Returns:
	//   - common.Vec3: the near-plane centre
	Centre() common.Vec3

	// Radius returns the distance from the origin to the camera.
	Radius() float32

	// RadiusBounds returns the minimum and maximum orbit radius.
	RadiusBounds() (lo, hi float32)

	// FocalScale returns the distance from the camera to the near plane in pixels.
	FocalScale() float32

	// Viewport returns the viewport size in pixels.
	//
	// Returns:
	//   - width, height: viewport dimensions
	Viewport() (width, height int)

	// HalfExtents returns half the viewport size in pixels.
	HalfExtents() (halfW, halfH float32)

	// Rotate yaws about U then pitches about R, re-orthonormalizes, and re-seats the
	// camera on the orbit sphere so it keeps looking at the origin.
	//
	// Parameters:
	//   - dYaw: horizontal drag delta, scaled by the X rotation sensitivity
	//   - dPitch: vertical drag delta, scaled by the Y rotation sensitivity
	Rotate(dYaw, dPitch float32)

	// Orthonormalize removes floating-point drift from the basis.
	Orthonormalize()

	// Zoom moves the camera along its radial direction, clamping the radius.
	//
	// Parameters:
	//   - dScroll: scroll delta, scaled by the scroll sensitivity
	Zoom(dScroll float32)

	// Pan perturbs the position directly and projects it back onto the orbit sphere.
	//
	// Parameters:
	//   - dx, dy: drag delta in pixels, scaled by the pan sensitivity
	Pan(dx, dy float32)

	// UpdateUpVector rebuilds R and U around the current F.
	UpdateUpVector()

	// Resize updates the viewport and recomputes the focal scale and centre.
	// Non-positive sizes are ignored.
	//
	// Parameters:
	//   - width, height: the new viewport size in pixels
	Resize(width, height int)

	// Reset returns the camera to the position it was created with.
	Reset()

	// SetSensitivity replaces the input sensitivities. Zero values keep the current setting.
	//
	// Parameters:
	//   - scroll: zoom units per scroll step
	//   - rotX, rotY: radians per dragged pixel
	//   - pan: world units per dragged pixel
	SetSensitivity(scroll, rotX, rotY, pan float32)

	// Apply dispatches a Command to the matching operation.
	//
	// Parameters:
	//   - cmd: the command to apply
	Apply(cmd Command)

	// WorldToCameraSpace expresses a world point in the camera's (R, U, F) frame.
	//
	// Parameters:
	//   - p: world-space point
	//
	// Returns:
	//   - common.Vec3: (dot(p-c, R), dot(p-c, U), dot(p-c, F))
	WorldToCameraSpace(p common.Vec3) common.Vec3

	// CameraSpaceToScreenPlane projects a camera-space point onto the near plane and
	// returns normalized screen-plane coordinates in which ±1 is the half-extent of
	// each axis. Points at or behind the camera have no projection.
	//
	// Parameters:
	//   - p: camera-space point
	//   - rightScale: halfW / halfH, widening the horizontal field of view with the aspect ratio
	//
	// Returns:
	//   - x, y: normalized screen-plane coordinates
	//   - ok: false when p is behind the camera
	CameraSpaceToScreenPlane(p common.Vec3, rightScale float32) (x, y float32, ok bool)

	// GPUBlock returns the camera fields of the frame uniform record.
	//
	// Returns:
	//   - GPUCameraBlock: position, forward, centre, up and right as vec4s
	GPUBlock() GPUCameraBlock
}

var _ Camera = &cameraImpl{}

// NewCamera creates an orbital camera looking at the origin.
// Panics if the options describe an unusable camera (zero position, inverted radius
// bounds or an empty viewport), since those indicate a programming error.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:                   &sync.Mutex{},
		position:             common.Vec3{400, 0, 0},
		width:                800,
		height:               600,
		referenceFov:         45.0 * (math.Pi / 180.0),
		scrollSensitivity:    2.0,
		rotationSensitivityX: 0.005,
		rotationSensitivityY: 0.005,
		panSensitivity:       1.0,
		radiusMin:            1.0,
		radiusMax:            500.0,
	}
	for _, option := range options {
		option(c)
	}
	if err := c.validate(); err != nil {
		panic(fmt.Sprintf("camera: %v", err))
	}
	r := c.position.Length()
	c.position = c.position.Scale(common.Clamp(r, c.radiusMin, c.radiusMax) / r)
	c.home = c.position
	c.lookAtOrigin()
	c.updateFocal()
	return c
}

func (c *cameraImpl) Position() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Basis() Basis {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.basis
}

func (c *cameraImpl) Centre() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.centre
}

func (c *cameraImpl) Radius() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position.Length()
}

func (c *cameraImpl) RadiusBounds() (lo, hi float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.radiusMin, c.radiusMax
}

func (c *cameraImpl) FocalScale() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focalScale
}

func (c *cameraImpl) Viewport() (width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *cameraImpl) HalfExtents() (halfW, halfH float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return float32(c.width) / 2, float32(c.height) / 2
}

func (c *cameraImpl) Rotate(dYaw, dPitch float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rotate(dYaw, dPitch)
}

func (c *cameraImpl) Orthonormalize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orthonormalize()
}

func (c *cameraImpl) Zoom(dScroll float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom(dScroll)
}

func (c *cameraImpl) Pan(dx, dy float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pan(dx, dy)
}

func (c *cameraImpl) UpdateUpVector() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateUpVector()
	c.orthonormalize()
}

func (c *cameraImpl) Resize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resize(width, height)
}

func (c *cameraImpl) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = c.home
	c.lookAtOrigin()
	c.updateCentre()
}

func (c *cameraImpl) SetSensitivity(scroll, rotX, rotY, pan float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scrollSensitivity = common.Coalesce(scroll, c.scrollSensitivity)
	c.rotationSensitivityX = common.Coalesce(rotX, c.rotationSensitivityX)
	c.rotationSensitivityY = common.Coalesce(rotY, c.rotationSensitivityY)
	c.panSensitivity = common.Coalesce(pan, c.panSensitivity)
}

func (c *cameraImpl) Apply(cmd Command) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch v := cmd.(type) {
	case Pan:
		c.pan(v.DX, v.DY)
	case Zoom:
		c.zoom(v.Delta)
	case Resize:
		c.resize(v.Width, v.Height)
	case Rotate:
		c.rotate(v.DYaw, v.DPitch)
	case Reset:
		c.position = c.home
		c.lookAtOrigin()
		c.updateCentre()
	case nil:
	default:
		log.Printf("[Camera] ignoring unknown command %T", cmd)
	}
}

func (c *cameraImpl) WorldToCameraSpace(p common.Vec3) common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := p.Sub(c.position)
	return common.Vec3{d.Dot(c.basis.R), d.Dot(c.basis.U), d.Dot(c.basis.F)}
}

func (c *cameraImpl) CameraSpaceToScreenPlane(p common.Vec3, rightScale float32) (x, y float32, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := p.Normalize()
	if !ok || n[2] <= common.Epsilon || rightScale <= 0 {
		return 0, 0, false
	}
	halfH := float32(c.height) / 2
	x = n[0] / n[2] * c.focalScale / (halfH * rightScale)
	y = n[1] / n[2] * c.focalScale / halfH
	return x, y, true
}

func (c *cameraImpl) GPUBlock() GPUCameraBlock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCameraBlock{
		Position: vec4(c.position),
		Forward:  vec4(c.basis.F),
		Centre:   vec4(c.centre),
		Up:       vec4(c.basis.U),
		Right:    vec4(c.basis.R),
	}
}

// rotate applies yaw then pitch to the basis. Caller must hold the mutex.
func (c *cameraImpl) rotate(dYaw, dPitch float32) {
	if !finite(dYaw) || !finite(dPitch) {
		return
	}
	b := &c.basis

	theta := dYaw * c.rotationSensitivityX
	sinT, cosT := math32.Sincos(theta)
	r := b.F.Scale(sinT).Add(b.R.Scale(cosT))
	f := b.F.Scale(cosT).Sub(b.R.Scale(sinT))
	b.R, b.F = r, f

	phi := dPitch * c.rotationSensitivityY
	sinP, cosP := math32.Sincos(phi)
	u := b.F.Scale(sinP).Add(b.U.Scale(cosP))
	f = b.F.Scale(cosP).Sub(b.U.Scale(sinP))
	b.U, b.F = u, f

	c.orthonormalize()

	radius := c.position.Length()
	c.position = c.basis.F.Scale(-radius)
	c.updateCentre()
}

// orthonormalize re-normalizes R and U and rebuilds F and R from cross products.
// A vector that collapses to zero keeps its previous value. Caller must hold the mutex.
func (c *cameraImpl) orthonormalize() {
	b := &c.basis
	if r, ok := b.R.Normalize(); ok {
		b.R = r
	}
	if u, ok := b.U.Normalize(); ok {
		b.U = u
	}
	if f, ok := b.R.Cross(b.U).Normalize(); ok {
		b.F = f
	}
	if r, ok := b.U.Cross(b.F).Normalize(); ok {
		b.R = r
	}
	b.U = b.F.Cross(b.R)

	if err := checkBasis(*b); err != nil {
		panic(fmt.Sprintf("camera: basis corrupted after orthonormalize: %v", err))
	}
}

// zoom rescales the position along its direction. Caller must hold the mutex.
func (c *cameraImpl) zoom(dScroll float32) {
	if !finite(dScroll) {
		return
	}
	radius := c.position.Length()
	dir, ok := c.position.Normalize()
	if !ok {
		dir = c.basis.F.Scale(-1)
	}
	radius = common.Clamp(radius+dScroll*c.scrollSensitivity, c.radiusMin, c.radiusMax)
	c.position = dir.Scale(radius)
	c.updateCentre()
}

// pan perturbs the position and projects it back onto the orbit sphere. Caller must hold the mutex.
func (c *cameraImpl) pan(dx, dy float32) {
	if !finite(dx) || !finite(dy) {
		return
	}
	dx *= c.panSensitivity
	dy *= c.panSensitivity

	radius := c.position.Length()
	moved := common.Vec3{c.position[0] - dx, c.position[1] - dy, c.position[2] + dx}
	dir, ok := moved.Normalize()
	if !ok || !dir.IsFinite() {
		return
	}
	radius = common.Clamp(radius, c.radiusMin, c.radiusMax)
	c.position = dir.Scale(radius)
	c.basis.F = dir.Scale(-1)
	c.updateUpVector()
	c.orthonormalize()
	c.updateCentre()
}

// updateUpVector rebuilds R and U from F and an up reference. Near the poles the
// reference comes from the current R so up and forward never become parallel.
// Caller must hold the mutex.
func (c *cameraImpl) updateUpVector() {
	b := &c.basis

	worldRef := c.position.Add(common.WorldUp.Scale(poleThreshold))
	refs := []common.Vec3{worldRef, b.F.Cross(b.R), {1, 0, 0}, {0, 0, 1}}
	dir, ok := c.position.Normalize()
	if ok && math32.Abs(dir.Dot(common.WorldUp)) > poleThreshold {
		refs[0], refs[1] = refs[1], refs[0]
	}

	for _, ref := range refs {
		cross := ref.Cross(b.F)
		if cross.Length() < minReferenceSine*ref.Length() {
			continue
		}
		r, _ := cross.Normalize()
		if u, ok := b.F.Cross(r).Normalize(); ok {
			b.R, b.U = r, u
			return
		}
	}
}

// resize updates the viewport and derived projection values. Caller must hold the mutex.
func (c *cameraImpl) resize(width, height int) {
	if width <= 0 || height <= 0 {
		log.Printf("[Camera] ignoring resize to %dx%d", width, height)
		return
	}
	c.width = width
	c.height = height
	c.updateFocal()
}

// lookAtOrigin builds the initial basis with F pointing from the position to the origin.
// Caller must hold the mutex.
func (c *cameraImpl) lookAtOrigin() {
	f, ok := c.position.Scale(-1).Normalize()
	if !ok {
		f = common.Vec3{0, 0, -1}
	}
	ref := c.position.Add(common.WorldUp)
	r, ok := ref.Cross(f).Normalize()
	if !ok {
		// Looking straight along worldUp: any horizontal right axis will do.
		r = common.Vec3{1, 0, 0}
	}
	u, _ := f.Cross(r).Normalize()
	c.basis = Basis{R: r, U: u, F: f}
	c.orthonormalize()
}

// updateFocal recomputes the near-plane distance from the viewport's min dimension.
// Caller must hold the mutex.
func (c *cameraImpl) updateFocal() {
	minDim := float32(min(c.width, c.height))
	c.focalScale = (minDim / 2) / math32.Tan(c.referenceFov/2)
	c.updateCentre()
}

// updateCentre recomputes the near-plane centre. Caller must hold the mutex.
func (c *cameraImpl) updateCentre() {
	c.centre = c.position.Add(c.basis.F.Scale(c.focalScale))
}

func (c *cameraImpl) validate() error {
	if c.position.Length() < common.Epsilon {
		return fmt.Errorf("position must not be the origin")
	}
	if c.radiusMin <= 0 || c.radiusMin > c.radiusMax {
		return fmt.Errorf("invalid radius bounds [%v, %v]", c.radiusMin, c.radiusMax)
	}
	if c.width <= 0 || c.height <= 0 {
		return fmt.Errorf("invalid viewport %dx%d", c.width, c.height)
	}
	if c.referenceFov <= 0 || c.referenceFov >= math.Pi {
		return fmt.Errorf("invalid reference fov %v", c.referenceFov)
	}
	return nil
}

// checkBasis reports whether b is orthonormal within basisTolerance.
func checkBasis(b Basis) error {
	for name, v := range map[string]common.Vec3{"R": b.R, "U": b.U, "F": b.F} {
		if !v.IsFinite() {
			return fmt.Errorf("%s is not finite: %v", name, v)
		}
		if math32.Abs(v.Length()-1) > basisTolerance {
			return fmt.Errorf("|%s| = %v", name, v.Length())
		}
	}
	if d := math32.Abs(b.R.Dot(b.U)); d > basisTolerance {
		return fmt.Errorf("R·U = %v", d)
	}
	if d := math32.Abs(b.R.Dot(b.F)); d > basisTolerance {
		return fmt.Errorf("R·F = %v", d)
	}
	if d := math32.Abs(b.U.Dot(b.F)); d > basisTolerance {
		return fmt.Errorf("U·F = %v", d)
	}
	return nil
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}

func vec4(v common.Vec3) [4]float32 {
	return [4]float32{v[0], v[1], v[2], 0}
}
