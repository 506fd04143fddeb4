package simulation

import (
	"fmt"
	"image"
	"image/color"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-voxel/engine/voxel"
	"github.com/chewxy/math32"
	"golang.org/x/sync/errgroup"
)

var background = color.RGBA{A: 255}

// CPUStage runs the compute passes on a voxel.DiffusionField and raymarches into an RGBA image.
// It is used for headless runs and tests.
type CPUStage struct {
	mu *sync.Mutex

	field     voxel.DiffusionField
	img       *image.RGBA
	tileSize  [2]uint32
	limit     int
	density   float32
	species   int
	coeffSeen float32
}

var (
	_ ComputeStage = &CPUStage{}
	_ Clearer      = &CPUStage{}
)

// CPUStageOption is a functional option for configuring a CPUStage.
type CPUStageOption func(*CPUStage)

// WithTileSize sets the pixel tile raymarched by one task. It should match the planner's raymarch group size.
//
// Parameters:
//   - x, y: tile extents in pixels
//
// Returns:
//   - CPUStageOption: option function to apply
func WithTileSize(x, y uint32) CPUStageOption {
	return func(c *CPUStage) {
		c.tileSize = [2]uint32{x, y}
	}
}

// WithConcurrency caps the number of raymarch tiles in flight.
//
// Parameters:
//   - n: the limit; values <= 0 use GOMAXPROCS
//
// Returns:
//   - CPUStageOption: option function to apply
func WithConcurrency(n int) CPUStageOption {
	return func(c *CPUStage) {
		c.limit = n
	}
}

// WithDensity scales how opaque a unit of field value is along a ray.
//
// Parameters:
//   - d: extinction per voxel per unit value
//
// Returns:
//   - CPUStageOption: option function to apply
func WithDensity(d float32) CPUStageOption {
	return func(c *CPUStage) {
		c.density = d
	}
}

// WithRenderedSpecies picks the species the raymarch samples.
//
// Parameters:
//   - s: species index
//
// Returns:
//   - CPUStageOption: option function to apply
func WithRenderedSpecies(s int) CPUStageOption {
	return func(c *CPUStage) {
		c.species = s
	}
}

// NewCPUStage wraps a field as a compute stage.
//
// Parameters:
//   - field: the field to evolve; it must not be initialized yet
//   - options: functional options to configure the stage
//
// Returns:
//   - *CPUStage: the new stage
func NewCPUStage(field voxel.DiffusionField, options ...CPUStageOption) *CPUStage {
	c := &CPUStage{
		mu:        &sync.Mutex{},
		field:     field,
		tileSize:  dispatch.DefaultRaymarchGroupSize,
		density:   0.05,
		coeffSeen: -1,
	}
	for _, option := range options {
		option(c)
	}
	if c.limit <= 0 {
		c.limit = runtime.GOMAXPROCS(0)
	}
	if c.tileSize[0] == 0 || c.tileSize[1] == 0 {
		c.tileSize = dispatch.DefaultRaymarchGroupSize
	}
	if c.species < 0 || c.species >= field.Species() {
		c.species = 0
	}
	return c
}

// Field returns the wrapped field.
func (c *CPUStage) Field() voxel.DiffusionField {
	return c.field
}

// Image returns the colour target written by Raymarch. It is reused across frames.
func (c *CPUStage) Image() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.img
}

func (c *CPUStage) Initialize(params FrameParams) error {
	if cur := c.field.Current(); cur != params.Current {
		return fmt.Errorf("cpu stage: init targets buffer %s but field holds %s", params.Current, cur)
	}
	return c.field.Initialize(params.Plan.Seed)
}

func (c *CPUStage) Diffuse(params FrameParams) error {
	c.mu.Lock()
	if params.BaseCoefficient != c.coeffSeen {
		c.field.SetBaseCoefficient(params.BaseCoefficient)
		c.coeffSeen = params.BaseCoefficient
	}
	c.mu.Unlock()
	return c.field.StepInto(params.Current, params.Timestep)
}

// Clear fills the colour target with the background. Frame calls it when the grid is off screen.
func (c *CPUStage) Clear(params FrameParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearTarget(params)
}

// clearTarget sizes the colour target to the viewport and fills it with the background. Caller must hold the mutex.
func (c *CPUStage) clearTarget(params FrameParams) error {
	w, h := int(params.HalfWidth)*2, int(params.HalfHeight)*2
	if w <= 0 || h <= 0 {
		return fmt.Errorf("cpu stage: invalid viewport %dx%d", w, h)
	}
	if c.img == nil || c.img.Rect.Dx() != w || c.img.Rect.Dy() != h {
		c.img = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	for i := 0; i < len(c.img.Pix); i += 4 {
		c.img.Pix[i], c.img.Pix[i+1], c.img.Pix[i+2], c.img.Pix[i+3] = background.R, background.G, background.B, background.A
	}
	return nil
}

// Raymarch renders params.Box, one task per row of tiles, and clears every pixel outside it.
func (c *CPUStage) Raymarch(params FrameParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.clearTarget(params); err != nil {
		return err
	}

	dims := c.field.Dims()
	values := c.field.Buffer(params.Current)
	n := dims.Count()
	values = values[c.species*n : (c.species+1)*n]

	m := marcher{
		dims:    dims,
		half:    dims.HalfExtents(),
		values:  values,
		density: c.density,
		pos:     vec3(params.Uniform.Camera.Position),
		fwd:     vec3(params.Uniform.Camera.Forward),
		up:      vec3(params.Uniform.Camera.Up),
		right:   vec3(params.Uniform.Camera.Right),
	}
	m.focal = vec3(params.Uniform.Camera.Centre).Sub(m.pos).Length()

	box := params.Box
	tileH := int32(c.tileSize[1])
	rows := int32(params.Plan.RaymarchGroups[1])

	var g errgroup.Group
	g.SetLimit(c.limit)
	for gy := range rows {
		y0 := box.MinY + gy*tileH
		y1 := min(y0+tileH, box.MaxY)
		g.Go(func() error {
			c.marchRows(&m, params.HalfWidth, params.HalfHeight, box.MinX, box.MaxX, y0, y1)
			return nil
		})
	}
	return g.Wait()
}

// marchRows fills pixels with x in [x0, x1) and y in [y0, y1), in y-up viewport coordinates.
func (c *CPUStage) marchRows(m *marcher, halfW, halfH, x0, x1, y0, y1 int32) {
	for py := y0; py < y1; py++ {
		iy := int(halfH - 1 - py)
		if iy < 0 || iy >= c.img.Rect.Dy() {
			continue
		}
		for px := x0; px < x1; px++ {
			ix := int(px + halfW)
			if ix < 0 || ix >= c.img.Rect.Dx() {
				continue
			}
			c.img.SetRGBA(ix, iy, m.march(float32(px)+0.5, float32(py)+0.5))
		}
	}
}

type marcher struct {
	dims    voxel.Dims3
	half    common.Vec3
	values  []float32
	density float32

	pos, fwd, up, right common.Vec3
	focal               float32
}

// march casts the ray through pixel (px, py) and composites the field front to back.
func (m *marcher) march(px, py float32) color.RGBA {
	dir, ok := m.fwd.Scale(m.focal).Add(m.right.Scale(px)).Add(m.up.Scale(py)).Normalize()
	if !ok {
		return background
	}
	tNear, tFar, hit := m.intersect(dir)
	if !hit {
		return background
	}

	var transmittance float32 = 1
	var r, g, b float32
	for t := tNear + 0.5; t < tFar && transmittance > 0.01; t++ {
		p := m.pos.Add(dir.Scale(t)).Add(m.half)
		i, ok := m.dims.Index(int(math32.Floor(p[0])), int(math32.Floor(p[1])), int(math32.Floor(p[2])))
		if !ok {
			continue
		}
		v := max(m.values[i], 0)
		alpha := 1 - math32.Exp(-v*m.density)
		cr, cg, cb := ramp(v)
		r += transmittance * alpha * cr
		g += transmittance * alpha * cg
		b += transmittance * alpha * cb
		transmittance *= 1 - alpha
	}
	return color.RGBA{R: toByte(r), G: toByte(g), B: toByte(b), A: 255}
}

// intersect clips the ray against the grid cuboid with the slab method.
func (m *marcher) intersect(dir common.Vec3) (tNear, tFar float32, hit bool) {
	tNear, tFar = 0, math32.Inf(1)
	for a := range 3 {
		if math32.Abs(dir[a]) < common.Epsilon {
			if m.pos[a] < -m.half[a] || m.pos[a] > m.half[a] {
				return 0, 0, false
			}
			continue
		}
		t0 := (-m.half[a] - m.pos[a]) / dir[a]
		t1 := (m.half[a] - m.pos[a]) / dir[a]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tNear = math32.Max(tNear, t0)
		tFar = math32.Min(tFar, t1)
		if tNear > tFar {
			return 0, 0, false
		}
	}
	return tNear, tFar, true
}

// ramp maps a concentration to a blue-to-orange colour.
func ramp(v float32) (r, g, b float32) {
	t := common.Clamp(v, 0, 1)
	return t, 0.4 + 0.3*t, 1 - t
}

func toByte(v float32) uint8 {
	return uint8(common.Clamp(v, 0, 1)*255 + 0.5)
}

func vec3(v [4]float32) common.Vec3 {
	return common.Vec3{v[0], v[1], v[2]}
}
