package simulation

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
)

// SnapshotPresenter saves every Nth frame of an image source as a PNG.
type SnapshotPresenter struct {
	source  func() *image.RGBA
	dir     string
	every   uint64
	gamma   float64
	scale   float64
	written []string
}

var _ Presenter = &SnapshotPresenter{}

// SnapshotOption is a functional option for configuring a SnapshotPresenter.
type SnapshotOption func(*SnapshotPresenter)

// WithEvery saves one frame out of n.
//
// Parameters:
//   - n: the frame interval, 0 is treated as 1
//
// Returns:
//   - SnapshotOption: option function to apply
func WithEvery(n uint64) SnapshotOption {
	return func(p *SnapshotPresenter) {
		p.every = n
	}
}

// WithGamma applies gamma correction before saving.
//
// Parameters:
//   - g: the gamma, 1 leaves the image unchanged
//
// Returns:
//   - SnapshotOption: option function to apply
func WithGamma(g float64) SnapshotOption {
	return func(p *SnapshotPresenter) {
		p.gamma = g
	}
}

// WithScale resizes the saved image by a factor.
//
// Parameters:
//   - s: the scale factor, 1 keeps the viewport size
//
// Returns:
//   - SnapshotOption: option function to apply
func WithScale(s float64) SnapshotOption {
	return func(p *SnapshotPresenter) {
		p.scale = s
	}
}

// NewSnapshotPresenter creates a presenter writing into dir, creating it if needed.
//
// Parameters:
//   - dir: the output directory
//   - source: returns the current colour target, usually CPUStage.Image
//   - options: functional options to configure the presenter
//
// Returns:
//   - *SnapshotPresenter: the new presenter
//   - error: if dir cannot be created
func NewSnapshotPresenter(dir string, source func() *image.RGBA, options ...SnapshotOption) (*SnapshotPresenter, error) {
	p := &SnapshotPresenter{
		source: source,
		dir:    dir,
		every:  1,
		gamma:  1,
		scale:  1,
	}
	for _, option := range options {
		option(p)
	}
	if p.every == 0 {
		p.every = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: failed to create %s: %w", dir, err)
	}
	return p, nil
}

// Present saves the source image when params.Frame is a multiple of the interval.
func (p *SnapshotPresenter) Present(params FrameParams) error {
	if params.Frame%p.every != 0 {
		return nil
	}
	src := p.source()
	if src == nil {
		return nil
	}

	var img image.Image = src
	if p.gamma > 0 && p.gamma != 1 {
		img = adjust.Gamma(img, p.gamma)
	}
	if p.scale > 0 && p.scale != 1 {
		b := img.Bounds()
		w := max(int(float64(b.Dx())*p.scale), 1)
		h := max(int(float64(b.Dy())*p.scale), 1)
		img = transform.Resize(img, w, h, transform.Linear)
	}

	name := filepath.Join(p.dir, fmt.Sprintf("frame_%06d.png", params.Frame))
	if err := imgio.Save(name, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("snapshot: failed to save %s: %w", name, err)
	}
	p.written = append(p.written, name)
	log.Printf("[Simulation] Saved snapshot %s", name)
	return nil
}

// Written returns the paths saved so far.
func (p *SnapshotPresenter) Written() []string {
	return append([]string(nil), p.written...)
}
