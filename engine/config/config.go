package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/voxel"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownFormat is returned for a config path whose extension is not .toml, .yaml or .yml.
	ErrUnknownFormat = errors.New("config: unknown format")
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("config: invalid")
)

// Format is a config file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// Present modes accepted in the window section.
const (
	PresentVSync    = "vsync"
	PresentUncapped = "uncapped"
)

// Config is the complete runtime configuration. Zero values are replaced by defaults on load.
type Config struct {
	Window     WindowConfig     `toml:"window" yaml:"window"`
	Grid       GridConfig       `toml:"grid" yaml:"grid"`
	Camera     CameraConfig     `toml:"camera" yaml:"camera"`
	Simulation SimulationConfig `toml:"simulation" yaml:"simulation"`
	Snapshot   SnapshotConfig   `toml:"snapshot" yaml:"snapshot"`
	Engine     EngineConfig     `toml:"engine" yaml:"engine"`
}

type WindowConfig struct {
	Title       string `toml:"title" yaml:"title"`
	Width       int    `toml:"width" yaml:"width"`
	Height      int    `toml:"height" yaml:"height"`
	PresentMode string `toml:"present_mode" yaml:"present_mode"`
	LockAspect  bool   `toml:"lock_aspect" yaml:"lock_aspect"`
}

type GridConfig struct {
	I       int `toml:"i" yaml:"i"`
	J       int `toml:"j" yaml:"j"`
	K       int `toml:"k" yaml:"k"`
	Species int `toml:"species" yaml:"species"`
}

// CameraConfig places the camera on the +X axis at Distance from the grid centre.
type CameraConfig struct {
	Distance            float32 `toml:"distance" yaml:"distance"`
	ScrollSensitivity   float32 `toml:"scroll_sensitivity" yaml:"scroll_sensitivity"`
	RotationSensitivity float32 `toml:"rotation_sensitivity" yaml:"rotation_sensitivity"`
	PanSensitivity      float32 `toml:"pan_sensitivity" yaml:"pan_sensitivity"`
	RadiusMin           float32 `toml:"radius_min" yaml:"radius_min"`
	RadiusMax           float32 `toml:"radius_max" yaml:"radius_max"`
	FovDegrees          float32 `toml:"fov_degrees" yaml:"fov_degrees"`
}

type SimulationConfig struct {
	MaxTimestep float32 `toml:"max_timestep" yaml:"max_timestep"`
	Coefficient float32 `toml:"coefficient" yaml:"coefficient"`
	InsideScale float32 `toml:"inside_scale" yaml:"inside_scale"`
	Temperature float32 `toml:"temperature" yaml:"temperature"`
	// Seed fixes the initialization seed; 0 draws one at startup.
	Seed    uint32 `toml:"seed" yaml:"seed"`
	Workers int    `toml:"workers" yaml:"workers"`
}

type SnapshotConfig struct {
	Dir   string  `toml:"dir" yaml:"dir"`
	Every uint64  `toml:"every" yaml:"every"`
	Gamma float64 `toml:"gamma" yaml:"gamma"`
	Scale float64 `toml:"scale" yaml:"scale"`
}

type EngineConfig struct {
	Profiler bool `toml:"profiler" yaml:"profiler"`
	// FrameLimit stops the engine after this many frames; 0 runs until closed.
	FrameLimit uint64 `toml:"frame_limit" yaml:"frame_limit"`
	// FPSCap limits the render loop; 0 is uncapped.
	FPSCap float64 `toml:"fps_cap" yaml:"fps_cap"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - *Config: a fully populated config
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// applyDefaults fills every zero field with its default.
func (c *Config) applyDefaults() {
	c.Window.Title = common.Coalesce(c.Window.Title, "oxy-voxel")
	c.Window.Width = common.Coalesce(c.Window.Width, 800)
	c.Window.Height = common.Coalesce(c.Window.Height, 600)
	c.Window.PresentMode = common.Coalesce(strings.ToLower(c.Window.PresentMode), PresentVSync)

	c.Grid.I = common.Coalesce(c.Grid.I, 200)
	c.Grid.J = common.Coalesce(c.Grid.J, 200)
	c.Grid.K = common.Coalesce(c.Grid.K, 200)
	c.Grid.Species = common.Coalesce(c.Grid.Species, 1)

	c.Camera.Distance = common.Coalesce(c.Camera.Distance, 400)
	c.Camera.ScrollSensitivity = common.Coalesce(c.Camera.ScrollSensitivity, 2.0)
	c.Camera.RotationSensitivity = common.Coalesce(c.Camera.RotationSensitivity, 0.005)
	c.Camera.PanSensitivity = common.Coalesce(c.Camera.PanSensitivity, 1.0)
	c.Camera.RadiusMin = common.Coalesce(c.Camera.RadiusMin, 1)
	c.Camera.RadiusMax = common.Coalesce(c.Camera.RadiusMax, 500)
	c.Camera.FovDegrees = common.Coalesce(c.Camera.FovDegrees, 45)

	c.Simulation.MaxTimestep = common.Coalesce(c.Simulation.MaxTimestep, voxel.DefaultMaxStableTimestep)
	c.Simulation.Coefficient = common.Coalesce(c.Simulation.Coefficient, 1.0)
	c.Simulation.InsideScale = common.Coalesce(c.Simulation.InsideScale, 0.25)
	c.Simulation.Temperature = common.Coalesce(c.Simulation.Temperature, 300)
	c.Simulation.Workers = common.Coalesce(c.Simulation.Workers, runtime.NumCPU())

	c.Snapshot.Dir = common.Coalesce(c.Snapshot.Dir, "snapshots")
	c.Snapshot.Every = common.Coalesce(c.Snapshot.Every, 10)
	c.Snapshot.Gamma = common.Coalesce(c.Snapshot.Gamma, 1.0)
	c.Snapshot.Scale = common.Coalesce(c.Snapshot.Scale, 1.0)
}

// Validate reports the first invalid setting.
//
// Returns:
//   - error: an error wrapping ErrInvalid, or nil
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	}
	if c.Window.PresentMode != PresentVSync && c.Window.PresentMode != PresentUncapped {
		return fmt.Errorf("%w: present_mode %q, want %q or %q", ErrInvalid, c.Window.PresentMode, PresentVSync, PresentUncapped)
	}
	if _, err := c.Dims(); err != nil {
		return fmt.Errorf("%w: grid: %w", ErrInvalid, err)
	}
	if c.Grid.Species < 1 {
		return fmt.Errorf("%w: species %d", ErrInvalid, c.Grid.Species)
	}

	cam := c.Camera
	if !positive(cam.Distance) {
		return fmt.Errorf("%w: camera distance %v", ErrInvalid, cam.Distance)
	}
	if !positive(cam.RadiusMin) || !(cam.RadiusMax > cam.RadiusMin) {
		return fmt.Errorf("%w: radius bounds [%v, %v]", ErrInvalid, cam.RadiusMin, cam.RadiusMax)
	}
	if !positive(cam.ScrollSensitivity) || !positive(cam.RotationSensitivity) || !positive(cam.PanSensitivity) {
		return fmt.Errorf("%w: camera sensitivities must be positive", ErrInvalid)
	}
	if !positive(cam.FovDegrees) || cam.FovDegrees >= 180 {
		return fmt.Errorf("%w: fov_degrees %v", ErrInvalid, cam.FovDegrees)
	}

	sim := c.Simulation
	if !positive(sim.MaxTimestep) {
		return fmt.Errorf("%w: max_timestep %v", ErrInvalid, sim.MaxTimestep)
	}
	if sim.Coefficient < 0 || sim.InsideScale < 0 || !positive(sim.Temperature) {
		return fmt.Errorf("%w: coefficient %v, inside_scale %v, temperature %v", ErrInvalid, sim.Coefficient, sim.InsideScale, sim.Temperature)
	}
	if sim.Workers < 1 {
		return fmt.Errorf("%w: workers %d", ErrInvalid, sim.Workers)
	}

	if c.Snapshot.Gamma <= 0 || c.Snapshot.Scale <= 0 {
		return fmt.Errorf("%w: snapshot gamma %v, scale %v", ErrInvalid, c.Snapshot.Gamma, c.Snapshot.Scale)
	}
	if c.Engine.FPSCap < 0 {
		return fmt.Errorf("%w: fps_cap %v", ErrInvalid, c.Engine.FPSCap)
	}
	return nil
}

// Dims returns the grid extents.
//
// Returns:
//   - voxel.Dims3: the grid extents
//   - error: if any extent is not positive
func (c *Config) Dims() (voxel.Dims3, error) {
	return voxel.NewDims3(c.Grid.I, c.Grid.J, c.Grid.K)
}

// FormatFromPath picks the encoding from a file extension.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - Format: the encoding
//   - error: ErrUnknownFormat for any other extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// Load reads, defaults and validates the config at path.
//
// Parameters:
//   - path: a .toml, .yaml or .yml file
//
// Returns:
//   - *Config: the validated config
//   - error: if the file cannot be read, parsed or validated
func Load(path string) (*Config, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	c, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// Decode parses data in the given format, applies defaults and validates.
//
// Parameters:
//   - data: the encoded config
//   - format: FormatTOML or FormatYAML
//
// Returns:
//   - *Config: the validated config
//   - error: if data cannot be parsed or validated
func Decode(data []byte, format Format) (*Config, error) {
	c := &Config{}
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(c); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Encode writes the config in the given format.
//
// Parameters:
//   - w: the destination
//   - format: FormatTOML or FormatYAML
//
// Returns:
//   - error: if encoding fails or the format is unknown
func (c *Config) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(c)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func positive(v float32) bool {
	return v > 0 && !math.IsInf(float64(v), 1)
}
