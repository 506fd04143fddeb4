package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-voxel/engine/camera"
	"github.com/Carmen-Shannon/oxy-voxel/engine/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tomlConfig = `
[window]
title = "micelles"
width = 1024
height = 768
present_mode = "uncapped"
lock_aspect = true

[grid]
i = 64
j = 32
k = 16
species = 2

[camera]
distance = 250
scroll_sensitivity = 4

[simulation]
max_timestep = 0.05
coefficient = 0.5
seed = 99
workers = 3

[snapshot]
dir = "out"
every = 5

[engine]
profiler = true
frame_limit = 120
`

const yamlConfig = `
window:
  title: micelles
  width: 1024
  height: 768
  present_mode: uncapped
  lock_aspect: true
grid:
  i: 64
  j: 32
  k: 16
  species: 2
camera:
  distance: 250
  scroll_sensitivity: 4
simulation:
  max_timestep: 0.05
  coefficient: 0.5
  seed: 99
  workers: 3
snapshot:
  dir: out
  every: 5
engine:
  profiler: true
  frame_limit: 120
`

func TestDefaults(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	assert.Equal(t, "oxy-voxel", c.Window.Title)
	assert.Equal(t, 800, c.Window.Width)
	assert.Equal(t, 600, c.Window.Height)
	assert.Equal(t, PresentVSync, c.Window.PresentMode)
	assert.Equal(t, GridConfig{I: 200, J: 200, K: 200, Species: 1}, c.Grid)
	assert.Equal(t, float32(400), c.Camera.Distance)
	assert.Equal(t, float32(2), c.Camera.ScrollSensitivity)
	assert.Equal(t, float32(0.005), c.Camera.RotationSensitivity)
	assert.Equal(t, float32(1), c.Camera.RadiusMin)
	assert.Equal(t, float32(500), c.Camera.RadiusMax)
	assert.InDelta(t, 1.0/6, c.Simulation.MaxTimestep, 1e-6)
	assert.Equal(t, float32(300), c.Simulation.Temperature)
	assert.GreaterOrEqual(t, c.Simulation.Workers, 1)
	assert.Equal(t, uint64(10), c.Snapshot.Every)
	assert.False(t, c.Engine.Profiler)
}

func TestTOMLAndYAMLAgree(t *testing.T) {
	fromTOML, err := Decode([]byte(tomlConfig), FormatTOML)
	require.NoError(t, err)
	fromYAML, err := Decode([]byte(yamlConfig), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, fromTOML, fromYAML)
	assert.Equal(t, "micelles", fromTOML.Window.Title)
	assert.Equal(t, PresentUncapped, fromTOML.Window.PresentMode)
	assert.True(t, fromTOML.Window.LockAspect)
	assert.Equal(t, GridConfig{I: 64, J: 32, K: 16, Species: 2}, fromTOML.Grid)
	assert.Equal(t, uint32(99), fromTOML.Simulation.Seed)
	assert.Equal(t, 3, fromTOML.Simulation.Workers)
	assert.Equal(t, uint64(120), fromTOML.Engine.FrameLimit)

	// unset keys fall back to defaults
	assert.Equal(t, float32(1), fromTOML.Camera.PanSensitivity)
	assert.Equal(t, float32(45), fromTOML.Camera.FovDegrees)
	assert.Equal(t, 1.0, fromTOML.Snapshot.Gamma)
}

func TestEncodedDefaultsLoadBack(t *testing.T) {
	dir := t.TempDir()
	for _, format := range []Format{FormatTOML, FormatYAML} {
		var buf bytes.Buffer
		require.NoError(t, Default().Encode(&buf, format))

		path := filepath.Join(dir, "voxel."+string(format))
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
		c, err := Load(path)
		require.NoError(t, err, string(format))
		assert.Equal(t, Default(), c, string(format))
	}
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":      "[grid]\nsize = 3\n",
		"negative grid":    "[grid]\ni = -1\n",
		"inverted radius":  "[camera]\nradius_min = 10\nradius_max = 5\n",
		"bad present mode": "[window]\npresent_mode = \"mailbox\"\n",
		"negative dt":      "[simulation]\nmax_timestep = -0.1\n",
		"wide fov":         "[camera]\nfov_degrees = 190\n",
		"malformed":        "[grid\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(doc), FormatTOML)
			assert.Error(t, err)
		})
	}

	_, err := Decode([]byte("[grid]\ni = 0\nj = -3\n"), FormatTOML)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("a/b.TOML")
	require.NoError(t, err)
	assert.Equal(t, FormatTOML, f)

	f, err = FormatFromPath("c.yml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = FormatFromPath("c.json")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	_, err = Load("missing.ini")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.ErrorIs(t, Default().Encode(&bytes.Buffer{}, "ini"), ErrUnknownFormat)
}

type nopStage struct{}

func (nopStage) Initialize(simulation.FrameParams) error { return nil }
func (nopStage) Diffuse(simulation.FrameParams) error    { return nil }
func (nopStage) Raymarch(simulation.FrameParams) error   { return nil }

func newTestSimulation(t *testing.T, c *Config) simulation.Simulation {
	t.Helper()
	dims, err := c.Dims()
	require.NoError(t, err)
	sim, err := simulation.NewSimulation(camera.NewCamera(c.CameraOptions()...), dims, nopStage{}, c.SimulationOptions()...)
	require.NoError(t, err)
	return sim
}

func TestOptionsBuildComponents(t *testing.T) {
	c, err := Decode([]byte(tomlConfig), FormatTOML)
	require.NoError(t, err)
	sim := newTestSimulation(t, c)

	assert.Equal(t, 2, sim.Species())
	assert.InDelta(t, 0.05, sim.MaxTimestep(), 1e-6)
	assert.InDelta(t, 250, sim.Camera().Radius(), 1e-3)
	w, h := sim.Camera().Viewport()
	assert.Equal(t, [2]int{1024, 768}, [2]int{w, h})

	report, err := sim.Frame(0.01)
	require.NoError(t, err)
	assert.Equal(t, uint32(99), report.Plan.Seed)

	assert.Len(t, c.FieldOptions(nil), 5)
	assert.Empty(t, Default().PlannerOptions())
}

func TestApplyTunesRunningSimulation(t *testing.T) {
	sim := newTestSimulation(t, Default())

	c := Default()
	c.Camera.ScrollSensitivity = 5
	c.Simulation.MaxTimestep = 0.02
	require.NoError(t, c.Apply(sim))

	assert.InDelta(t, 0.02, sim.MaxTimestep(), 1e-6)
	sim.Apply(camera.Zoom{Delta: -1})
	assert.InDelta(t, 395, sim.Camera().Radius(), 1e-3)

	c.Simulation.MaxTimestep = -1
	assert.Error(t, c.Apply(sim))
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voxel.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlConfig), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	reloads := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { reloads <- c })
	}()

	edited := []byte("[camera]\nscroll_sensitivity = 7\n")
	var got *Config
	require.Eventually(t, func() bool {
		require.NoError(t, os.WriteFile(path, edited, 0o644))
		select {
		case got = <-reloads:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, float32(7), got.Camera.ScrollSensitivity)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchRejectsUnknownFormat(t *testing.T) {
	err := Watch(context.Background(), "voxel.ini", func(*Config) {})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestExampleConfigsLoad(t *testing.T) {
	for _, name := range []string{"micelles.toml", "headless.yaml"} {
		c, err := Load(filepath.Join("..", "..", "examples", name))
		require.NoError(t, err, name)
		assert.NotZero(t, c.Grid.I, name)
	}
}
