package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickReportsAfterInterval(t *testing.T) {
	start := time.Unix(1000, 0)
	clock := start
	p := NewProfiler()
	p.now = func() time.Time { return clock }
	p.lastTime = start

	clock = start.Add(250 * time.Millisecond)
	_, logged := p.Tick(FrameSample{RaymarchGroups: 100, SimTime: 0.1})
	assert.False(t, logged)

	clock = start.Add(500 * time.Millisecond)
	_, logged = p.Tick(FrameSample{Skipped: true, SimTime: 0.2})
	assert.False(t, logged)

	clock = start.Add(time.Second)
	stats, logged := p.Tick(FrameSample{Failed: true, RaymarchGroups: 200, SimTime: 0.3})
	require.True(t, logged)

	assert.Equal(t, 3, stats.Frames)
	assert.InDelta(t, 3.0, stats.FPS, 1e-9)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Failed)
	assert.InDelta(t, 100.0, stats.AvgRaymarchWork, 1e-9)
	assert.InDelta(t, 0.3, stats.SimTime, 1e-6)
	assert.Greater(t, stats.SysMB, 0.0)
}

func TestTickResetsCounters(t *testing.T) {
	start := time.Unix(0, 0)
	clock := start
	p := NewProfiler()
	p.now = func() time.Time { return clock }
	p.lastTime = start
	p.SetInterval(100 * time.Millisecond)
	p.SetInterval(0)

	clock = start.Add(100 * time.Millisecond)
	_, logged := p.Tick(FrameSample{Skipped: true})
	require.True(t, logged)

	clock = start.Add(300 * time.Millisecond)
	stats, logged := p.Tick(FrameSample{})
	require.True(t, logged)
	assert.Equal(t, 1, stats.Frames)
	assert.Equal(t, 0, stats.Skipped)
	assert.InDelta(t, 5.0, stats.FPS, 1e-9)
}
