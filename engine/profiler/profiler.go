package profiler

import (
	"log"
	"runtime"
	"time"
)

// FrameSample is what the engine reports about one simulation frame.
type FrameSample struct {
	// Skipped is true when the bounding box was empty and no raymarch ran.
	Skipped bool
	// Failed is true when any stage returned an error.
	Failed bool
	// RaymarchGroups is the number of raymarch workgroups dispatched.
	RaymarchGroups uint32
	// SimTime is the accumulated simulation time after the frame.
	SimTime float32
}

// Stats is one reporting interval's summary.
type Stats struct {
	FPS             float64
	Frames          int
	Skipped         int
	Failed          int
	AvgRaymarchWork float64
	SimTime         float32
	HeapMB          float64
	AllocRateMB     float64
	GCCount         uint32
	LastPauseUs     uint64
	MaxPauseUs      uint64
	SysMB           float64
}

// Profiler tracks frame rate, dispatch work and memory statistics.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	skipped        int
	failed         int
	raymarchGroups uint64
	simTime        float32

	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	now func() time.Time
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
		now:            time.Now,
	}
}

// SetInterval changes how often stats are logged. Non-positive values are ignored.
//
// Parameters:
//   - d: the reporting interval
func (p *Profiler) SetInterval(d time.Duration) {
	if d > 0 {
		p.updateInterval = d
	}
}

// Tick should be called once per frame with that frame's sample.
// Logs performance statistics when the update interval has elapsed.
//
// Parameters:
//   - sample: the frame's dispatch summary
//
// Returns:
//   - Stats: the interval summary, valid only when the bool is true
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(sample FrameSample) (Stats, bool) {
	p.frameCount++
	if sample.Skipped {
		p.skipped++
	}
	if sample.Failed {
		p.failed++
	}
	p.raymarchGroups += uint64(sample.RaymarchGroups)
	p.simTime = sample.SimTime

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return Stats{}, false
	}

	stats := p.collect(elapsed)
	log.Printf("[Profiler] FPS: %.2f | Skipped: %d | Failed: %d | Raymarch groups/frame: %.1f | Sim time: %.2fs | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		stats.FPS, stats.Skipped, stats.Failed, stats.AvgRaymarchWork, stats.SimTime, stats.HeapMB, stats.AllocRateMB, stats.GCCount, stats.LastPauseUs, stats.MaxPauseUs, stats.SysMB)

	p.frameCount = 0
	p.skipped = 0
	p.failed = 0
	p.raymarchGroups = 0
	p.lastTime = currentTime
	p.lastGCCount = stats.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return stats, true
}

// collect reads memory statistics and summarizes the interval.
func (p *Profiler) collect(elapsed time.Duration) Stats {
	runtime.ReadMemStats(&p.memStats)

	stats := Stats{
		FPS:             float64(p.frameCount) / elapsed.Seconds(),
		Frames:          p.frameCount,
		Skipped:         p.skipped,
		Failed:          p.failed,
		AvgRaymarchWork: float64(p.raymarchGroups) / float64(p.frameCount),
		SimTime:         p.simTime,
		HeapMB:          float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:           float64(p.memStats.Sys) / 1024 / 1024,
		GCCount:         p.memStats.NumGC,
	}
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	stats.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	if gcCount := p.memStats.NumGC; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses
		stats.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			stats.MaxPauseUs = max(stats.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}
	return stats
}
