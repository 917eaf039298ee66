// Package stats measures the frame loop the way a browser FPS panel does:
// frames per second, frame time and process memory, refreshed once per
// window.
package stats

import (
	"fmt"
	"sync"
	"time"

	"framedrive/clock"
	"framedrive/driver"
)

// DefaultWindow is how often the figures refresh.
const DefaultWindow = time.Second

// Snapshot holds the figures of the last completed window plus running totals.
type Snapshot struct {
	FPS            float64   `json:"fps"`
	FrameMS        float64   `json:"frame_ms"`
	FrameMaxMS     float64   `json:"frame_max_ms"`
	StepsPerSecond float64   `json:"steps_per_second"`
	MemoryMB       float64   `json:"memory_mb"`
	Frames         uint64    `json:"frames"`
	Steps          uint64    `json:"steps"`
	DroppedSeconds float64   `json:"dropped_seconds"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	At             time.Time `json:"at"`
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%.1f FPS  %.2f ms (max %.2f)  %.0f steps/s  %.1f MB  %dx%d",
		s.FPS, s.FrameMS, s.FrameMaxMS, s.StepsPerSecond, s.MemoryMB, s.Width, s.Height)
}

// Meter is a driver.Observer. FrameBegin and FrameEnd come from the frame
// loop; Snapshot may be called from any goroutine.
type Meter struct {
	// Memory reports resident bytes; it is sampled once per window.
	Memory func() (uint64, error)

	mu     sync.Mutex
	clk    clock.Clock
	window time.Duration

	begin       time.Time
	windowStart time.Time
	frames      int
	steps       int
	busy        time.Duration
	busyMax     time.Duration

	snap Snapshot
}

var _ driver.Observer = (*Meter)(nil)

func NewMeter(clk clock.Clock, window time.Duration) *Meter {
	if clk == nil {
		clk = clock.Real()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Meter{
		Memory:      ProcessMemory,
		clk:         clk,
		window:      window,
		windowStart: clk.Now(),
	}
}

func (m *Meter) FrameBegin() {
	now := m.clk.Now()
	m.mu.Lock()
	m.begin = now
	m.mu.Unlock()
}

func (m *Meter) FrameEnd(r driver.FrameReport) {
	now := m.clk.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	begin := m.begin
	m.begin = time.Time{}
	// A failed frame is the last one; it does not count.
	if r.Err != nil {
		return
	}

	if d := now.Sub(begin); d > 0 && !begin.IsZero() {
		m.busy += d
		if d > m.busyMax {
			m.busyMax = d
		}
	}
	m.frames++
	m.steps += r.Steps
	m.snap.Frames++
	m.snap.Steps += uint64(r.Steps)
	m.snap.DroppedSeconds += r.Dropped
	m.snap.Width, m.snap.Height = r.Size.W, r.Size.H

	span := now.Sub(m.windowStart)
	if span < m.window {
		return
	}
	secs := span.Seconds()
	m.snap.FPS = float64(m.frames) / secs
	m.snap.StepsPerSecond = float64(m.steps) / secs
	m.snap.FrameMS = float64(m.busy) / float64(m.frames) / float64(time.Millisecond)
	m.snap.FrameMaxMS = float64(m.busyMax) / float64(time.Millisecond)
	if m.Memory != nil {
		if b, err := m.Memory(); err == nil {
			m.snap.MemoryMB = float64(b) / (1 << 20)
		}
	}
	m.snap.At = now

	m.windowStart = now
	m.frames, m.steps = 0, 0
	m.busy, m.busyMax = 0, 0
}

func (m *Meter) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}
