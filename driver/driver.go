// Package driver runs a simulation at a fixed step rate inside a host's
// per-frame callback.
//
// Each host frame the driver samples the clock, adds the elapsed time to an
// accumulator and drains it in whole steps before rendering once. The
// display rate is whatever the host delivers; the simulation rate is fixed
// for the lifetime of the driver.
package driver

import (
	"errors"
	"fmt"
	"math"
	"time"

	"framedrive/clock"

	"go.uber.org/zap"
)

const (
	// DefaultStepRate is the number of simulation steps per second.
	DefaultStepRate = 120

	// DefaultMaxFrameTime bounds how much wall-clock time one frame may feed
	// into the accumulator.
	DefaultMaxFrameTime = 250 * time.Millisecond
)

var (
	ErrInvalidStepRate  = errors.New("step rate must be a positive finite number")
	ErrInvalidFrameTime = errors.New("max frame time must not be negative")
	ErrNoSimulation     = errors.New("no simulation handle")
	ErrNoSurface        = errors.New("no surface")
	ErrNotStarted       = errors.New("driver not started")
	ErrAlreadyStarted   = errors.New("driver already started")
)

// Size is a viewport size in device pixels.
type Size struct {
	W int
	H int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}

// Simulation is the opaque update/render capability the driver steps.
type Simulation interface {
	Advance(dt float64, width, height int) error
	Render() error
}

// Surface is the host's rendering surface.
type Surface interface {
	// Window is the current host window size.
	Window() Size
	// Drawable is the size last applied to the surface.
	Drawable() Size
	// Resize applies a new drawable size and reconfigures the backend for it.
	Resize(size Size)
}

// Scheduler is the host's request-next-frame primitive. The host calls
// frame once on its next display refresh; a non-nil error ends the host loop.
type Scheduler interface {
	RequestFrame(frame func() error)
}

// Observer is told about every completed frame.
type Observer interface {
	FrameBegin()
	FrameEnd(report FrameReport)
}

// FrameReport describes one completed frame.
type FrameReport struct {
	Frame uint64
	// Elapsed is the wall-clock time measured for this frame, in seconds,
	// before any clamping.
	Elapsed float64
	// Dropped is the part of Elapsed discarded by the frame time clamp.
	Dropped float64
	Steps   int
	Resized bool
	Size    Size
	// Accumulator is the unconsumed time carried into the next frame.
	Accumulator float64
	// Err is set when Advance or Render failed and the frame was cut short.
	Err error
}

// Stats are running totals over the driver's lifetime.
type Stats struct {
	Frames  uint64
	Steps   uint64
	Resizes uint64
	Dropped time.Duration
}

// Config holds the optional collaborators of a Driver.
type Config struct {
	// MaxFrameTime clamps the elapsed time of a single frame. Zero disables
	// the clamp, so a long suspension is caught up in full on the next frame.
	MaxFrameTime time.Duration
	Clock        clock.Clock
	Observer     Observer
	Logger       *zap.Logger
}

// clockState keeps the accumulator as elapsed nanoseconds multiplied by the
// step rate, so one step costs exactly stepCost. With an integral step rate
// every value is an integer well inside float64's exact range.
type clockState struct {
	lastSample time.Time
	scaled     float64
}

const stepCost = float64(time.Second)

// Driver is the fixed-timestep frame driver. It is not safe for concurrent
// use; the host calls it from one frame callback at a time.
type Driver struct {
	sim      Simulation
	viewport *viewport
	clk      clock.Clock
	observer Observer
	log      *zap.Logger
	maxFrame time.Duration

	rate    float64
	dt      float64
	state   clockState
	started bool
	sched   Scheduler
	stats   Stats
}

// New checks the collaborators and returns a driver that still needs Start.
func New(sim Simulation, surface Surface, cfg Config) (*Driver, error) {
	if sim == nil {
		return nil, ErrNoSimulation
	}
	if surface == nil {
		return nil, ErrNoSurface
	}
	if cfg.MaxFrameTime < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFrameTime, cfg.MaxFrameTime)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Driver{
		sim:      sim,
		viewport: newViewport(surface),
		clk:      cfg.Clock,
		observer: cfg.Observer,
		log:      cfg.Logger.Named("driver"),
		maxFrame: cfg.MaxFrameTime,
	}, nil
}

// Start fixes the step duration at 1/stepRate seconds and resets the clock
// state. The step rate cannot be changed afterwards.
func (d *Driver) Start(stepRate float64) error {
	if d.started {
		return ErrAlreadyStarted
	}
	if stepRate <= 0 || math.IsNaN(stepRate) || math.IsInf(stepRate, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidStepRate, stepRate)
	}
	d.rate = stepRate
	d.dt = 1 / stepRate
	d.state = clockState{lastSample: d.clk.Now()}
	d.started = true
	d.log.Info("driver started",
		zap.Float64("step_rate", stepRate),
		zap.Float64("dt", d.dt),
		zap.Duration("max_frame_time", d.maxFrame),
	)
	return nil
}

// StepDuration returns dt in seconds, or 0 before Start.
func (d *Driver) StepDuration() float64 {
	return d.dt
}

// Accumulator returns the time carried into the next frame, in seconds.
func (d *Driver) Accumulator() float64 {
	return d.accumulator()
}

func (d *Driver) accumulator() float64 {
	if d.rate == 0 {
		return 0
	}
	return d.state.scaled / stepCost / d.rate
}

// LastSample returns the clock sample taken by the most recent frame.
func (d *Driver) LastSample() time.Time {
	return d.state.lastSample
}

// Stats returns totals over the frames that completed.
func (d *Driver) Stats() Stats {
	return d.stats
}

// RunLoop registers the first frame with s; every frame then registers the
// next. There is no stop: the loop ends when the host stops calling back or
// a frame fails.
func (d *Driver) RunLoop(s Scheduler) error {
	if !d.started {
		return ErrNotStarted
	}
	d.sched = s
	d.log.Info("begin rendering")
	s.RequestFrame(d.OnFrame)
	return nil
}

// OnFrame is the host frame callback: it runs one frame and, when it
// succeeds, registers itself for the next one.
func (d *Driver) OnFrame() error {
	if _, err := d.Frame(); err != nil {
		d.log.Error("frame failed", zap.Uint64("frame", d.stats.Frames+1), zap.Error(err))
		return err
	}
	if d.sched != nil {
		d.sched.RequestFrame(d.OnFrame)
	}
	return nil
}

// Frame runs every pending fixed step, applies a viewport change if there is
// one and renders exactly once, in that order. The observer hears about the
// frame even when it fails part way.
func (d *Driver) Frame() (FrameReport, error) {
	if !d.started {
		return FrameReport{}, ErrNotStarted
	}
	if d.observer != nil {
		d.observer.FrameBegin()
	}

	report := FrameReport{Frame: d.stats.Frames + 1}
	report.Err = d.frame(&report)
	report.Accumulator = d.accumulator()

	if report.Err == nil {
		d.stats.Frames++
		d.stats.Steps += uint64(report.Steps)
		d.stats.Dropped += time.Duration(report.Dropped * float64(time.Second))
		if report.Resized {
			d.stats.Resizes++
		}
	}
	if d.observer != nil {
		d.observer.FrameEnd(report)
	}
	return report, report.Err
}

func (d *Driver) frame(report *FrameReport) error {
	// A sample behind the last one counts as no time at all.
	var elapsed time.Duration
	now := d.clk.Now()
	if now.After(d.state.lastSample) {
		elapsed = now.Sub(d.state.lastSample)
		d.state.lastSample = now
	}
	report.Elapsed = elapsed.Seconds()

	if d.maxFrame > 0 && elapsed > d.maxFrame {
		report.Dropped = (elapsed - d.maxFrame).Seconds()
		elapsed = d.maxFrame
		d.log.Debug("frame time clamped",
			zap.Float64("elapsed", report.Elapsed),
			zap.Float64("dropped", report.Dropped),
		)
	}
	d.state.scaled += float64(elapsed) * d.rate

	for d.state.scaled >= stepCost {
		size := d.viewport.window()
		if err := d.sim.Advance(d.dt, size.W, size.H); err != nil {
			return fmt.Errorf("advance: %w", err)
		}
		d.state.scaled -= stepCost
		report.Steps++
	}

	report.Size, report.Resized = d.viewport.sync()
	if report.Resized {
		d.log.Debug("viewport resized", zap.Stringer("size", report.Size))
	}

	if err := d.sim.Render(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}
