// Package boot brings the client up in order: start loading the module,
// make sure the surface exists, wait for the module, then hand the loop to
// the frame driver.
package boot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"framedrive/clock"
	"framedrive/driver"
	"framedrive/logger"
	"framedrive/module"
	"framedrive/render"

	"go.uber.org/zap"
)

var (
	ErrSurfaceUnavailable = errors.New("rendering surface unavailable")
	ErrModuleUnavailable  = errors.New("client module unavailable")
)

// Host is a window (or stand-in) that can schedule frames.
type Host interface {
	driver.Scheduler
	Surface() (driver.Surface, error)
	Canvas() render.Canvas
	// Alert tells the user something fatal happened before the loop started.
	Alert(msg string)
	// Run blocks for the lifetime of the host loop.
	Run(ctx context.Context) error
}

// Options are the knobs of one run.
type Options struct {
	Source        module.Source
	StepRate      float64
	MaxFrameTime  time.Duration
	ModuleTimeout time.Duration
	Clock         clock.Clock
	Observer      driver.Observer
	Logger        *zap.Logger
}

// Run starts the client on h and blocks until the host loop ends.
func Run(ctx context.Context, h Host, opts Options) error {
	d, err := Start(ctx, h, opts)
	if err != nil {
		return err
	}
	if err := d.RunLoop(h); err != nil {
		return err
	}
	return h.Run(ctx)
}

// Start does everything Run does short of running the host loop and
// returns the started driver.
func Start(ctx context.Context, h Host, opts Options) (*driver.Driver, error) {
	log := logger.OrNop(opts.Logger)

	// The module compiles while the surface is checked.
	pending := module.LoadAsync(ctx, opts.Source, module.Options{
		Canvas:  h.Canvas(),
		Logger:  log,
		Timeout: opts.ModuleTimeout,
	})

	surface, err := h.Surface()
	if err != nil {
		h.Alert("couldn't initialize the rendering surface")
		return nil, fmt.Errorf("%w: %w", ErrSurfaceUnavailable, err)
	}

	var res module.Result
	select {
	case res = <-pending:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrModuleUnavailable, ctx.Err())
	}
	if res.Err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModuleUnavailable, res.Err)
	}

	d, err := driver.New(res.Client, surface, driver.Config{
		MaxFrameTime: opts.MaxFrameTime,
		Clock:        opts.Clock,
		Observer:     opts.Observer,
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}
	if err := d.Start(opts.StepRate); err != nil {
		return nil, err
	}
	return d, nil
}
