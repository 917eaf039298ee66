package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"framedrive/clock"
	"framedrive/driver"
	"framedrive/render"

	"go.uber.org/zap"
)

// HeadlessConfig describes a windowless run.
type HeadlessConfig struct {
	Size driver.Size
	Hz   int
	// Frames stops the run after this many frames; 0 runs until the
	// context ends.
	Frames uint64
	// Clock, when set, is advanced by one frame period before each frame and
	// frames run back to back without waiting for a ticker.
	Clock *clock.Fake
	// BeforeFrame is called with the frame number before each frame runs.
	BeforeFrame func(frame uint64, h *Headless)
}

// Headless drives frames from a ticker and records the draw calls.
type Headless struct {
	cfg      HeadlessConfig
	log      *zap.Logger
	recorder *render.Recorder
	window   driver.Size
	drawable driver.Size
	pending  func() error
	frames   uint64
	alerts   []string
}

func NewHeadless(cfg HeadlessConfig, log *zap.Logger) *Headless {
	if log == nil {
		log = zap.NewNop()
	}
	return &Headless{
		cfg:      cfg,
		log:      log.Named("headless"),
		recorder: &render.Recorder{},
		window:   cfg.Size,
		drawable: cfg.Size,
	}
}

func (h *Headless) Surface() (driver.Surface, error) {
	if h.cfg.Size.W <= 0 || h.cfg.Size.H <= 0 {
		return nil, fmt.Errorf("headless surface %s", h.cfg.Size)
	}
	return h, nil
}

func (h *Headless) Canvas() render.Canvas {
	return h.recorder
}

func (h *Headless) Recorder() *render.Recorder {
	return h.recorder
}

func (h *Headless) Alert(msg string) {
	h.alerts = append(h.alerts, msg)
	h.log.Error(msg)
}

// Alerts returns every message passed to Alert.
func (h *Headless) Alerts() []string {
	return h.alerts
}

func (h *Headless) Window() driver.Size   { return h.window }
func (h *Headless) Drawable() driver.Size { return h.drawable }
func (h *Headless) Resize(s driver.Size)  { h.drawable = s }

// SetWindow changes the simulated host window, as a user resizing it would.
func (h *Headless) SetWindow(s driver.Size) {
	h.window = s
}

func (h *Headless) RequestFrame(frame func() error) {
	h.pending = frame
}

// Frames counts the frames run so far.
func (h *Headless) Frames() uint64 {
	return h.frames
}

// Run dispatches requested frames until the frame budget is spent, the
// context ends, or nobody requests another frame.
func (h *Headless) Run(ctx context.Context) error {
	if h.cfg.Hz <= 0 {
		return errors.New("headless hz must be positive")
	}
	period := time.Second / time.Duration(h.cfg.Hz)

	var tick <-chan time.Time
	if h.cfg.Clock == nil {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		tick = ticker.C
	}

	h.log.Info("headless run", zap.Stringer("size", h.cfg.Size), zap.Int("hz", h.cfg.Hz), zap.Uint64("frames", h.cfg.Frames))
	for {
		if h.cfg.Frames > 0 && h.frames >= h.cfg.Frames {
			return nil
		}
		frame := h.pending
		if frame == nil {
			return nil
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else {
			if ctx.Err() != nil {
				return nil
			}
			h.cfg.Clock.Advance(period)
		}

		if h.cfg.BeforeFrame != nil {
			h.cfg.BeforeFrame(h.frames+1, h)
		}
		h.pending = nil
		h.recorder.Reset()
		if err := frame(); err != nil {
			return err
		}
		h.frames++
	}
}
