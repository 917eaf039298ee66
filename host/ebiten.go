package host

import (
	"context"
	"fmt"

	"framedrive/driver"
	"framedrive/render"
	"framedrive/stats"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"
)

// EbitenConfig describes the desktop or browser window.
type EbitenConfig struct {
	Title     string
	Size      driver.Size
	Resizable bool
	Overlay   bool
	// Stats feeds the overlay and the copy key; nil hides both.
	Stats interface{ Snapshot() stats.Snapshot }
}

// Ebiten is an ebiten Game that hands each Draw to the frame driver.
// Layout, Update and Draw all run on ebiten's game goroutine.
type Ebiten struct {
	cfg     EbitenConfig
	log     *zap.Logger
	canvas  *render.Ebiten
	overlay *stats.Overlay

	window   driver.Size
	drawable driver.Size
	pending  func() error
	err      error
	ctx      context.Context
}

func NewEbiten(cfg EbitenConfig, log *zap.Logger) *Ebiten {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ebiten{
		cfg:      cfg,
		log:      log.Named("ebiten"),
		canvas:   render.NewEbiten(),
		overlay:  stats.NewOverlay(cfg.Overlay && cfg.Stats != nil),
		window:   cfg.Size,
		drawable: cfg.Size,
		ctx:      context.Background(),
	}
}

func (e *Ebiten) Surface() (driver.Surface, error) {
	if e.cfg.Size.W <= 0 || e.cfg.Size.H <= 0 {
		return nil, fmt.Errorf("window size %s", e.cfg.Size)
	}
	return e, nil
}

func (e *Ebiten) Canvas() render.Canvas {
	return e.canvas
}

func (e *Ebiten) Alert(msg string) {
	e.log.Error(msg)
	alert(msg)
}

func (e *Ebiten) Window() driver.Size   { return e.window }
func (e *Ebiten) Drawable() driver.Size { return e.drawable }

// Resize sets the drawable; ebiten picks it up on the next Layout.
func (e *Ebiten) Resize(s driver.Size) {
	e.drawable = s
}

func (e *Ebiten) RequestFrame(frame func() error) {
	e.pending = frame
}

// Run opens the window and blocks until it closes, ctx ends or a frame fails.
func (e *Ebiten) Run(ctx context.Context) error {
	e.ctx = ctx

	ebiten.SetWindowTitle(e.cfg.Title)
	ebiten.SetWindowSize(e.cfg.Size.W, e.cfg.Size.H)
	if e.cfg.Resizable {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	} else {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeDisabled)
	}
	// One Update and one Draw per display refresh, like requestAnimationFrame.
	ebiten.SetTPS(ebiten.SyncWithFPS)

	if err := ebiten.RunGameWithOptions(e, &ebiten.RunGameOptions{
		X11ClassName:    e.cfg.Title,
		X11InstanceName: "framedrive",
	}); err != nil {
		return err
	}
	return e.err
}

func (e *Ebiten) Layout(outsideWidth, outsideHeight int) (int, int) {
	e.window = deviceSize(outsideWidth, outsideHeight, ebiten.Monitor().DeviceScaleFactor())
	return e.drawable.W, e.drawable.H
}

func (e *Ebiten) Update() error {
	if e.err != nil {
		return e.err
	}
	if e.ctx.Err() != nil {
		return ebiten.Termination
	}

	if e.cfg.Stats == nil {
		return nil
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF3) {
		e.overlay.Toggle()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		snap := e.cfg.Stats.Snapshot().String()
		if err := copyText(snap); err != nil {
			e.log.Warn("copy stats", zap.Error(err))
		} else {
			e.log.Info("stats copied to clipboard", zap.String("stats", snap))
		}
	}
	return nil
}

func (e *Ebiten) Draw(screen *ebiten.Image) {
	e.canvas.Bind(screen)
	defer e.canvas.Bind(nil)

	if frame := e.pending; frame != nil && e.err == nil {
		e.pending = nil
		e.err = frame()
	}
	if e.cfg.Stats != nil {
		e.overlay.Draw(screen, e.cfg.Stats.Snapshot())
	}
}

// deviceSize converts ebiten's logical outside size to device pixels.
func deviceSize(w, h int, scale float64) driver.Size {
	if scale <= 0 {
		scale = 1
	}
	return driver.Size{W: int(float64(w) * scale), H: int(float64(h) * scale)}
}
