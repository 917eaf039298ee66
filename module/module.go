// Package module runs a client module: a script defining update(dt, width,
// height) and draw(), executed in an embedded JavaScript runtime.
//
// Inside the script the host provides log(...) and a canvas object with
// clear(rgba), fillRect(bottom, top, left, right, rgba) and
// fillGradient(bottom, top, left, right, colors). rgba is an array of four
// numbers in [0, 1]; colors holds sixteen, one rgba per corner in the order
// top-left, bottom-left, top-right, bottom-right.
package module

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"framedrive/render"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// DefaultTimeout bounds how long compiling and initialising a module may take.
const DefaultTimeout = 10 * time.Second

var ErrLoad = errors.New("module load failed")

type Options struct {
	Canvas  render.Canvas
	Logger  *zap.Logger
	Timeout time.Duration
}

// Result is what LoadAsync resolves to.
type Result struct {
	Client *Client
	Err    error
}

// LoadAsync loads src on its own goroutine. The channel receives exactly
// one Result and is then closed.
func LoadAsync(ctx context.Context, src Source, opts Options) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		c, err := Load(ctx, src, opts)
		ch <- Result{Client: c, Err: err}
	}()
	return ch
}

// Load compiles src, checks that it defines update and draw, and calls its
// init function if it has one. Errors wrap ErrLoad.
func Load(ctx context.Context, src Source, opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Canvas == nil {
		opts.Canvas = render.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, src.Name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	c := &Client{
		vm:     goja.New(),
		name:   src.Name,
		canvas: opts.Canvas,
		log:    opts.Logger.Named("module").With(zap.String("module", src.Name)),
	}
	if err := c.bind(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, src.Name, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- c.compile(src)
	}()

	select {
	case <-ctx.Done():
		c.vm.Interrupt("timeout")
		<-done
		return nil, fmt.Errorf("%w: %s timed out: %w", ErrLoad, src.Name, ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoad, src.Name, err)
		}
	}

	c.log.Info("module loaded", zap.Int("bytes", len(src.Code)))
	return c, nil
}

// Client is a loaded module. It is the simulation handle the frame driver
// steps and is not safe for concurrent use.
type Client struct {
	vm     *goja.Runtime
	name   string
	update goja.Callable
	draw   goja.Callable
	canvas render.Canvas
	log    *zap.Logger
}

func (c *Client) Name() string {
	return c.name
}

// Advance runs one update(dt, width, height) step.
func (c *Client) Advance(dt float64, width, height int) error {
	if _, err := c.update(goja.Undefined(), c.vm.ToValue(dt), c.vm.ToValue(width), c.vm.ToValue(height)); err != nil {
		return fmt.Errorf("%s: update: %w", c.name, err)
	}
	return nil
}

// Render runs draw(), which paints on the canvas.
func (c *Client) Render() error {
	if _, err := c.draw(goja.Undefined()); err != nil {
		return fmt.Errorf("%s: draw: %w", c.name, err)
	}
	return nil
}

func (c *Client) compile(src Source) error {
	prog, err := goja.Compile(src.Name, string(src.Code), false)
	if err != nil {
		return err
	}
	if _, err := c.vm.RunProgram(prog); err != nil {
		return err
	}

	var ok bool
	if c.update, ok = goja.AssertFunction(c.vm.Get("update")); !ok {
		return errors.New("module does not define update(dt, width, height)")
	}
	if c.draw, ok = goja.AssertFunction(c.vm.Get("draw")); !ok {
		return errors.New("module does not define draw()")
	}

	if initFn, ok := goja.AssertFunction(c.vm.Get("init")); ok {
		if _, err := initFn(goja.Undefined()); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}
	return nil
}

func (c *Client) bind() error {
	if err := c.vm.Set("log", c.jsLog); err != nil {
		return err
	}

	canvas := c.vm.NewObject()
	for name, fn := range map[string]func(goja.FunctionCall) goja.Value{
		"clear":        c.jsClear,
		"fillRect":     c.jsFillRect,
		"fillGradient": c.jsFillGradient,
	} {
		if err := canvas.Set(name, fn); err != nil {
			return err
		}
	}
	return c.vm.Set("canvas", canvas)
}

func (c *Client) jsLog(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, arg := range call.Arguments {
		parts[i] = arg.String()
	}
	c.log.Info(strings.Join(parts, " "))
	return goja.Undefined()
}

func (c *Client) jsClear(call goja.FunctionCall) goja.Value {
	c.canvas.Clear(c.colors(call.Argument(0), 1)[0])
	return goja.Undefined()
}

func (c *Client) jsFillRect(call goja.FunctionCall) goja.Value {
	c.canvas.FillRect(c.rect(call), c.colors(call.Argument(4), 1)[0])
	return goja.Undefined()
}

func (c *Client) jsFillGradient(call goja.FunctionCall) goja.Value {
	var corners [4]render.Color
	copy(corners[:], c.colors(call.Argument(4), 4))
	c.canvas.FillGradient(c.rect(call), corners)
	return goja.Undefined()
}

func (c *Client) rect(call goja.FunctionCall) render.Rect {
	return render.Rect{
		Bottom: call.Argument(0).ToFloat(),
		Top:    call.Argument(1).ToFloat(),
		Left:   call.Argument(2).ToFloat(),
		Right:  call.Argument(3).ToFloat(),
	}
}

// colors reads n rgba quadruples from a flat array. A malformed array
// throws a TypeError inside the script.
func (c *Client) colors(v goja.Value, n int) []render.Color {
	var fs []float64
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) || c.vm.ExportTo(v, &fs) != nil || len(fs) != 4*n {
		panic(c.vm.NewTypeError(fmt.Sprintf("expected an array of %d numbers", 4*n)))
	}
	out := make([]render.Color, n)
	for i := range out {
		out[i] = render.Color{R: fs[4*i], G: fs[4*i+1], B: fs[4*i+2], A: fs[4*i+3]}
	}
	return out
}
