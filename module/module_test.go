package module

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"framedrive/render"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const counterModule = `
var steps = 0, inits = 0, lastDt = 0, lastW = 0, lastH = 0;
function init() { inits++; log("initialize", "client"); }
function update(dt, w, h) { steps++; lastDt = dt; lastW = w; lastH = h; }
function draw() {
  canvas.clear([0, 0, 0, 1]);
  canvas.fillRect(10, 20, 30, 40, [0, 0.5, 0.25, 1]);
  canvas.fillGradient(0, 100, 0, 200, [
    1, 0, 0, 1,
    0, 1, 0, 1,
    0, 0, 1, 1,
    1, 1, 1, 1,
  ]);
}
`

func src(code string) Source {
	return Source{Name: "test.js", Code: []byte(code)}
}

func TestLoadRunsInitOnce(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	c, err := Load(context.Background(), src(counterModule), Options{Logger: zap.New(core)})
	require.NoError(t, err)

	require.Equal(t, int64(1), c.vm.Get("inits").ToInteger())
	require.Equal(t, 1, logs.FilterMessage("initialize client").Len())
	require.Equal(t, "test.js", c.Name())
}

func TestAdvancePassesStepAndViewport(t *testing.T) {
	c, err := Load(context.Background(), src(counterModule), Options{})
	require.NoError(t, err)

	require.NoError(t, c.Advance(1.0/120, 1024, 768))
	require.NoError(t, c.Advance(1.0/120, 1024, 768))

	require.Equal(t, int64(2), c.vm.Get("steps").ToInteger())
	require.InDelta(t, 1.0/120, c.vm.Get("lastDt").ToFloat(), 1e-12)
	require.Equal(t, int64(1024), c.vm.Get("lastW").ToInteger())
	require.Equal(t, int64(768), c.vm.Get("lastH").ToInteger())
}

func TestRenderDrawsOnCanvas(t *testing.T) {
	rec := &render.Recorder{}
	c, err := Load(context.Background(), src(counterModule), Options{Canvas: rec})
	require.NoError(t, err)

	require.NoError(t, c.Render())

	cmds := rec.Commands()
	require.Len(t, cmds, 3)
	require.Equal(t, render.OpClear, cmds[0].Op)
	require.Equal(t, render.Color{A: 1}, cmds[0].Colors[0])

	require.Equal(t, render.OpFillRect, cmds[1].Op)
	require.Equal(t, render.Rect{Bottom: 10, Top: 20, Left: 30, Right: 40}, cmds[1].Rect)
	require.Equal(t, render.Color{G: 0.5, B: 0.25, A: 1}, cmds[1].Colors[0])

	require.Equal(t, render.OpFillGradient, cmds[2].Op)
	require.Equal(t, render.Color{R: 1, A: 1}, cmds[2].Colors[render.TopLeft])
	require.Equal(t, render.Color{G: 1, A: 1}, cmds[2].Colors[render.BottomLeft])
	require.Equal(t, render.Color{B: 1, A: 1}, cmds[2].Colors[render.TopRight])
	require.Equal(t, render.Color{R: 1, G: 1, B: 1, A: 1}, cmds[2].Colors[render.BottomRight])
}

func TestLoadRequiresUpdateAndDraw(t *testing.T) {
	_, err := Load(context.Background(), src(`function draw() {}`), Options{})
	require.ErrorIs(t, err, ErrLoad)
	require.ErrorContains(t, err, "update")

	_, err = Load(context.Background(), src(`function update() {}`), Options{})
	require.ErrorIs(t, err, ErrLoad)
	require.ErrorContains(t, err, "draw")
}

func TestLoadReportsSyntaxAndInitErrors(t *testing.T) {
	_, err := Load(context.Background(), src(`function update( {`), Options{})
	require.ErrorIs(t, err, ErrLoad)

	_, err = Load(context.Background(), src(`
function update() {}
function draw() {}
function init() { throw new Error("no gpu"); }
`), Options{})
	require.ErrorIs(t, err, ErrLoad)
	require.ErrorContains(t, err, "no gpu")
}

func TestLoadInterruptsRunawayScript(t *testing.T) {
	start := time.Now()
	_, err := Load(context.Background(), src(`while (true) {}`), Options{Timeout: 50 * time.Millisecond})

	require.ErrorIs(t, err, ErrLoad)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestLoadHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, src(counterModule), Options{})
	require.ErrorIs(t, err, ErrLoad)
	require.ErrorIs(t, err, context.Canceled)
}

func TestScriptErrorsSurfaceFromAdvanceAndRender(t *testing.T) {
	c, err := Load(context.Background(), src(`
function update(dt) { if (dt > 1) throw new Error("too slow"); }
function draw() { canvas.fillRect(0, 1, 0, 1, [1, 2]); }
`), Options{})
	require.NoError(t, err)

	require.NoError(t, c.Advance(0.5, 1, 1))
	err = c.Advance(2, 1, 1)
	require.ErrorContains(t, err, "too slow")
	require.ErrorContains(t, err, "update")

	err = c.Render()
	require.ErrorContains(t, err, "expected an array of 4 numbers")
	require.ErrorContains(t, err, "draw")
}

func TestLoadAsyncResolvesOnce(t *testing.T) {
	ch := LoadAsync(context.Background(), src(counterModule), Options{})

	res, ok := <-ch
	require.True(t, ok)
	require.NoError(t, res.Err)
	require.NotNil(t, res.Client)

	_, ok = <-ch
	require.False(t, ok)
}

func TestLoadAsyncReportsFailure(t *testing.T) {
	res := <-LoadAsync(context.Background(), src(`nope(`), Options{})
	require.ErrorIs(t, res.Err, ErrLoad)
	require.Nil(t, res.Client)
}

func TestDefaultClientRuns(t *testing.T) {
	rec := &render.Recorder{}
	c, err := Load(context.Background(), Default(), Options{Canvas: rec})
	require.NoError(t, err)

	for i := 0; i < 240; i++ {
		require.NoError(t, c.Advance(1.0/120, 800, 600))
	}
	require.NoError(t, c.Render())
	require.Len(t, rec.Commands(), 3)
}

func TestFromFileDecompressesBundles(t *testing.T) {
	dir := t.TempDir()
	packed, err := Compress([]byte(counterModule))
	require.NoError(t, err)

	path := filepath.Join(dir, "client.js.lz4")
	require.NoError(t, os.WriteFile(path, packed, 0o644))

	s, err := FromFile(path)
	require.NoError(t, err)
	require.Equal(t, "client.js", s.Name)
	require.Equal(t, counterModule, string(s.Code))

	_, err = Load(context.Background(), s, Options{})
	require.NoError(t, err)
}

func TestFromFilePlainAndMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.js")
	require.NoError(t, os.WriteFile(path, []byte(counterModule), 0o644))

	s, err := FromFile(path)
	require.NoError(t, err)
	require.Equal(t, "client.js", s.Name)

	_, err = FromFile(filepath.Join(dir, "missing.js"))
	require.ErrorIs(t, err, ErrLoad)
	require.ErrorIs(t, err, os.ErrNotExist)
}
