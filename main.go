package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"framedrive/api"
	"framedrive/boot"
	"framedrive/clock"
	"framedrive/config"
	"framedrive/driver"
	"framedrive/host"
	"framedrive/logger"
	"framedrive/module"
	"framedrive/stats"
	"framedrive/storage"

	"github.com/alecthomas/kong"
	// hideconsole
	_ "github.com/ebitengine/hideconsole"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Globals struct {
	Config   string `help:"Config file (YAML). Defaults to config.yaml in the data directory." short:"c" type:"path"`
	LogLevel string `help:"Log level (debug, info, warn, error)." name:"log-level"`
	Debug    bool   `help:"Development logging."`
}

type CLI struct {
	Globals

	Run        RunCmd        `cmd:"" default:"withargs" help:"Run a client module."`
	Bundle     BundleCmd     `cmd:"" help:"Check a module and compress it into an lz4 bundle."`
	InitConfig InitConfigCmd `cmd:"" name:"init-config" help:"Write the default config to the data directory."`
}

type RunCmd struct {
	Module       string        `arg:"" optional:"" help:"Client module (.js or .js.lz4). Defaults to the built-in demo." type:"existingfile"`
	TickRate     float64       `help:"Simulation steps per second." name:"tick-rate"`
	MaxFrameTime time.Duration `help:"Clamp one frame's elapsed time to this." name:"max-frame-time"`
	NoClamp      bool          `help:"Catch up on all elapsed time, however long." name:"no-clamp"`
	Headless     bool          `help:"Run without a window."`
	Hz           int           `help:"Frame rate in headless mode."`
	Frames       uint64        `help:"Stop after N frames in headless mode (0 = run until interrupted)."`
	FakeClock    bool          `help:"Headless frames advance a simulated clock instead of waiting." name:"fake-clock"`
	StatsAddr    string        `help:"Serve the websocket stats stream on this address, e.g. :42069." name:"stats-addr"`
	PprofAddr    string        `help:"Serve net/http/pprof on this address, e.g. :6060." name:"pprof-addr"`
	NoOverlay    bool          `help:"Hide the stats overlay." name:"no-overlay"`
}

type InitConfigCmd struct {
	Force bool `help:"Overwrite an existing config."`
}

type BundleCmd struct {
	In  string `arg:"" help:"Module source." type:"existingfile"`
	Out string `arg:"" optional:"" help:"Bundle path. Defaults to <in>.lz4." type:"path"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("framedrive"),
		kong.Description("Fixed-timestep client runner."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli.Globals); err != nil {
		fmt.Fprintln(os.Stderr, "framedrive:", err)
		os.Exit(1)
	}
}

func (g *Globals) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return cfg, nil, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.Debug {
		cfg.Log.Development = true
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

func (r *RunCmd) apply(cfg *config.Config) {
	if r.Module != "" {
		cfg.Module = r.Module
	}
	if r.TickRate != 0 {
		cfg.TickRate = r.TickRate
	}
	if r.MaxFrameTime != 0 {
		cfg.MaxFrameTime = r.MaxFrameTime
	}
	if r.NoClamp {
		cfg.MaxFrameTime = 0
	}
	if r.Headless {
		cfg.Headless.Enabled = true
	}
	if r.Hz != 0 {
		cfg.Headless.Hz = r.Hz
	}
	if r.Frames != 0 {
		cfg.Headless.Frames = r.Frames
	}
	if r.FakeClock {
		cfg.Headless.FakeClock = true
	}
	if r.StatsAddr != "" {
		cfg.Stats.Addr = r.StatsAddr
	}
	if r.PprofAddr != "" {
		cfg.PprofAddr = r.PprofAddr
	}
	if r.NoOverlay {
		cfg.Stats.Overlay = false
	}
}

func (r *RunCmd) Run(g *Globals) error {
	cfg, log, err := g.load()
	if err != nil {
		return err
	}
	defer log.Sync()

	r.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	log = log.With(zap.String("session", uuid.NewString()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.PprofAddr != "" {
		go func() {
			log.Info("pprof listening", zap.String("addr", cfg.PprofAddr))
			if err := http.ListenAndServe(cfg.PprofAddr, nil); err != nil {
				log.Warn("pprof server stopped", zap.Error(err))
			}
		}()
	}

	src := module.Default()
	if cfg.Module != "" {
		if src, err = module.FromFile(cfg.Module); err != nil {
			return err
		}
	}

	var clk clock.Clock = clock.Real()
	var fake *clock.Fake
	if cfg.Headless.Enabled && cfg.Headless.FakeClock {
		fake = clock.NewFake(time.Now())
		clk = fake
	}

	meter := stats.NewMeter(clk, cfg.Stats.Interval)
	if cfg.Stats.Addr != "" {
		hub := api.NewAPI(meter, log, cfg.Stats.Interval)
		go func() {
			if err := hub.Serve(ctx, cfg.Stats.Addr); err != nil {
				log.Error("stats server", zap.Error(err))
			}
		}()
	}

	var h boot.Host
	if cfg.Headless.Enabled {
		h = host.NewHeadless(host.HeadlessConfig{
			Size:   driver.Size{W: cfg.Headless.Width, H: cfg.Headless.Height},
			Hz:     cfg.Headless.Hz,
			Frames: cfg.Headless.Frames,
			Clock:  fake,
		}, log)
	} else {
		h = host.NewEbiten(host.EbitenConfig{
			Title:     cfg.Window.Title,
			Size:      driver.Size{W: cfg.Window.Width, H: cfg.Window.Height},
			Resizable: cfg.Window.Resizable,
			Overlay:   cfg.Stats.Overlay,
			Stats:     meter,
		}, log)
	}

	err = boot.Run(ctx, h, boot.Options{
		Source:        src,
		StepRate:      cfg.TickRate,
		MaxFrameTime:  cfg.MaxFrameTime,
		ModuleTimeout: cfg.ModuleTimeout,
		Clock:         clk,
		Observer:      meter,
		Logger:        log,
	})
	if err != nil {
		log.Error("client stopped", zap.Error(err))
		return err
	}
	log.Info("client stopped", zap.Stringer("stats", meter.Snapshot()))
	return nil
}

func (b *BundleCmd) Run(g *Globals) error {
	_, log, err := g.load()
	if err != nil {
		return err
	}
	defer log.Sync()

	src, err := module.FromFile(b.In)
	if err != nil {
		return err
	}
	if _, err := module.Load(context.Background(), src, module.Options{Logger: log}); err != nil {
		return err
	}

	packed, err := module.Compress(src.Code)
	if err != nil {
		return fmt.Errorf("compress %s: %w", b.In, err)
	}
	out := b.Out
	if out == "" {
		out = b.In + ".lz4"
	}
	if out == b.In {
		return errors.New("bundle would overwrite its source")
	}
	if err := os.WriteFile(out, packed, 0o644); err != nil {
		return err
	}
	log.Info("bundle written", zap.String("path", out), zap.Int("bytes", len(packed)), zap.Int("source_bytes", len(src.Code)))
	return nil
}

func (c *InitConfigCmd) Run(g *Globals) error {
	if !c.Force {
		if _, err := os.Stat(storage.DataFile(config.FileName)); err == nil {
			return fmt.Errorf("%s already exists; use --force to overwrite", storage.DataFile(config.FileName))
		}
	}
	path, err := config.Save(config.Default())
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
