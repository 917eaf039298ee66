package main

import (
	"context"
	"log"
	"runtime"

	"framedrive/boot"
	"framedrive/config"
	"framedrive/driver"
	"framedrive/host"
	"framedrive/logger"
	"framedrive/module"
	"framedrive/stats"

	"go.uber.org/zap"
)

func main() {
	// Verify we're running in WASM environment
	if runtime.GOOS != "js" || runtime.GOARCH != "wasm" {
		log.Fatal("This build is specifically for WebAssembly (js/wasm)")
	}

	cfg := config.Default()
	l, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatal(err)
	}

	meter := stats.NewMeter(nil, cfg.Stats.Interval)

	// The page owns the canvas size; ebiten reports it through Layout.
	h := host.NewEbiten(host.EbitenConfig{
		Title:   "framedrive - Web",
		Size:    driver.Size{W: cfg.Window.Width, H: cfg.Window.Height},
		Overlay: cfg.Stats.Overlay,
		Stats:   meter,
	}, l)

	if err := boot.Run(context.Background(), h, boot.Options{
		Source:        module.Default(),
		StepRate:      cfg.TickRate,
		MaxFrameTime:  cfg.MaxFrameTime,
		ModuleTimeout: cfg.ModuleTimeout,
		Observer:      meter,
		Logger:        l,
	}); err != nil {
		// The browser console is the only place left to report it.
		l.Error("client stopped", zap.Error(err))
		panic(err)
	}
}
