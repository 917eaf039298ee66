package host

import (
	"context"
	"errors"
	"testing"
	"time"

	"framedrive/clock"
	"framedrive/driver"

	"github.com/stretchr/testify/require"
)

func TestDeviceSize(t *testing.T) {
	require.Equal(t, driver.Size{W: 1600, H: 1200}, deviceSize(800, 600, 2))
	require.Equal(t, driver.Size{W: 800, H: 600}, deviceSize(800, 600, 0))
}

func TestEbitenSurfaceNeedsSize(t *testing.T) {
	_, err := NewEbiten(EbitenConfig{}, nil).Surface()
	require.Error(t, err)

	e := NewEbiten(EbitenConfig{Size: driver.Size{W: 640, H: 480}}, nil)
	s, err := e.Surface()
	require.NoError(t, err)
	require.Equal(t, driver.Size{W: 640, H: 480}, s.Drawable())

	s.Resize(driver.Size{W: 1280, H: 960})
	require.Equal(t, driver.Size{W: 1280, H: 960}, e.Drawable())
}

func TestHeadlessSurfaceNeedsSize(t *testing.T) {
	_, err := NewHeadless(HeadlessConfig{Hz: 60}, nil).Surface()
	require.Error(t, err)
}

func TestHeadlessRunsFrameBudget(t *testing.T) {
	clk := clock.NewFake(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	h := NewHeadless(HeadlessConfig{Size: driver.Size{W: 320, H: 200}, Hz: 50, Frames: 10, Clock: clk}, nil)

	var seen []time.Time
	var frame func() error
	frame = func() error {
		seen = append(seen, clk.Now())
		h.RequestFrame(frame)
		return nil
	}
	h.RequestFrame(frame)

	require.NoError(t, h.Run(context.Background()))
	require.Equal(t, uint64(10), h.Frames())
	require.Len(t, seen, 10)
	require.Equal(t, 20*time.Millisecond, seen[1].Sub(seen[0]))
}

func TestHeadlessStopsWhenNothingIsRequested(t *testing.T) {
	h := NewHeadless(HeadlessConfig{Size: driver.Size{W: 1, H: 1}, Hz: 1000}, nil)
	require.NoError(t, h.Run(context.Background()))
	require.Zero(t, h.Frames())
}

func TestHeadlessReturnsFrameError(t *testing.T) {
	boom := errors.New("boom")
	h := NewHeadless(HeadlessConfig{Size: driver.Size{W: 1, H: 1}, Hz: 1000}, nil)
	h.RequestFrame(func() error { return boom })

	require.ErrorIs(t, h.Run(context.Background()), boom)
}

func TestHeadlessStopsOnContext(t *testing.T) {
	h := NewHeadless(HeadlessConfig{Size: driver.Size{W: 1, H: 1}, Hz: 1000}, nil)
	var frame func() error
	frame = func() error {
		h.RequestFrame(frame)
		return nil
	}
	h.RequestFrame(frame)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, h.Run(ctx))
	require.Positive(t, h.Frames())
}
