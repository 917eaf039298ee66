// Package render holds the drawing surface a simulation module paints on.
//
// Coordinates are pixels with the origin at the bottom-left corner of the
// drawable, the way the module sees its viewport. Colours are float
// components in [0, 1].
package render

import "image/color"

// Rect is an axis-aligned rectangle in bottom-left pixel space.
type Rect struct {
	Bottom float64
	Top    float64
	Left   float64
	Right  float64
}

// Normalize swaps inverted edges so that Bottom <= Top and Left <= Right.
func (r Rect) Normalize() Rect {
	if r.Bottom > r.Top {
		r.Bottom, r.Top = r.Top, r.Bottom
	}
	if r.Left > r.Right {
		r.Left, r.Right = r.Right, r.Left
	}
	return r
}

type Color struct {
	R, G, B, A float64
}

// NRGBA converts to 8-bit straight alpha, clamping out of range components.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: unit8(c.R), G: unit8(c.G), B: unit8(c.B), A: unit8(c.A)}
}

func unit8(v float64) uint8 {
	switch {
	case v <= 0 || v != v:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Gradient corners, in the order a module passes them.
const (
	TopLeft = iota
	BottomLeft
	TopRight
	BottomRight
)

// Canvas receives the draw calls of one frame.
type Canvas interface {
	Clear(c Color)
	FillRect(r Rect, c Color)
	// FillGradient fills r interpolating the four corner colours indexed by
	// TopLeft, BottomLeft, TopRight and BottomRight.
	FillGradient(r Rect, corners [4]Color)
}

// Discard is a Canvas that drops everything.
var Discard Canvas = discard{}

type discard struct{}

func (discard) Clear(Color)                 {}
func (discard) FillRect(Rect, Color)        {}
func (discard) FillGradient(Rect, [4]Color) {}

// ToScreen maps r into top-left pixel space for a drawable of the given height.
func ToScreen(r Rect, height int) (x, y, w, h float32) {
	r = r.Normalize()
	return float32(r.Left), float32(float64(height) - r.Top), float32(r.Right - r.Left), float32(r.Top - r.Bottom)
}
