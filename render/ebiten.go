package render

import (
	"image"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

var (
	whiteOnce     sync.Once
	whiteSubImage *ebiten.Image
)

// white returns a 1x1 white source image for coloured triangles. The 3x3
// image avoids sampling the edges.
func white() *ebiten.Image {
	whiteOnce.Do(func() {
		img := ebiten.NewImage(3, 3)
		img.Fill(color.White)
		whiteSubImage = img.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
	})
	return whiteSubImage
}

// Ebiten paints onto the ebiten image bound for the current frame.
type Ebiten struct {
	target    *ebiten.Image
	height    int
	Antialias bool
}

func NewEbiten() *Ebiten {
	return &Ebiten{Antialias: true}
}

// Bind sets the image the next draw calls go to. A nil target turns the
// canvas into a no-op until the next Bind.
func (e *Ebiten) Bind(target *ebiten.Image) {
	e.target = target
	e.height = 0
	if target != nil {
		e.height = target.Bounds().Dy()
	}
}

func (e *Ebiten) Clear(c Color) {
	if e.target == nil {
		return
	}
	e.target.Fill(c.NRGBA())
}

func (e *Ebiten) FillRect(r Rect, c Color) {
	if e.target == nil {
		return
	}
	x, y, w, h := ToScreen(r, e.height)
	vector.DrawFilledRect(e.target, x, y, w, h, c.NRGBA(), e.Antialias)
}

func (e *Ebiten) FillGradient(r Rect, corners [4]Color) {
	if e.target == nil {
		return
	}
	x, y, w, h := ToScreen(r, e.height)

	// Same quad as the module sees it: two triangles over TL, BL, TR, BR.
	pos := [4][2]float32{
		TopLeft:     {x, y},
		BottomLeft:  {x, y + h},
		TopRight:    {x + w, y},
		BottomRight: {x + w, y + h},
	}
	vs := make([]ebiten.Vertex, 4)
	for i := range vs {
		c := corners[i]
		vs[i] = ebiten.Vertex{
			DstX:   pos[i][0],
			DstY:   pos[i][1],
			SrcX:   1,
			SrcY:   1,
			ColorR: float32(clamp01(c.R)),
			ColorG: float32(clamp01(c.G)),
			ColorB: float32(clamp01(c.B)),
			ColorA: float32(clamp01(c.A)),
		}
	}
	op := &ebiten.DrawTrianglesOptions{ColorScaleMode: ebiten.ColorScaleModeStraightAlpha, AntiAlias: e.Antialias}
	e.target.DrawTriangles(vs, []uint16{0, 1, 2, 2, 1, 3}, white(), op)
}

func clamp01(v float64) float64 {
	switch {
	case v <= 0 || v != v:
		return 0
	case v >= 1:
		return 1
	}
	return v
}
