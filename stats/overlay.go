package stats

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Overlay draws a snapshot in the top-left corner of the screen.
type Overlay struct {
	Visible bool
	face    font.Face
}

func NewOverlay(visible bool) *Overlay {
	return &Overlay{Visible: visible, face: basicfont.Face7x13}
}

func (o *Overlay) Toggle() {
	o.Visible = !o.Visible
}

func (o *Overlay) Draw(screen *ebiten.Image, s Snapshot) {
	if !o.Visible || screen == nil {
		return
	}
	line := s.String()
	bounds := text.BoundString(o.face, line)
	w := float32(bounds.Dx() + 12)
	h := float32(o.face.Metrics().Height.Ceil() + 8)

	vector.DrawFilledRect(screen, 4, 4, w, h, color.NRGBA{0, 0, 0, 180}, false)
	text.Draw(screen, line, o.face, 10, 4+o.face.Metrics().Ascent.Ceil()+4, color.NRGBA{0, 255, 136, 255})
}
