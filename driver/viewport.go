package driver

// viewport tracks the size last applied to the surface so that a resize is
// only issued when the host window actually changed.
type viewport struct {
	surface Surface
	applied Size
}

func newViewport(s Surface) *viewport {
	return &viewport{surface: s, applied: s.Drawable()}
}

func (v *viewport) window() Size {
	return v.surface.Window()
}

// sync resizes the surface to the window when they differ. An empty window
// (minimised, or not laid out yet) leaves the surface alone.
func (v *viewport) sync() (Size, bool) {
	want := v.surface.Window()
	if want.W <= 0 || want.H <= 0 || want == v.applied {
		return v.applied, false
	}
	v.surface.Resize(want)
	v.applied = want
	return want, true
}
