package driver

import (
	"errors"
	"fmt"
)

// calls is a shared log so tests can check ordering across collaborators.
type calls struct {
	events []string
}

func (c *calls) add(format string, args ...any) {
	c.events = append(c.events, fmt.Sprintf(format, args...))
}

type fakeSim struct {
	log         *calls
	advances    int
	renders     int
	lastDt      float64
	lastSize    Size
	failAdvance error
	failRender  error
}

func (s *fakeSim) Advance(dt float64, width, height int) error {
	if s.failAdvance != nil {
		return s.failAdvance
	}
	s.advances++
	s.lastDt = dt
	s.lastSize = Size{width, height}
	s.log.add("advance %dx%d", width, height)
	return nil
}

func (s *fakeSim) Render() error {
	if s.failRender != nil {
		return s.failRender
	}
	s.renders++
	s.log.add("render")
	return nil
}

type fakeSurface struct {
	log      *calls
	window   Size
	drawable Size
	resizes  []Size
}

func (s *fakeSurface) Window() Size   { return s.window }
func (s *fakeSurface) Drawable() Size { return s.drawable }

func (s *fakeSurface) Resize(size Size) {
	s.drawable = size
	s.resizes = append(s.resizes, size)
	s.log.add("resize %s", size)
}

type fakeScheduler struct {
	pending []func() error
}

func (s *fakeScheduler) RequestFrame(frame func() error) {
	s.pending = append(s.pending, frame)
}

// fire runs the oldest pending frame callback.
func (s *fakeScheduler) fire() error {
	if len(s.pending) == 0 {
		return errors.New("no frame requested")
	}
	frame := s.pending[0]
	s.pending = s.pending[1:]
	return frame()
}

type fakeObserver struct {
	log     *calls
	reports []FrameReport
}

func (o *fakeObserver) FrameBegin() { o.log.add("begin") }

func (o *fakeObserver) FrameEnd(r FrameReport) {
	o.reports = append(o.reports, r)
	o.log.add("end")
}
