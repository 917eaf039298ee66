package render

type Op int

const (
	OpClear Op = iota
	OpFillRect
	OpFillGradient
)

func (o Op) String() string {
	switch o {
	case OpClear:
		return "clear"
	case OpFillRect:
		return "fillRect"
	case OpFillGradient:
		return "fillGradient"
	}
	return "unknown"
}

type Command struct {
	Op     Op
	Rect   Rect
	Colors []Color
}

// Recorder is a Canvas that keeps the commands it is given. Headless hosts
// reset it at the start of every frame.
type Recorder struct {
	commands []Command
	total    int
}

func (r *Recorder) Clear(c Color) {
	r.add(Command{Op: OpClear, Colors: []Color{c}})
}

func (r *Recorder) FillRect(rect Rect, c Color) {
	r.add(Command{Op: OpFillRect, Rect: rect, Colors: []Color{c}})
}

func (r *Recorder) FillGradient(rect Rect, corners [4]Color) {
	r.add(Command{Op: OpFillGradient, Rect: rect, Colors: corners[:]})
}

func (r *Recorder) add(c Command) {
	r.commands = append(r.commands, c)
	r.total++
}

// Commands returns the commands recorded since the last Reset.
func (r *Recorder) Commands() []Command {
	return r.commands
}

// Total counts every command since the recorder was created.
func (r *Recorder) Total() int {
	return r.total
}

func (r *Recorder) Reset() {
	r.commands = r.commands[:0]
}
