package input

var controlsByName = map[string]Control{
	"forward": ControlForward,
	"back":    ControlBack,
	"left":    ControlLeft,
	"right":   ControlRight,
	"jump":    ControlJump,
	"attack":  ControlAttack,
	"quit":    ControlQuit,
}

func ControlFromName(name string) (Control, bool) {
	control, ok := controlsByName[name]
	return control, ok
}

// Dispatcher adapts a Tracker to name-based device events as they come
// off the wire. Unknown control names are ignored; motion is always
// accepted.
type Dispatcher struct {
	tracker *Tracker
}

func NewDispatcher(tracker *Tracker) *Dispatcher {
	return &Dispatcher{tracker: tracker}
}

func (d *Dispatcher) DispatchPress(name string) {
	if control, ok := ControlFromName(name); ok {
		d.tracker.ApplyPress(control)
	}
}

func (d *Dispatcher) DispatchRelease(name string) {
	if control, ok := ControlFromName(name); ok {
		d.tracker.ApplyRelease(control)
	}
}

func (d *Dispatcher) DispatchMotion(dx float64, dy float64) {
	d.tracker.ApplyMotion(dx, dy)
}
