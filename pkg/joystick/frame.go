package joystick

import "math"

// Frame is one sample of the driving axes, each in [-1, 1].  Y is positive with the stick
// pulled back, matching the raw device, and Twist is positive to the right.
type Frame struct {
	X, Y, Twist float64
}

// State tracks the latest value of each driving axis.
type State struct {
	XAxis, YAxis, TwistAxis uint8

	frame Frame
}

// NewState maps the left stick to X/Y and the right stick's horizontal axis to twist.
func NewState() *State {
	return &State{
		XAxis:     AxisLStickX,
		YAxis:     AxisLStickY,
		TwistAxis: AxisRStickX,
	}
}

// Apply folds an event into the frame.  It returns true if a driving axis changed.
func (s *State) Apply(e *Event) bool {
	if e == nil || e.Type != EventTypeAxis {
		return false
	}
	v := Normalize(e.Value)
	switch e.Number {
	case s.XAxis:
		s.frame.X = v
	case s.YAxis:
		s.frame.Y = v
	case s.TwistAxis:
		s.frame.Twist = v
	default:
		return false
	}
	return true
}

func (s *State) Frame() Frame {
	return s.frame
}

func (s *State) Reset() {
	s.frame = Frame{}
}

// Normalize maps a raw axis value onto [-1, 1].
func Normalize(raw int16) float64 {
	if raw == math.MinInt16 {
		return -1
	}
	return float64(raw) / math.MaxInt16
}
