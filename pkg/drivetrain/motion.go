package drivetrain

import (
	"fmt"
	"math"
)

// Phase is the state of a motion primitive.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDriving
	// PhaseBraking means at least one side has been braked but the motion is not done.
	PhaseBraking
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDriving:
		return "driving"
	case PhaseBraking:
		return "braking"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// DistanceMove is the distance-hold primitive as a state machine.  Call Start once and
// then Poll until it returns PhaseDone.
type DistanceMove struct {
	left, right Gearbox

	distance, speed float64
	target          float64

	startL, startR      float64
	leftDone, rightDone bool
	phase               Phase
}

func (d *DriveTrain) NewDistanceMove(distance, speed float64) *DistanceMove {
	return &DistanceMove{
		left:     d.left,
		right:    d.right,
		distance: distance,
		speed:    speed,
		target:   math.Abs(distance * d.params.EncoderRatio),
	}
}

// Target is the number of encoder ticks each side must cover.
func (m *DistanceMove) Target() float64 {
	return m.target
}

func (m *DistanceMove) Phase() Phase {
	return m.phase
}

// Start records the encoder baselines and drives both sides with the same sign.
func (m *DistanceMove) Start() {
	if m.phase != PhaseIdle {
		return
	}
	m.startL = m.left.EncoderPosition()
	m.startR = m.right.EncoderPosition()
	speed := m.speed
	if m.distance <= 0 {
		speed = -speed
	}
	m.left.Drive(speed)
	m.right.Drive(speed)
	m.phase = PhaseDriving
}

// Poll reads the encoders once.  Each side is braked the first time its displacement
// reaches the target; the move is done once both sides have.
func (m *DistanceMove) Poll() Phase {
	if m.phase != PhaseDriving && m.phase != PhaseBraking {
		return m.phase
	}
	if !m.leftDone && math.Abs(m.left.EncoderPosition()-m.startL) >= m.target {
		m.left.Brake()
		m.leftDone = true
	}
	if !m.rightDone && math.Abs(m.right.EncoderPosition()-m.startR) >= m.target {
		m.right.Brake()
		m.rightDone = true
	}
	switch {
	case m.leftDone && m.rightDone:
		m.phase = PhaseDone
	case m.leftDone || m.rightDone:
		m.phase = PhaseBraking
	}
	return m.phase
}

// HeadingTurn is the heading-hold primitive as a state machine.
type HeadingTurn struct {
	left, right Gearbox
	sensor      HeadingSensor

	target, speed float64
	start, last   float64
	// increasing is true when the turn drives the heading up toward the target.
	increasing bool
	phase      Phase
}

func (d *DriveTrain) NewHeadingTurn(target, speed float64) *HeadingTurn {
	return &HeadingTurn{
		left:   d.left,
		right:  d.right,
		sensor: d.navx,
		target: target,
		speed:  speed,
	}
}

func (t *HeadingTurn) Phase() Phase {
	return t.phase
}

func (t *HeadingTurn) StartHeading() float64 {
	return t.start
}

// LastHeading is the heading seen by the most recent poll.
func (t *HeadingTurn) LastHeading() float64 {
	return t.last
}

// Start reads the starting heading and commands the turn.  Left forward/right back
// increases the heading.  There is no wraparound: the comparison is on raw degrees.
func (t *HeadingTurn) Start() {
	if t.phase != PhaseIdle {
		return
	}
	t.start = t.sensor.Heading()
	t.last = t.start
	if t.target > t.start {
		t.increasing = true
		t.left.Drive(t.speed)
		t.right.Drive(-t.speed)
	} else {
		t.left.Drive(-t.speed)
		t.right.Drive(t.speed)
	}
	t.phase = PhaseDriving
}

// Poll reads the heading once and brakes both sides when the target has been crossed.
func (t *HeadingTurn) Poll() Phase {
	if t.phase != PhaseDriving {
		return t.phase
	}
	t.last = t.sensor.Heading()
	if t.increasing && t.last < t.target || !t.increasing && t.last > t.target {
		return t.phase
	}
	t.phase = PhaseBraking
	t.left.Brake()
	t.right.Brake()
	t.phase = PhaseDone
	return t.phase
}
