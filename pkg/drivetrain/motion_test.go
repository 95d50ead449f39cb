package drivetrain

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []string
}

func (r *recorder) add(format string, args ...interface{}) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

// fakeGearbox advances its encoder by speed*rate on every read.
type fakeGearbox struct {
	name string
	rec  *recorder

	speed float64
	rate  float64
	pos   float64

	lastRead float64
	brakes   int
	brakedAt []float64
	driveCnt int
}

func newFakeGearbox(name string, rec *recorder) *fakeGearbox {
	return &fakeGearbox{name: name, rec: rec, rate: 1}
}

func (g *fakeGearbox) Drive(speed float64) {
	g.rec.add("%s.drive(%v)", g.name, speed)
	g.speed = speed
	g.driveCnt++
}

func (g *fakeGearbox) Brake() {
	g.rec.add("%s.brake", g.name)
	g.speed = 0
	g.brakes++
	g.brakedAt = append(g.brakedAt, g.lastRead)
}

func (g *fakeGearbox) EncoderPosition() float64 {
	g.lastRead = g.pos
	g.pos += g.speed * g.rate
	return g.lastRead
}

type fakeHeading struct {
	heading float64
	reads   []float64
}

func (h *fakeHeading) Heading() float64 {
	h.reads = append(h.reads, h.heading)
	return h.heading
}

// turningClock moves the heading according to the gearbox speeds each time the
// drivetrain sleeps.
type turningClock struct {
	left, right *fakeGearbox
	heading     *fakeHeading
	degPerSleep float64
	sleeps      int
	onSleep     func(n int)
}

func (c *turningClock) After(d time.Duration) <-chan time.Time {
	c.sleeps++
	c.heading.heading += (c.left.speed - c.right.speed) / 2 * c.degPerSleep
	if c.onSleep != nil {
		c.onSleep(c.sleeps)
	}
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

type rig struct {
	rec         *recorder
	left, right *fakeGearbox
	heading     *fakeHeading
	clock       *turningClock
	dt          *DriveTrain
}

func newRig() *rig {
	r := &rig{rec: &recorder{}, heading: &fakeHeading{}}
	r.left = newFakeGearbox("left", r.rec)
	r.right = newFakeGearbox("right", r.rec)
	r.clock = &turningClock{left: r.left, right: r.right, heading: r.heading, degPerSleep: 20}
	r.dt = New(r.left, r.right, r.heading, DefaultParams(), WithClock(r.clock))
	return r
}

func TestMoveDistanceBrakesAtTarget(t *testing.T) {
	r := newRig()
	require.NoError(t, r.dt.MoveDistance(context.Background(), 2, 1))

	assert.Equal(t, []string{
		"left.drive(1)", "right.drive(1)",
		"left.brake", "right.brake",
	}, r.rec.calls)
	assert.Equal(t, []float64{2}, r.left.brakedAt)
	assert.Equal(t, []float64{2}, r.right.brakedAt)
}

func TestMoveDistanceBackwards(t *testing.T) {
	r := newRig()
	r.left.pos, r.right.pos = 100, -50
	require.NoError(t, r.dt.MoveDistance(context.Background(), -3, 0.5))

	assert.Equal(t, "left.drive(-0.5)", r.rec.calls[0])
	assert.Equal(t, "right.drive(-0.5)", r.rec.calls[1])
	require.Len(t, r.left.brakedAt, 1)
	require.Len(t, r.right.brakedAt, 1)
	assert.LessOrEqual(t, r.left.brakedAt[0], 97.0)
	assert.LessOrEqual(t, r.right.brakedAt[0], -53.0)
}

func TestMoveDistanceSidesBrakeIndependently(t *testing.T) {
	r := newRig()
	r.left.rate = 2
	r.right.rate = 0.5

	m := r.dt.NewDistanceMove(4, 1)
	assert.Equal(t, 4.0, m.Target())
	assert.Equal(t, PhaseIdle, m.Poll())

	m.Start()
	phases := []Phase{}
	for i := 0; i < 100 && m.Phase() != PhaseDone; i++ {
		phases = append(phases, m.Poll())
	}
	require.Equal(t, PhaseDone, m.Phase())
	assert.Contains(t, phases, PhaseBraking)
	assert.Equal(t, 1, r.left.brakes, "left should brake once")
	assert.Equal(t, 1, r.right.brakes, "right should brake once")
	assert.Equal(t, "left.brake", r.rec.calls[2])
	assert.GreaterOrEqual(t, r.left.brakedAt[0], 4.0)
	assert.GreaterOrEqual(t, r.right.brakedAt[0], 4.0)
	// The slow side was still driving when the fast side braked.
	assert.Equal(t, 1, r.right.driveCnt)
}

func TestMoveDistanceUsesEncoderRatio(t *testing.T) {
	r := newRig()
	p := DefaultParams()
	p.EncoderRatio = 10
	dt := New(r.left, r.right, r.heading, p)
	m := dt.NewDistanceMove(-1.5, 1)
	assert.Equal(t, 15.0, m.Target())
}

func TestMoveDistanceStallNeverFinishes(t *testing.T) {
	r := newRig()
	r.right.rate = 0

	m := r.dt.NewDistanceMove(2, 1)
	m.Start()
	for i := 0; i < 1000; i++ {
		m.Poll()
	}
	assert.Equal(t, PhaseBraking, m.Phase())
	assert.Equal(t, 1, r.left.brakes)
	assert.Equal(t, 0, r.right.brakes)
}

func TestMoveDistanceCancelled(t *testing.T) {
	r := newRig()
	r.left.rate, r.right.rate = 0, 0
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.dt.MoveDistance(ctx, 2, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, r.left.brakes)
	assert.Equal(t, 1, r.right.brakes)
}

func TestTurnDegAbsIncreasing(t *testing.T) {
	r := newRig()
	require.NoError(t, r.dt.TurnDegAbs(context.Background(), 90, 0.5))

	assert.Equal(t, []string{
		"left.drive(0.5)", "right.drive(-0.5)",
		"left.brake", "right.brake",
	}, r.rec.calls)
	// 10 degrees per sleep: polls at 0, 10, ... 90.
	assert.Equal(t, 9, r.clock.sleeps)
	reads := r.heading.reads
	assert.Equal(t, 90.0, reads[len(reads)-1])
	assert.Less(t, reads[len(reads)-2], 90.0)
}

func TestTurnDegAbsDecreasing(t *testing.T) {
	r := newRig()
	r.heading.heading = 45
	require.NoError(t, r.dt.TurnDegAbs(context.Background(), -15, 1))

	assert.Equal(t, []string{
		"left.drive(-1)", "right.drive(1)",
		"left.brake", "right.brake",
	}, r.rec.calls)
	assert.LessOrEqual(t, r.heading.heading, -15.0)
	assert.Equal(t, 3, r.clock.sleeps)
}

func TestTurnDegAbsAlreadyAtTarget(t *testing.T) {
	r := newRig()
	r.heading.heading = 30
	require.NoError(t, r.dt.TurnDegAbs(context.Background(), 30, 0.4))

	assert.Equal(t, []string{
		"left.drive(-0.4)", "right.drive(0.4)",
		"left.brake", "right.brake",
	}, r.rec.calls)
	assert.Equal(t, 0, r.clock.sleeps)
}

func TestTurnDegAbsNoWraparound(t *testing.T) {
	r := newRig()
	r.heading.heading = 350
	require.NoError(t, r.dt.TurnDegAbs(context.Background(), 370, 0.5))

	// Raw degrees: 370 is reached by turning up through 360, not by wrapping to 10.
	assert.Equal(t, "left.drive(0.5)", r.rec.calls[0])
	assert.Equal(t, 370.0, r.heading.heading)
}

func TestTurnDegRel(t *testing.T) {
	r := newRig()
	r.heading.heading = 30
	require.NoError(t, r.dt.TurnDegRel(context.Background(), -45, 0.75))

	assert.Equal(t, "left.drive(-0.75)", r.rec.calls[0])
	assert.Equal(t, -15.0, r.heading.heading)
}

func TestTurnCancelled(t *testing.T) {
	r := newRig()
	r.clock.degPerSleep = 0
	ctx, cancel := context.WithCancel(context.Background())
	r.clock.onSleep = func(n int) {
		if n == 3 {
			cancel()
		}
	}

	err := r.dt.TurnDegAbs(ctx, 90, 0.5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, r.left.brakes)
	assert.Equal(t, 1, r.right.brakes)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "braking", PhaseBraking.String())
	assert.Equal(t, "unknown(9)", Phase(9).String())
}
