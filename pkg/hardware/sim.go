package hardware

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/climber"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/drivetrain"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/gearbox"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/screen"
)

// Sim is a simulated robot.  Wheels move at the commanded fraction of the chassis top
// speed with no inertia; encoders report millimetres travelled and the heading integrates
// the wheel speed difference.
//
// In virtual time the simulation only advances when the clock is slept on or a sensor is
// read, so motion primitives run deterministically and instantly.
type Sim struct {
	log *zap.Logger

	lock     sync.Mutex
	virtual  bool
	readStep time.Duration
	start    time.Time
	now      time.Time
	last     time.Time

	speeds    [2]float64
	positions [2]float64
	heading   float64
	climb     [2]float64

	left, right *gearbox.Gearbox
}

var _ Interface = (*Sim)(nil)

const (
	sideLeft = iota
	sideRight
)

// simBatteryVolts is a charged 3-cell pack.
const simBatteryVolts = 12.6

// NewSim returns a simulator running in real time.
func NewSim(log *zap.Logger) *Sim {
	s := newSim(log)
	s.start = time.Now()
	s.last = s.start
	return s
}

// NewVirtualSim returns a simulator running in virtual time.  Every sensor read costs
// readStep of simulated time.
func NewVirtualSim(readStep time.Duration, log *zap.Logger) *Sim {
	s := newSim(log)
	s.virtual = true
	s.readStep = readStep
	s.start = time.Unix(0, 0)
	s.now = s.start
	s.last = s.start
	return s
}

func newSim(log *zap.Logger) *Sim {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Sim{log: log.Named("dhw")}
	s.left = gearbox.New(gearbox.Config{Name: "left"}, &simEncoder{s, sideLeft}, log, &simMotor{s, sideLeft})
	s.right = gearbox.New(gearbox.Config{Name: "right"}, &simEncoder{s, sideRight}, log, &simMotor{s, sideRight})
	return s
}

func (s *Sim) Start(ctx context.Context) error {
	s.log.Info("Start", zap.Bool("virtual", s.virtual))
	return nil
}

func (s *Sim) Gearboxes() (left, right drivetrain.Gearbox) {
	return s.left, s.right
}

func (s *Sim) HeadingSensor() drivetrain.HeadingSensor {
	return simHeading{s}
}

func (s *Sim) ClimbMotors() (left, right climber.Motor) {
	return &simClimbMotor{s, sideLeft}, &simClimbMotor{s, sideRight}
}

func (s *Sim) Clock() drivetrain.Clock {
	if !s.virtual {
		return drivetrain.WallClock
	}
	return s
}

// After advances virtual time by d and returns an already-fired channel.
func (s *Sim) After(d time.Duration) <-chan time.Time {
	s.lock.Lock()
	s.now = s.now.Add(d)
	s.advanceLocked()
	now := s.now
	s.lock.Unlock()

	c := make(chan time.Time, 1)
	c <- now
	return c
}

func (s *Sim) PlaySound(path string) {
	s.log.Info("PlaySound", zap.String("path", path))
}

func (s *Sim) Snapshot() screen.Status {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.advanceLocked()
	return screen.Status{
		Heading: s.heading,
		Left:    s.left.LastSpeed(),
		Right:   s.right.LastSpeed(),
		Climber: s.climb[sideLeft],
		Battery: simBatteryVolts,
	}
}

// Position returns the distance each wheel has travelled in millimetres.
func (s *Sim) Position() (left, right float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.advanceLocked()
	return s.positions[sideLeft], s.positions[sideRight]
}

// Elapsed returns the simulated time since the simulator was created.
func (s *Sim) Elapsed() time.Duration {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.currentTime().Sub(s.start)
}

func (s *Sim) Shutdown() {
	s.log.Info("Shutdown")
	s.left.Brake()
	s.right.Brake()
	s.setClimb(sideRight, 0)
	s.setClimb(sideLeft, 0)
}

func (s *Sim) Close() {}

func (s *Sim) currentTime() time.Time {
	if s.virtual {
		return s.now
	}
	return time.Now()
}

// advanceLocked integrates motion from the last update to the current time.
func (s *Sim) advanceLocked() {
	now := s.currentTime()
	dt := now.Sub(s.last).Seconds()
	s.last = now
	if dt <= 0 {
		return
	}
	for i, speed := range s.speeds {
		s.positions[i] += speed * chassis.MaxWheelSpeedMMPerSec * dt
	}
	s.heading += chassis.TurnRateDegPerSec(s.speeds[sideLeft], s.speeds[sideRight]) * dt
}

func (s *Sim) read(f func() float64) float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.virtual {
		s.now = s.now.Add(s.readStep)
	}
	s.advanceLocked()
	return f()
}

func (s *Sim) setSpeed(side int, speed float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.advanceLocked()
	if speed > 1 {
		speed = 1
	} else if speed < -1 {
		speed = -1
	}
	s.speeds[side] = speed
}

func (s *Sim) setClimb(side int, speed float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.climb[side] = speed
}

type simMotor struct {
	s    *Sim
	side int
}

func (m *simMotor) SetSpeed(speed float64) error {
	m.s.setSpeed(m.side, speed)
	return nil
}

type simEncoder struct {
	s    *Sim
	side int
}

func (e *simEncoder) Position() float64 {
	return e.s.read(func() float64 { return e.s.positions[e.side] })
}

type simHeading struct {
	s *Sim
}

func (h simHeading) Heading() float64 {
	return h.s.read(func() float64 { return h.s.heading })
}

type simClimbMotor struct {
	s    *Sim
	side int
}

func (m *simClimbMotor) SetSpeed(speed float64) error {
	m.s.log.Debug("Climber", zap.Int("side", m.side), zap.Float64("speed", speed))
	m.s.setClimb(m.side, speed)
	return nil
}
