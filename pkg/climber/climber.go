package climber

import (
	"math"
	"sync/atomic"

	"go.uber.org/zap"
)

const DefaultSpeed = 1.0

// Motor is a single speed controller, speed in [-1, 1].
type Motor interface {
	SetSpeed(speed float64) error
}

// Climber drives the two climbing actuators together.  There is no feedback: each
// operation just commands a fixed speed.
type Climber struct {
	left, right Motor
	speed       float64

	// lastSpeed holds the float64 bits of the last commanded speed.
	lastSpeed atomic.Uint64

	log *zap.Logger
}

func New(left, right Motor, speed float64, log *zap.Logger) *Climber {
	if log == nil {
		log = zap.NewNop()
	}
	return &Climber{
		left:  left,
		right: right,
		speed: speed,
		log:   log.Named("climber"),
	}
}

func (c *Climber) Up() {
	c.set(c.left, c.speed)
	c.set(c.right, c.speed)
	c.store(c.speed)
}

func (c *Climber) Down() {
	c.set(c.left, -c.speed)
	c.set(c.right, -c.speed)
	c.store(-c.speed)
}

func (c *Climber) Stop() {
	c.set(c.right, 0)
	c.set(c.left, 0)
	c.store(0)
}

func (c *Climber) LastSpeed() float64 {
	return math.Float64frombits(c.lastSpeed.Load())
}

func (c *Climber) store(speed float64) {
	c.lastSpeed.Store(math.Float64bits(speed))
}

func (c *Climber) set(m Motor, speed float64) {
	if err := m.SetSpeed(speed); err != nil {
		c.log.Error("Failed to set climber speed", zap.Float64("speed", speed), zap.Error(err))
	}
}
