package gearbox

import (
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/drivetrain"
)

// Motor is one speed controller in the gearbox.
type Motor interface {
	SetSpeed(speed float64) error
}

type Encoder interface {
	Position() float64
}

type Config struct {
	Name string
	// Inverted gearboxes are mounted mirrored: speeds and encoder counts are negated so
	// that positive always means forwards.
	Inverted bool
}

// Gearbox is a wheel set driven by one or more motors with a shared encoder.
type Gearbox struct {
	cfg    Config
	motors []Motor
	enc    Encoder
	log    *zap.Logger

	lastSpeed atomic.Uint64
}

var _ drivetrain.Gearbox = (*Gearbox)(nil)

func New(cfg Config, enc Encoder, log *zap.Logger, motors ...Motor) *Gearbox {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gearbox{
		cfg:    cfg,
		motors: motors,
		enc:    enc,
		log:    log.Named("gb").With(zap.String("gearbox", cfg.Name)),
	}
}

func (g *Gearbox) Name() string {
	return g.cfg.Name
}

func (g *Gearbox) Drive(speed float64) {
	g.log.Debug("Drive", zap.Float64("speed", speed))
	g.set(speed)
}

// Brake commands zero speed.
func (g *Gearbox) Brake() {
	g.log.Debug("Brake")
	g.set(0)
}

func (g *Gearbox) EncoderPosition() float64 {
	p := g.enc.Position()
	if g.cfg.Inverted {
		return -p
	}
	return p
}

// LastSpeed is the last commanded speed, before inversion.
func (g *Gearbox) LastSpeed() float64 {
	return math.Float64frombits(g.lastSpeed.Load())
}

func (g *Gearbox) set(speed float64) {
	g.lastSpeed.Store(math.Float64bits(speed))
	if g.cfg.Inverted {
		speed = -speed
	}
	for i, m := range g.motors {
		if err := m.SetSpeed(speed); err != nil {
			g.log.Error("Failed to set motor speed", zap.Int("motor", i), zap.Error(err))
		}
	}
}
