package drivetrain

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Gearbox is one independently driven wheel set.  Speeds are normalised to [-1, 1] but
// are passed through unclamped; saturation is the gearbox's business.
type Gearbox interface {
	Drive(speed float64)
	Brake()
	// EncoderPosition returns the cumulative encoder count, proportional to distance.
	EncoderPosition() float64
}

// HeadingSensor reports the absolute heading in degrees.  The value is not wrapped into
// a single revolution.
type HeadingSensor interface {
	Heading() float64
}

// Clock is the delay primitive used between heading polls.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type wallClock struct{}

// WallClock sleeps in real time.
var WallClock Clock = wallClock{}

func (wallClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

const (
	DefaultTwistThreshold      = 0.3
	DefaultTwistFactor         = 0.5
	DefaultEncoderRatio        = 1.0
	DefaultHeadingPollInterval = 100 * time.Millisecond
)

type Params struct {
	// TwistThreshold is the soft deadband applied to joystick twist.
	TwistThreshold float64
	// TwistFactor scales twist down after the deadband.
	TwistFactor float64
	// EncoderRatio converts a commanded distance into encoder ticks.
	EncoderRatio float64
	// HeadingPollInterval is the sleep between heading reads while turning.
	HeadingPollInterval time.Duration
}

func DefaultParams() Params {
	return Params{
		TwistThreshold:      DefaultTwistThreshold,
		TwistFactor:         DefaultTwistFactor,
		EncoderRatio:        DefaultEncoderRatio,
		HeadingPollInterval: DefaultHeadingPollInterval,
	}
}

// DriveTrain mixes teleop input into differential gearbox commands and runs the
// distance and heading motion primitives.  It is not safe for concurrent use: the
// caller must make sure only one control mode drives it at a time.
type DriveTrain struct {
	left, right Gearbox
	navx        HeadingSensor
	clock       Clock
	params      Params
	log         *zap.Logger
}

type Option func(*DriveTrain)

func WithClock(c Clock) Option {
	return func(d *DriveTrain) {
		d.clock = c
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(d *DriveTrain) {
		d.log = l
	}
}

func New(left, right Gearbox, heading HeadingSensor, params Params, opts ...Option) *DriveTrain {
	d := &DriveTrain{
		left:   left,
		right:  right,
		navx:   heading,
		clock:  WallClock,
		params: params,
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(d)
	}
	d.log = d.log.Named("dt")
	return d
}

func (d *DriveTrain) Params() Params {
	return d.params
}

// Heading returns the current sensor heading.
func (d *DriveTrain) Heading() float64 {
	return d.navx.Heading()
}

// ArcadeDrive mixes x (positive is right), y (positive is forward) and angle (positive
// is counter-clockwise) into left and right speeds and sends them, left first.
func (d *DriveTrain) ArcadeDrive(x, y, angle float64) {
	l, r := Mix(x, y, angle)
	drive := Normalize([]float64{l, r})
	d.left.Drive(drive[0])
	d.right.Drive(drive[1])
}

// JArcadeDrive conditions raw joystick input and passes it to ArcadeDrive.  The
// joystick's y axis and twist are both inverted relative to the drive convention.
func (d *DriveTrain) JArcadeDrive(x, y, twist float64) {
	twist = ConditionTwist(twist, d.params.TwistThreshold)
	y = -y
	twist = -twist * d.params.TwistFactor
	d.ArcadeDrive(x, y, twist)
}

// Brake brakes both gearboxes.
func (d *DriveTrain) Brake() {
	d.left.Brake()
	d.right.Brake()
}

// Debug logs a joystick triple.
func (d *DriveTrain) Debug(x, y, twist float64) {
	d.log.Sugar().Infof("X: %v Y: %v Twist: %v", x, y, twist)
}

// MoveDistance drives straight until both encoders have moved |distance| * ratio ticks.
// There is no timeout; a wheel that never reaches the target keeps this blocked until
// ctx is cancelled, at which point both sides are braked and ctx.Err() is returned.
func (d *DriveTrain) MoveDistance(ctx context.Context, distance, speed float64) error {
	m := d.NewDistanceMove(distance, speed)
	d.log.Info("Moving", zap.Float64("distance", distance), zap.Float64("speed", speed),
		zap.Float64("targetTicks", m.Target()))
	m.Start()
	for m.Poll() != PhaseDone {
		if err := ctx.Err(); err != nil {
			d.log.Warn("Move cancelled", zap.Stringer("phase", m.Phase()))
			d.Brake()
			return err
		}
	}
	d.log.Info("Move done")
	return nil
}

// TurnDegAbs turns on the spot until the heading sensor reaches target, polling every
// HeadingPollInterval.
func (d *DriveTrain) TurnDegAbs(ctx context.Context, target, speed float64) error {
	t := d.NewHeadingTurn(target, speed)
	t.Start()
	d.log.Info("Turning", zap.Float64("start", t.StartHeading()), zap.Float64("target", target),
		zap.Float64("speed", speed))
	for t.Poll() != PhaseDone {
		select {
		case <-ctx.Done():
			d.log.Warn("Turn cancelled", zap.Float64("heading", d.navx.Heading()))
			d.Brake()
			return ctx.Err()
		case <-d.clock.After(d.params.HeadingPollInterval):
		}
	}
	d.log.Info("Turn done", zap.Float64("heading", t.LastHeading()))
	return nil
}

// TurnDegRel turns by delta degrees relative to the heading at the time of the call.
func (d *DriveTrain) TurnDegRel(ctx context.Context, delta, speed float64) error {
	return d.TurnDegAbs(ctx, d.navx.Heading()+delta, speed)
}
