package teleop

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/climber"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/config"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/drivetrain"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/tunable"
)

const QuarterTurn = 90

// Mode drives the robot from the joystick.  The sticks arcade-drive, L1/R1 run the
// climber while held, triangle/square turn a quarter turn and cross/circle move the
// tuned distance forward/back.  The D-pad picks (left/right) and adjusts (up/down) the
// tunables.
//
// Motion primitives run on their own goroutine, started by the loop.  While one is in
// flight the loop issues no drive commands; stick input is tracked but only applied once
// the stick moves again after the primitive finishes.
type Mode struct {
	name, startupSound string

	dt      *drivetrain.DriveTrain
	climber *climber.Climber
	log     *zap.Logger

	Tunables     *tunable.Tunables
	moveDistance *tunable.Tunable
	moveSpeed    *tunable.Tunable
	turnSpeed    *tunable.Tunable

	cancel         context.CancelFunc
	stopWG         sync.WaitGroup
	joystickEvents chan *joystick.Event
}

func New(name, startupSound string, dt *drivetrain.DriveTrain, c *climber.Climber, cfg config.TeleopConfig, log *zap.Logger) *Mode {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Mode{
		name:           name,
		startupSound:   startupSound,
		dt:             dt,
		climber:        c,
		log:            log.Named("teleop"),
		Tunables:       tunable.New(log),
		joystickEvents: make(chan *joystick.Event),
	}
	m.moveDistance = m.Tunables.Create("distance", cfg.MoveDistance, 100, 0, 5000)
	m.moveSpeed = m.Tunables.Create("move-speed", cfg.MoveSpeed, 0.05, 0, 1)
	m.turnSpeed = m.Tunables.Create("turn-speed", cfg.TurnSpeed, 0.05, 0, 1)
	return m
}

func (m *Mode) Name() string {
	return m.name
}

func (m *Mode) StartupSound() string {
	return m.startupSound
}

func (m *Mode) Start(ctx context.Context) {
	m.stopWG.Add(1)
	var loopCtx context.Context
	loopCtx, m.cancel = context.WithCancel(ctx)
	go m.loop(loopCtx)
}

// Stop cancels any motion primitive in flight and waits for the loop to exit.
func (m *Mode) Stop() {
	m.cancel()
	m.stopWG.Wait()
}

func (m *Mode) OnJoystickEvent(event *joystick.Event) {
	m.joystickEvents <- event
}

type primitive func(ctx context.Context) error

func (m *Mode) loop(ctx context.Context) {
	defer m.stopWG.Done()
	defer m.climber.Stop()
	defer m.dt.Brake()

	state := joystick.NewState()

	var primDone chan error
	var cancelPrim context.CancelFunc
	defer func() {
		if primDone != nil {
			cancelPrim()
			<-primDone
		}
	}()

	startPrimitive := func(desc string, p primitive) {
		if primDone != nil {
			m.log.Info("Motion in progress, ignoring", zap.String("motion", desc))
			return
		}
		m.log.Info("Starting motion", zap.String("motion", desc))
		var primCtx context.Context
		primCtx, cancelPrim = context.WithCancel(ctx)
		done := make(chan error, 1)
		primDone = done
		go func() {
			done <- p(primCtx)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-primDone:
			cancelPrim()
			primDone = nil
			if err != nil && !errors.Is(err, context.Canceled) {
				m.log.Error("Motion failed", zap.Error(err))
			} else {
				m.log.Info("Motion finished", zap.Error(err))
			}
		case event := <-m.joystickEvents:
			switch event.Type {
			case joystick.EventTypeAxis:
				switch event.Number {
				case joystick.AxisDPadX:
					if event.Value > 0 {
						m.Tunables.SelectNext()
					} else if event.Value < 0 {
						m.Tunables.SelectPrev()
					}
					continue
				case joystick.AxisDPadY:
					// Up is negative.
					if event.Value < 0 {
						m.Tunables.Current().Add(1)
					} else if event.Value > 0 {
						m.Tunables.Current().Add(-1)
					}
					continue
				}
				if !state.Apply(event) || primDone != nil {
					continue
				}
				f := state.Frame()
				m.dt.Debug(f.X, f.Y, f.Twist)
				m.dt.JArcadeDrive(f.X, f.Y, f.Twist)
			case joystick.EventTypeButton:
				if event.Initial {
					continue
				}
				switch event.Number {
				case joystick.ButtonL1:
					m.climb(event.Value == 1, m.climber.Up)
				case joystick.ButtonR1:
					m.climb(event.Value == 1, m.climber.Down)
				}
				if event.Value != 1 {
					continue
				}
				switch event.Number {
				case joystick.ButtonTriangle:
					startPrimitive("turn right", m.turn(QuarterTurn))
				case joystick.ButtonSquare:
					startPrimitive("turn left", m.turn(-QuarterTurn))
				case joystick.ButtonCross:
					startPrimitive("forward", m.move(1))
				case joystick.ButtonCircle:
					startPrimitive("back", m.move(-1))
				}
			}
		}
	}
}

func (m *Mode) climb(pressed bool, run func()) {
	if pressed {
		run()
		return
	}
	m.climber.Stop()
}

func (m *Mode) turn(delta float64) primitive {
	speed := m.turnSpeed.Get()
	return func(ctx context.Context) error {
		return m.dt.TurnDegRel(ctx, delta, speed)
	}
}

func (m *Mode) move(direction float64) primitive {
	distance := direction * m.moveDistance.Get()
	speed := m.moveSpeed.Get()
	return func(ctx context.Context) error {
		return m.dt.MoveDistance(ctx, distance, speed)
	}
}
