package pausemode

import (
	"context"

	"go.uber.org/zap"
)

type Brakeable interface {
	Brake()
}

type Stoppable interface {
	Stop()
}

// PauseMode holds the robot still: the drivetrain is braked and the climber stopped on
// entry, and joystick input is ignored.
type PauseMode struct {
	drive   Brakeable
	climber Stoppable
	sound   string
	log     *zap.Logger
}

func New(drive Brakeable, climber Stoppable, startupSound string, log *zap.Logger) *PauseMode {
	if log == nil {
		log = zap.NewNop()
	}
	return &PauseMode{
		drive:   drive,
		climber: climber,
		sound:   startupSound,
		log:     log.Named("pause"),
	}
}

func (p *PauseMode) Name() string {
	return "Pause mode"
}

func (p *PauseMode) StartupSound() string {
	return p.sound
}

func (p *PauseMode) Start(ctx context.Context) {
	p.log.Info("Pausing")
	p.drive.Brake()
	p.climber.Stop()
}

func (p *PauseMode) Stop() {
}
