package hardware

import (
	"context"

	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/climber"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/drivetrain"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/screen"
)

// Interface is the robot's drive hardware, real or simulated.
type Interface interface {
	// Start brings up the background sensor loops.  They exit when ctx is done.
	Start(ctx context.Context) error

	Gearboxes() (left, right drivetrain.Gearbox)
	HeadingSensor() drivetrain.HeadingSensor
	ClimbMotors() (left, right climber.Motor)
	// Clock is the delay primitive the motion primitives should use with this hardware.
	Clock() drivetrain.Clock

	PlaySound(path string)

	// Snapshot reports the current state for display.
	Snapshot() screen.Status

	// Shutdown zeroes all motors.
	Shutdown()
	// Close waits for the Start loops to exit and releases the devices.
	Close()
}
