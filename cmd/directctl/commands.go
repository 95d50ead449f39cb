package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/climber"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/drivetrain"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/screen"
)

type command struct {
	name  string
	help  string
	nargs int
	run   func(ctx context.Context, args []float64) (string, error)
}

var errUsage = errors.New("usage")

// controller runs shell commands against the drivetrain.  Motion commands give up after
// timeout.
type controller struct {
	dt      *drivetrain.DriveTrain
	climber *climber.Climber
	status  screen.Source
	timeout time.Duration
}

func (c *controller) commands() []command {
	return []command{
		{"arcade", "arcade <x> <y> <angle>", 3, func(_ context.Context, a []float64) (string, error) {
			c.dt.ArcadeDrive(a[0], a[1], a[2])
			return c.describe(), nil
		}},
		{"jarcade", "jarcade <x> <y> <twist>: raw joystick values", 3, func(_ context.Context, a []float64) (string, error) {
			c.dt.Debug(a[0], a[1], a[2])
			c.dt.JArcadeDrive(a[0], a[1], a[2])
			return c.describe(), nil
		}},
		{"move", "move <distance> <speed>", 2, func(ctx context.Context, a []float64) (string, error) {
			return c.motion(ctx, func(ctx context.Context) error { return c.dt.MoveDistance(ctx, a[0], a[1]) })
		}},
		{"turn", "turn <heading> <speed>: absolute heading in degrees", 2, func(ctx context.Context, a []float64) (string, error) {
			return c.motion(ctx, func(ctx context.Context) error { return c.dt.TurnDegAbs(ctx, a[0], a[1]) })
		}},
		{"turnrel", "turnrel <degrees> <speed>", 2, func(ctx context.Context, a []float64) (string, error) {
			return c.motion(ctx, func(ctx context.Context) error { return c.dt.TurnDegRel(ctx, a[0], a[1]) })
		}},
		{"brake", "brake", 0, func(_ context.Context, _ []float64) (string, error) {
			c.dt.Brake()
			return c.describe(), nil
		}},
		{"status", "status", 0, func(_ context.Context, _ []float64) (string, error) {
			return c.describe(), nil
		}},
	}
}

// climb is separate as it takes a word rather than numbers.
func (c *controller) climb(direction string) (string, error) {
	switch direction {
	case "up":
		c.climber.Up()
	case "down":
		c.climber.Down()
	case "stop":
		c.climber.Stop()
	default:
		return "", fmt.Errorf("%w: climb up|down|stop", errUsage)
	}
	return c.describe(), nil
}

func (c *controller) run(ctx context.Context, cmd command, args []string) (string, error) {
	if len(args) != cmd.nargs {
		return "", fmt.Errorf("%w: %s", errUsage, cmd.help)
	}
	values := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return "", fmt.Errorf("%w: %s: bad number %q", errUsage, cmd.help, a)
		}
		values[i] = v
	}
	return cmd.run(ctx, values)
}

func (c *controller) motion(ctx context.Context, f func(ctx context.Context) error) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	if err := f(ctx); err != nil {
		return c.describe(), fmt.Errorf("motion stopped after %v: %w", time.Since(start).Round(time.Millisecond), err)
	}
	return c.describe(), nil
}

func (c *controller) describe() string {
	st := c.status.Snapshot()
	return fmt.Sprintf("heading=%.1f left=%.2f right=%.2f climber=%.1f", st.Heading, st.Left, st.Right, st.Climber)
}
