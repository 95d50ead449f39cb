package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/climber"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/drivetrain"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/hardware"
)

func newSimController(timeout time.Duration) (*controller, *hardware.Sim) {
	sim := hardware.NewVirtualSim(time.Millisecond, nil)
	left, right := sim.Gearboxes()
	dt := drivetrain.New(left, right, sim.HeadingSensor(), drivetrain.DefaultParams(), drivetrain.WithClock(sim.Clock()))
	cl, cr := sim.ClimbMotors()
	return &controller{
		dt:      dt,
		climber: climber.New(cl, cr, climber.DefaultSpeed, nil),
		status:  sim,
		timeout: timeout,
	}, sim
}

func find(t *testing.T, c *controller, name string) command {
	t.Helper()
	for _, cmd := range c.commands() {
		if cmd.name == name {
			return cmd
		}
	}
	t.Fatalf("No command %q", name)
	return command{}
}

func TestArcadeCommand(t *testing.T) {
	c, _ := newSimController(time.Second)
	out, err := c.run(context.Background(), find(t, c, "arcade"), []string{"0", "2", "0"})
	require.NoError(t, err)
	assert.Contains(t, out, "left=1.00 right=1.00")
}

func TestMotionCommands(t *testing.T) {
	c, sim := newSimController(time.Second)

	_, err := c.run(context.Background(), find(t, c, "move"), []string{"250", "1"})
	require.NoError(t, err)
	l, r := sim.Position()
	assert.InDelta(t, 250, l, 6)
	assert.InDelta(t, 250, r, 6)

	out, err := c.run(context.Background(), find(t, c, "turn"), []string{"45", "0.5"})
	require.NoError(t, err)
	assert.Contains(t, out, "left=0.00 right=0.00")
	assert.GreaterOrEqual(t, sim.Snapshot().Heading, 45.0)
}

func TestBadArguments(t *testing.T) {
	c, _ := newSimController(time.Second)

	_, err := c.run(context.Background(), find(t, c, "move"), []string{"1"})
	assert.ErrorIs(t, err, errUsage)
	_, err = c.run(context.Background(), find(t, c, "turnrel"), []string{"left", "1"})
	assert.ErrorIs(t, err, errUsage)
	_, err = c.climb("sideways")
	assert.ErrorIs(t, err, errUsage)
}

func TestClimbCommand(t *testing.T) {
	c, sim := newSimController(time.Second)
	_, err := c.climb("down")
	require.NoError(t, err)
	assert.Equal(t, -1.0, sim.Snapshot().Climber)
}

func TestMotionTimesOut(t *testing.T) {
	c, _ := newSimController(time.Nanosecond)
	// Zero speed never arrives.
	_, err := c.run(context.Background(), find(t, c, "move"), []string{"100", "0"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
