package pausemode

import (
	"context"
	"testing"
)

type calls []string

type fakeDrive struct{ c *calls }

func (f fakeDrive) Brake() { *f.c = append(*f.c, "brake") }

type fakeClimber struct{ c *calls }

func (f fakeClimber) Stop() { *f.c = append(*f.c, "stop") }

func TestStartBrakesAndStopsClimber(t *testing.T) {
	var c calls
	p := New(fakeDrive{&c}, fakeClimber{&c}, "pause.wav", nil)
	p.Start(context.Background())
	p.Stop()

	if len(c) != 2 || c[0] != "brake" || c[1] != "stop" {
		t.Fatalf("Expected brake then stop, got %v", c)
	}
	if p.StartupSound() != "pause.wav" {
		t.Fatalf("Unexpected sound %q", p.StartupSound())
	}
}
