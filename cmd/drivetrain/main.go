package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/climber"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/config"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/drivetrain"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/logging"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/pausemode"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/screen"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/teleop"
)

type Mode interface {
	Name() string
	StartupSound() string
	Start(ctx context.Context)
	Stop()
}

type JoystickUser interface {
	OnJoystickEvent(event *joystick.Event)
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "YAML config file")
	sim := flag.Bool("sim", false, "drive the simulator instead of the hardware")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Bad config:", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("---- Drivetrain ----", zap.Int("GOMAXPROCS", runtime.GOMAXPROCS(0)))

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel, log)

	// Initialise the hardware.
	var hw hardware.Interface
	if *sim {
		hw = hardware.NewSim(log)
	} else {
		hw, err = hardware.New(cfg.Hardware, log)
		if err != nil {
			log.Fatal("Failed to open hardware", zap.Error(err))
		}
	}
	defer func() {
		log.Info("Zeroing motors for shut down")
		hw.Shutdown()
		cancel()
		hw.Close()
		time.Sleep(100 * time.Millisecond)
	}()
	if err := hw.Start(ctx); err != nil {
		log.Fatal("Failed to start hardware", zap.Error(err))
	}

	scr := screen.New(hw, log)
	go scr.LoopUpdatingScreen(ctx, cfg.Hardware.Screen)

	left, right := hw.Gearboxes()
	dt := drivetrain.New(left, right, hw.HeadingSensor(), cfg.Drive.Params(),
		drivetrain.WithClock(hw.Clock()), drivetrain.WithLogger(log))
	climbLeft, climbRight := hw.ClimbMotors()
	cl := climber.New(climbLeft, climbRight, cfg.Climber.Speed, log)

	// Wait for the joystick and kick off a background thread to read from it.
	joystickEvents := initJoystick(ctx, cancel, cfg.Joystick.Device, scr, log)

	hw.PlaySound(cfg.Sounds.Start)

	allModes := []Mode{
		teleop.New("Teleop", cfg.Sounds.Teleop, dt, cl, cfg.Teleop, log),
		pausemode.New(dt, cl, cfg.Sounds.Pause, log),
	}
	activeModeIdx := 0
	activeMode := allModes[activeModeIdx]
	log.Info("----- " + activeMode.Name() + " -----")
	scr.SetMode(activeMode.Name())
	activeMode.Start(ctx)

	switchMode := func(delta int) {
		activeMode.Stop()
		dt.Brake()
		cl.Stop()
		activeModeIdx = (activeModeIdx + delta + len(allModes)) % len(allModes)
		activeMode = allModes[activeModeIdx]
		log.Info("----- " + activeMode.Name() + " -----")
		scr.SetMode(activeMode.Name())
		hw.PlaySound(activeMode.StartupSound())
		activeMode.Start(ctx)
	}

	watchdog := time.NewTicker(5 * time.Second)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Context done, stopping active mode and shutting down")
			activeMode.Stop()
			return
		case event, ok := <-joystickEvents:
			if !ok {
				log.Error("Joystick events channel closed!")
				activeMode.Stop()
				return
			}
			// Intercept Options/Share to implement mode switching.
			if event.Pressed(joystick.ButtonOptions) {
				log.Info("Options pressed: switching modes >>")
				switchMode(1)
				continue
			} else if event.Pressed(joystick.ButtonShare) {
				log.Info("Share pressed: switching modes <<")
				switchMode(-1)
				continue
			}
			// Pass other joystick events through if this mode requires them.
			if ju, ok := activeMode.(JoystickUser); ok {
				done := make(chan struct{})
				go func() {
					defer close(done)
					ju.OnJoystickEvent(event)
				}()
				timeout := time.NewTimer(1 * time.Second)
				select {
				case <-done:
					timeout.Stop()
				case <-timeout.C:
					// The modes are supposed to just queue the event to their loop.  If
					// they block this long, they've probably deadlocked.
					log.Panic("Deadlock? Active mode blocked OnJoystickEvent for >1s")
				}
			}
		case <-watchdog.C:
			log.Debug("Main loop still running")
		}
	}
}

func initJoystick(ctx context.Context, cancel context.CancelFunc, device string, scr *screen.Screen, log *zap.Logger) chan *joystick.Event {
	joystickEvents := make(chan *joystick.Event, 1)
	const noJoy = "NO JOY"
	firstLog := true
	for ctx.Err() == nil {
		j, err := joystick.NewJoystick(device)
		if err != nil {
			if firstLog {
				scr.SetNotice(noJoy)
				log.Info("Waiting for joystick", zap.Error(err))
				firstLog = false
			}
			time.Sleep(1 * time.Second)
			continue
		}

		scr.ClearNotice(noJoy)
		log.Info("Opened joystick", zap.String("device", device))
		go func() {
			defer cancel()
			err := loopReadingJoystickEvents(ctx, j, joystickEvents, log)
			log.Error("Joystick failed", zap.Error(err))
		}()
		break
	}
	return joystickEvents
}

func registerSignalHandlers(cancelFunc context.CancelFunc, log *zap.Logger) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Info("Signal", zap.Stringer("signal", s))
		cancelFunc()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}

func loopReadingJoystickEvents(ctx context.Context, j *joystick.Joystick, events chan *joystick.Event, log *zap.Logger) error {
	defer close(events)
	defer j.Close()
	for ctx.Err() == nil {
		event, err := j.ReadEvent()
		if err != nil {
			return err
		}
		log.Debug("Joy", zap.Stringer("event", event))
		events <- event
	}
	return ctx.Err()
}
