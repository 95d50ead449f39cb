package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/abiosoft/ishell/v2"
	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/climber"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/config"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/drivetrain"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/logging"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "YAML config file")
	sim := flag.Bool("sim", false, "drive the simulator instead of the hardware")
	timeout := flag.Duration("timeout", 30*time.Second, "give up on a move or turn after this long")
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hw hardware.Interface
	if *sim {
		hw = hardware.NewSim(log)
	} else if hw, err = hardware.New(cfg.Hardware, log); err != nil {
		log.Fatal("Failed to open hardware", zap.Error(err))
	}
	if err := hw.Start(ctx); err != nil {
		log.Fatal("Failed to start hardware", zap.Error(err))
	}
	defer func() {
		hw.Shutdown()
		cancel()
		hw.Close()
	}()

	left, right := hw.Gearboxes()
	dt := drivetrain.New(left, right, hw.HeadingSensor(), cfg.Drive.Params(),
		drivetrain.WithClock(hw.Clock()), drivetrain.WithLogger(log))
	climbLeft, climbRight := hw.ClimbMotors()
	ctl := &controller{
		dt:      dt,
		climber: climber.New(climbLeft, climbRight, cfg.Climber.Speed, log),
		status:  hw,
		timeout: *timeout,
	}

	shell := ishell.New()
	shell.Println("Drivetrain direct control shell")
	for _, cmd := range ctl.commands() {
		cmd := cmd
		shell.AddCmd(&ishell.Cmd{
			Name: cmd.name,
			Help: cmd.help,
			Func: func(c *ishell.Context) {
				out, err := ctl.run(ctx, cmd, c.Args)
				report(c, out, err)
			},
		})
	}
	shell.AddCmd(&ishell.Cmd{
		Name: "climb",
		Help: "climb up|down|stop",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				report(c, "", fmt.Errorf("%w: climb up|down|stop", errUsage))
				return
			}
			out, err := ctl.climb(c.Args[0])
			report(c, out, err)
		},
	})
	shell.Run()
}

func report(c *ishell.Context, out string, err error) {
	if err != nil {
		c.Err(err)
	}
	if out != "" {
		c.Println(out)
	}
}
