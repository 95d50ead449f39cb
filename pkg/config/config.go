package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/drivetrain"
)

const DefaultPath = "/cfg/drivetrain.yaml"

type Config struct {
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	Joystick JoystickConfig `yaml:"joystick"`
	Drive    DriveConfig    `yaml:"drive"`
	Climber  ClimberConfig  `yaml:"climber"`
	Teleop   TeleopConfig   `yaml:"teleop"`
	Hardware HardwareConfig `yaml:"hardware"`
	Sounds   SoundConfig    `yaml:"sounds"`
}

type JoystickConfig struct {
	Device string `yaml:"device" env:"JOYSTICK_DEVICE"`
}

type DriveConfig struct {
	TwistThreshold      float64       `yaml:"twist_threshold"`
	TwistFactor         float64       `yaml:"twist_factor"`
	EncoderRatio        float64       `yaml:"encoder_ratio"`
	HeadingPollInterval time.Duration `yaml:"heading_poll_interval"`
}

func (d DriveConfig) Params() drivetrain.Params {
	return drivetrain.Params{
		TwistThreshold:      d.TwistThreshold,
		TwistFactor:         d.TwistFactor,
		EncoderRatio:        d.EncoderRatio,
		HeadingPollInterval: d.HeadingPollInterval,
	}
}

type ClimberConfig struct {
	Speed float64 `yaml:"speed"`
}

// TeleopConfig holds the starting values of the teleop tunables.
type TeleopConfig struct {
	MoveDistance float64 `yaml:"move_distance"`
	MoveSpeed    float64 `yaml:"move_speed"`
	TurnSpeed    float64 `yaml:"turn_speed"`
}

type HardwareConfig struct {
	I2CBus      string `yaml:"i2c_bus" env:"I2C_BUS"`
	PWMAddr     int    `yaml:"pwm_addr"`
	EncoderAddr int    `yaml:"encoder_addr"`
	BatteryAddr int    `yaml:"battery_addr"`
	GyroDevice  string `yaml:"gyro_device" env:"GYRO_DEVICE"`
	Screen      string `yaml:"screen_device"`

	Left  GearboxConfig `yaml:"left"`
	Right GearboxConfig `yaml:"right"`

	LeftClimbPort  int `yaml:"left_climb_port"`
	RightClimbPort int `yaml:"right_climb_port"`
}

type GearboxConfig struct {
	Ports      []int `yaml:"ports"`
	EncoderReg byte  `yaml:"encoder_reg"`
	Inverted   bool  `yaml:"inverted"`
}

type SoundConfig struct {
	Start  string `yaml:"start"`
	Teleop string `yaml:"teleop"`
	Pause  string `yaml:"pause"`
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Joystick: JoystickConfig{Device: "/dev/input/js0"},
		Drive: DriveConfig{
			TwistThreshold:      drivetrain.DefaultTwistThreshold,
			TwistFactor:         drivetrain.DefaultTwistFactor,
			EncoderRatio:        drivetrain.DefaultEncoderRatio,
			HeadingPollInterval: drivetrain.DefaultHeadingPollInterval,
		},
		Climber: ClimberConfig{Speed: 1},
		Teleop: TeleopConfig{
			MoveDistance: 1000,
			MoveSpeed:    0.5,
			TurnSpeed:    0.4,
		},
		Hardware: HardwareConfig{
			I2CBus:      "/dev/i2c-1",
			PWMAddr:     0x40,
			EncoderAddr: 0x44,
			BatteryAddr: 0x41,
			GyroDevice:  "/dev/spidev0.1",
			Screen:      "/dev/fb1",
			Left:        GearboxConfig{Ports: []int{0, 1}, EncoderReg: 0},
			Right:       GearboxConfig{Ports: []int{2, 3}, EncoderReg: 2, Inverted: true},

			LeftClimbPort:  4,
			RightClimbPort: 5,
		},
		Sounds: SoundConfig{
			Start:  "/sounds/tigerbotstart.wav",
			Teleop: "/sounds/rcmode.wav",
			Pause:  "/sounds/pausemode.wav",
		},
	}
}

// Load reads the YAML file over the defaults, then applies environment overrides.  A
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("reading environment: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.Drive.TwistThreshold < 0 || c.Drive.TwistThreshold >= 1:
		return fmt.Errorf("twist_threshold %v must be in [0, 1)", c.Drive.TwistThreshold)
	case c.Drive.EncoderRatio <= 0:
		return fmt.Errorf("encoder_ratio %v must be positive", c.Drive.EncoderRatio)
	case c.Drive.HeadingPollInterval <= 0:
		return fmt.Errorf("heading_poll_interval %v must be positive", c.Drive.HeadingPollInterval)
	case c.Climber.Speed < 0 || c.Climber.Speed > 1:
		return fmt.Errorf("climber speed %v must be in [0, 1]", c.Climber.Speed)
	case len(c.Hardware.Left.Ports) == 0 || len(c.Hardware.Right.Ports) == 0:
		return errors.New("each gearbox needs at least one motor port")
	}
	return nil
}
