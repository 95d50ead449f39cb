package hardware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/climber"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/config"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/drivetrain"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/encoder"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/gearbox"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/imu"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/ina219"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/pca9685"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/screen"
	"github.com/tigerbot-team/tigerbot/go-drivetrain/pkg/sound"
)

const (
	encoderPollInterval = 10 * time.Millisecond
	batteryPollInterval = 10 * time.Second
)

// Hardware is the real robot: speed controllers on a PCA9685, wheel encoders on an I2C
// counter board and a gyro on SPI.
type Hardware struct {
	log *zap.Logger

	pwm      *pca9685.PCA9685
	encBoard encoder.Board
	trackers []*encoder.Tracker
	gyro     *imu.Gyro
	sounds   *sound.Player

	// battery is nil if the monitor failed to open.
	battery      ina219.Interface
	batteryVolts atomic.Uint64

	left, right           *gearbox.Gearbox
	climbLeft, climbRight *speedRecorder

	loopsDone sync.WaitGroup
}

var _ Interface = (*Hardware)(nil)

func New(cfg config.HardwareConfig, log *zap.Logger) (*Hardware, error) {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hardware{log: log.Named("hw")}

	var err error
	h.pwm, err = pca9685.New(cfg.I2CBus, cfg.PWMAddr, log)
	if err != nil {
		return nil, err
	}
	h.encBoard, err = encoder.OpenBoard(cfg.I2CBus, cfg.EncoderAddr)
	if err != nil {
		_ = h.pwm.Close()
		return nil, fmt.Errorf("opening encoder board: %w", err)
	}
	gyroDev, err := imu.NewSPI(cfg.GyroDevice, log)
	if err != nil {
		_ = h.pwm.Close()
		_ = h.encBoard.Close()
		return nil, fmt.Errorf("opening gyro: %w", err)
	}
	h.gyro = imu.NewGyro(gyroDev, imu.DefaultLoopInterval, log)

	// Both counters read through the one board handle.
	var encLock sync.Mutex
	h.left = h.newGearbox("left", cfg.Left, &encLock, log)
	h.right = h.newGearbox("right", cfg.Right, &encLock, log)

	h.climbLeft = &speedRecorder{Motor: pca9685.NewChannel(h.pwm, cfg.LeftClimbPort)}
	h.climbRight = &speedRecorder{Motor: pca9685.NewChannel(h.pwm, cfg.RightClimbPort)}

	battery, err := ina219.NewI2C(cfg.I2CBus, cfg.BatteryAddr, log)
	if err != nil {
		h.log.Warn("Failed to open power sensor; ignoring!", zap.Error(err))
	} else {
		h.battery = battery
	}

	h.sounds = sound.Start(log)
	return h, nil
}

func (h *Hardware) newGearbox(name string, cfg config.GearboxConfig, encLock *sync.Mutex, log *zap.Logger) *gearbox.Gearbox {
	counter := encoder.NewI2CCounter(encLock, h.encBoard, cfg.EncoderReg)
	tracker := encoder.NewTracker(counter, chassis.MMForTicks(1), log.Named(name))
	h.trackers = append(h.trackers, tracker)

	var motors []gearbox.Motor
	for _, port := range cfg.Ports {
		motors = append(motors, pca9685.NewChannel(h.pwm, port))
	}
	return gearbox.New(gearbox.Config{Name: name, Inverted: cfg.Inverted}, tracker, log, motors...)
}

// Start configures the PWM board, calibrates the gyro and starts the sensor loops.  The
// robot must be stationary.
func (h *Hardware) Start(ctx context.Context) error {
	if err := h.pwm.Configure(); err != nil {
		return fmt.Errorf("configuring PWM board: %w", err)
	}
	h.Shutdown()
	if err := h.gyro.Init(); err != nil {
		return fmt.Errorf("initialising gyro: %w", err)
	}
	for _, t := range h.trackers {
		t.Zero()
	}

	h.loopsDone.Add(2)
	go h.gyro.Loop(ctx, &h.loopsDone)
	go h.loopPollingEncoders(ctx)

	if h.battery != nil {
		if err := h.battery.Configure(ina219.DefaultShuntOhms, ina219.DefaultMaxCurrent); err != nil {
			h.log.Warn("Failed to configure power sensor; ignoring!", zap.Error(err))
		} else {
			h.loopsDone.Add(1)
			go h.loopMonitoringBattery(ctx)
		}
	}
	return nil
}

func (h *Hardware) loopMonitoringBattery(ctx context.Context) {
	defer h.loopsDone.Done()
	ticker := time.NewTicker(batteryPollInterval)
	defer ticker.Stop()
	for {
		bv, err := h.battery.ReadBusVoltage()
		if err == nil {
			h.batteryVolts.Store(math.Float64bits(bv))
			bc, _ := h.battery.ReadCurrent()
			h.log.Info("Battery", zap.Float64("volts", bv), zap.Float64("amps", bc))
		} else {
			h.log.Warn("Failed to read power sensor", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// loopPollingEncoders keeps the trackers up to date between reads so that no counter
// wrap is missed while the robot is idle.
func (h *Hardware) loopPollingEncoders(ctx context.Context) {
	defer h.loopsDone.Done()
	ticker := time.NewTicker(encoderPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, t := range h.trackers {
			if err := t.Poll(); err != nil {
				h.log.Warn("Failed to poll encoder", zap.Error(err))
			}
		}
	}
}

func (h *Hardware) Gearboxes() (left, right drivetrain.Gearbox) {
	return h.left, h.right
}

func (h *Hardware) HeadingSensor() drivetrain.HeadingSensor {
	return h.gyro
}

func (h *Hardware) ClimbMotors() (left, right climber.Motor) {
	return h.climbLeft, h.climbRight
}

func (h *Hardware) Clock() drivetrain.Clock {
	return drivetrain.WallClock
}

func (h *Hardware) PlaySound(path string) {
	h.sounds.Play(path)
}

func (h *Hardware) Snapshot() screen.Status {
	return screen.Status{
		Heading: h.gyro.Heading(),
		Left:    h.left.LastSpeed(),
		Right:   h.right.LastSpeed(),
		Climber: h.climbLeft.LastSpeed(),
		Battery: math.Float64frombits(h.batteryVolts.Load()),
	}
}

func (h *Hardware) Shutdown() {
	h.log.Info("Zeroing motors")
	h.left.Brake()
	h.right.Brake()
	for _, m := range []*speedRecorder{h.climbRight, h.climbLeft} {
		if err := m.SetSpeed(0); err != nil {
			h.log.Error("Failed to stop climber", zap.Error(err))
		}
	}
}

// Close waits for the sensor loops, which exit when the Start context is done, then
// releases the devices.
func (h *Hardware) Close() {
	h.loopsDone.Wait()
	h.sounds.Close()
	_ = h.encBoard.Close()
	_ = h.pwm.Close()
}

// speedRecorder remembers the last speed sent to a motor for the status display.
type speedRecorder struct {
	climber.Motor
	last atomic.Uint64
}

func (r *speedRecorder) SetSpeed(speed float64) error {
	r.last.Store(math.Float64bits(speed))
	return r.Motor.SetSpeed(speed)
}

func (r *speedRecorder) LastSpeed() float64 {
	return math.Float64frombits(r.last.Load())
}
