package pca9685

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x40

	RegMode1 = 0x00
	RegMode2 = 0x01

	// Each PWM output has two 16-bit (low byte first) registers.
	// First register is the on time, second is the off time.
	RegLEDBase = 0x06

	RegPreScale = 0xfe // Pre-scaler for PWM frequency.

	NumPorts = 16

	PWMPeriod = 20 * time.Millisecond

	// Speed controllers (Victor, Talon in PWM mode) treat 1.5ms as stop.
	ServoMinPulseDuration = 1000 * time.Microsecond
	ServoMaxPulseDuration = 2000 * time.Microsecond

	PWMMax = 4095

	ServoMinPWM = float64(PWMMax * ServoMinPulseDuration / PWMPeriod)
	ServoMaxPWM = float64(PWMMax * ServoMaxPulseDuration / PWMPeriod)
)

type Interface interface {
	Configure() error
	SetServo(port int, value float64) error
	SetPWM(port int, value float64) error
	Close() error
}

type device interface {
	WriteReg(reg byte, buf []byte) error
	Close() error
}

type PCA9685 struct {
	lock sync.Mutex
	dev  device
	log  *zap.Logger
}

var _ Interface = (*PCA9685)(nil)

func New(deviceFile string, addr int, log *zap.Logger) (*PCA9685, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, fmt.Errorf("opening PCA9685 at %#x: %w", addr, err)
	}
	return newWithDevice(dev, log), nil
}

func newWithDevice(dev device, log *zap.Logger) *PCA9685 {
	if log == nil {
		log = zap.NewNop()
	}
	return &PCA9685{
		dev: dev,
		log: log.Named("pwm"),
	}
}

func (p *PCA9685) Configure() (err error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	// Put device to sleep.
	if err = p.dev.WriteReg(RegMode1, []byte{0x11}); err != nil {
		return
	}
	// Update pre-scaler for 50Hz.
	if err = p.dev.WriteReg(RegPreScale, []byte{0x79}); err != nil {
		return
	}
	// Trigger a reset
	if err = p.dev.WriteReg(RegMode1, []byte{0x01}); err != nil {
		return
	}
	// Required delay after reset.
	time.Sleep(1 * time.Millisecond)
	// Enable with register auto-increment.
	return p.dev.WriteReg(RegMode1, []byte{0x81})
}

// SetServo sets a servo-style pulse, value 0 for the minimum pulse and 1 for the maximum.
// Out of range values are clamped.
func (p *PCA9685) SetServo(port int, value float64) error {
	return p.write(port, uint16(ServoMinPWM+clamp01(value)*(ServoMaxPWM-ServoMinPWM)))
}

// SetPWM sets the raw duty cycle, 0 to 1.
func (p *PCA9685) SetPWM(port int, value float64) error {
	return p.write(port, uint16(PWMMax*clamp01(value)))
}

func (p *PCA9685) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.dev.Close()
}

func (p *PCA9685) write(port int, off uint16) error {
	if port < 0 || port >= NumPorts {
		p.log.Warn("Port out of range", zap.Int("port", port))
		return nil
	}
	addr := RegLEDBase + port*4

	p.lock.Lock()
	defer p.lock.Unlock()
	return p.dev.WriteReg(byte(addr), []byte{0, 0, byte(off & 0xff), byte(off >> 8)})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	} else if v > 1 {
		return 1
	}
	return v
}

// Channel is one output of the board driving a PWM speed controller.
type Channel struct {
	board Interface
	port  int
}

func NewChannel(board Interface, port int) *Channel {
	return &Channel{board: board, port: port}
}

// SetSpeed maps a speed in [-1, 1] onto the 1-2ms pulse range; 0 is the 1.5ms neutral
// pulse.  The board clamps anything outside the range.
func (c *Channel) SetSpeed(speed float64) error {
	return c.board.SetServo(c.port, (speed+1)/2)
}

func Dummy() Interface {
	return &dummyBoard{}
}

type dummyBoard struct{}

func (*dummyBoard) Configure() error {
	return nil
}

func (*dummyBoard) SetServo(port int, value float64) error {
	return nil
}

func (*dummyBoard) SetPWM(port int, value float64) error {
	return nil
}

func (*dummyBoard) Close() error {
	return nil
}
