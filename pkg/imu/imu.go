package imu

import (
	"math"

	"go.uber.org/zap"
	"golang.org/x/exp/io/i2c"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

const (
	IMUAddr = 0x68

	RegSampleRateDiv = 25
	RegConfig        = 26
	RegGyroConf      = 27
	RegGyroZOffset   = 23
	RegFIFOEnable    = 35
	RegGyroZ         = 71 // 16 bits
	RegUserCtl       = 106
	RegFIFOCount     = 114 // 16 bits
	RegFIFORW        = 116 // n-bytes

	GyroRange = 2 // 1000 dps

	SampleRateDiv = 9 // 100Hz FIFO rate
)

// Interface is a yaw-rate gyro with a sample FIFO.
type Interface interface {
	Configure() error
	Calibrate() error
	ReadFIFO() ([]int16, error)
	ResetFIFO() error
	DegreesPerLSB() float64
}

type port interface {
	ReadReg(reg byte, buf []byte) error
	WriteReg(reg byte, buf []byte) error
}

// MPU is an MPU-6000/9250 family gyro, yaw axis only.
type MPU struct {
	dev        port
	disableI2C bool
	log        *zap.Logger
}

var _ Interface = (*MPU)(nil)

func NewI2C(deviceFile string, log *zap.Logger) (*MPU, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, IMUAddr)
	if err != nil {
		return nil, err
	}
	return newMPU(dev, false, log), nil
}

func NewSPI(deviceFile string, log *zap.Logger) (*MPU, error) {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	p, err := spireg.Open(deviceFile)
	if err != nil {
		return nil, err
	}
	c, err := p.Connect(physic.MegaHertz, spi.Mode3, 8)
	if err != nil {
		return nil, err
	}
	return newMPU(&spiPort{c: c}, true, log), nil
}

func newMPU(dev port, disableI2C bool, log *zap.Logger) *MPU {
	if log == nil {
		log = zap.NewNop()
	}
	return &MPU{
		dev:        dev,
		disableI2C: disableI2C,
		log:        log.Named("imu"),
	}
}

// spiPort does register access over SPI: the top bit of the address byte selects read.
type spiPort struct {
	c    spi.Conn
	r, w []byte
}

const spiRead = 0x80

func (s *spiPort) ReadReg(reg byte, buf []byte) error {
	n := s.prepare(1 + len(buf))
	s.w[0] = spiRead | reg
	if err := s.c.Tx(s.w[:n], s.r[:n]); err != nil {
		return err
	}
	// The first byte clocked back is junk while the address goes out.
	copy(buf, s.r[1:n])
	return nil
}

func (s *spiPort) WriteReg(reg byte, buf []byte) error {
	n := s.prepare(1 + len(buf))
	s.w[0] = reg
	copy(s.w[1:], buf)
	return s.c.Tx(s.w[:n], s.r[:n])
}

func (s *spiPort) prepare(n int) int {
	if len(s.r) < n {
		s.w = make([]byte, n)
		s.r = make([]byte, n)
		return n
	}
	for i := 0; i < n; i++ {
		s.w[i] = 0
		s.r[i] = 0
	}
	return n
}

type regWrite struct {
	reg byte
	val byte
}

func (m *MPU) Configure() error {
	var writes []regWrite
	if m.disableI2C {
		writes = append(writes, regWrite{RegUserCtl, 0x10})
	}
	writes = append(writes,
		regWrite{RegGyroConf, GyroRange << 3},
		regWrite{RegConfig, 1}, // DLPF, Fs=1kHz
		regWrite{RegSampleRateDiv, SampleRateDiv},
		regWrite{RegFIFOEnable, 1 << 4}, // gyro Z only
	)
	for _, w := range writes {
		if err := m.dev.WriteReg(w.reg, []byte{w.val}); err != nil {
			return err
		}
	}
	return nil
}

func (m *MPU) DegreesPerLSB() float64 {
	return 1000.0 / math.MaxInt16
}

// Calibrate averages the gyro at rest and programs the offset register.  The robot must
// be stationary.
func (m *MPU) Calibrate() error {
	m.log.Info("Calibrating gyro")
	if err := m.dev.WriteReg(RegGyroZOffset, []byte{0, 0}); err != nil {
		return err
	}
	for i := 0; i < 100; i++ {
		if _, err := m.read16(RegGyroZ); err != nil {
			return err
		}
	}

	var sum float64
	const n = 1000
	for i := 0; i < n; i++ {
		z, err := m.read16(RegGyroZ)
		if err != nil {
			return err
		}
		sum -= float64(z)
	}
	offset := int16(sum / n / 4 * math.Pow(2, GyroRange))
	m.log.Info("Gyro offset", zap.Float64("raw", sum/n), zap.Int16("scaled", offset))
	return m.dev.WriteReg(RegGyroZOffset, []byte{byte(offset >> 8), byte(offset)})
}

func (m *MPU) ResetFIFO() error {
	return m.dev.WriteReg(RegUserCtl, []byte{1<<6 | 1<<2})
}

// ReadFIFO blocks until at least one sample is queued and returns all queued samples.
func (m *MPU) ReadFIFO() ([]int16, error) {
	var count int16
	for count == 0 {
		c, err := m.read16(RegFIFOCount)
		if err != nil {
			return nil, err
		}
		count = c & 0xfff
	}
	var buf [512]byte
	if int(count) > len(buf) {
		count = int16(len(buf))
	}
	if err := m.dev.ReadReg(RegFIFORW, buf[:count]); err != nil {
		return nil, err
	}
	result := make([]int16, count/2)
	for i := range result {
		result[i] = int16(buf[i*2])<<8 | int16(buf[i*2+1])
	}
	return result, nil
}

func (m *MPU) read16(reg byte) (int16, error) {
	var buf [2]byte
	if err := m.dev.ReadReg(reg, buf[:]); err != nil {
		return 0, err
	}
	return int16(buf[0])<<8 | int16(buf[1]), nil
}
