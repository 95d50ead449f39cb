package ina219

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x41

	RegConfig      = 0
	RegShuntV      = 1
	RegBusV        = 2
	RegPower       = 3
	RegCurrent     = 4
	RegCalibration = 5

	BusVoltageLSB = 0.004

	// Battery monitor shunt on the drive power rail.
	DefaultShuntOhms  = 0.1
	DefaultMaxCurrent = 3.2
)

// Interface is an INA219 bus voltage and current monitor.
type Interface interface {
	Configure(shuntOhms float64, maxCurrent float64) error
	ReadBusVoltage() (float64, error)
	ReadCurrent() (float64, error)
	ReadPower() (float64, error)
}

type port interface {
	ReadReg(reg byte, buf []byte) error
	WriteReg(reg byte, buf []byte) error
}

type INA219 struct {
	currentLSB float64
	dev        port
	log        *zap.Logger
}

var _ Interface = (*INA219)(nil)

func NewI2C(deviceFile string, addr int, log *zap.Logger) (*INA219, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, fmt.Errorf("opening INA219 at %#x: %w", addr, err)
	}
	return newWithPort(dev, log), nil
}

func newWithPort(dev port, log *zap.Logger) *INA219 {
	if log == nil {
		log = zap.NewNop()
	}
	return &INA219{dev: dev, log: log.Named("ina219")}
}

func (m *INA219) Configure(shuntOhms float64, maxCurrent float64) error {
	m.currentLSB = maxCurrent / (1 << 15)
	cval := CalculateCalibrationValue(m.currentLSB, shuntOhms)
	m.log.Debug("Calibration", zap.Int16("value", cval))
	return m.dev.WriteReg(RegCalibration, []byte{byte(cval >> 8), byte(cval)})
}

func (m *INA219) ReadBusVoltage() (float64, error) {
	raw, err := m.read16(RegBusV)
	// Low three bits are status flags.
	return float64(raw>>3) * BusVoltageLSB, err
}

func (m *INA219) ReadCurrent() (float64, error) {
	raw, err := m.read16(RegCurrent)
	return float64(int16(raw)) * m.currentLSB, err
}

func (m *INA219) ReadPower() (float64, error) {
	raw, err := m.read16(RegPower)
	return float64(raw) * m.currentLSB * 20, err
}

func (m *INA219) read16(reg byte) (uint16, error) {
	var buf [2]byte
	err := m.dev.ReadReg(reg, buf[:])
	return uint16(buf[0])<<8 | uint16(buf[1]), err
}

func CalculateCalibrationValue(currentLSB float64, shuntOhms float64) int16 {
	return int16(0.04096 / (currentLSB * shuntOhms))
}
