package encoder

import (
	"encoding/binary"
	"sync"

	"golang.org/x/exp/io/i2c"
)

const DefaultAddr = 0x44

// Board is the encoder board's register interface.  *i2c.Device satisfies it.
type Board interface {
	ReadReg(reg byte, buf []byte) error
	Close() error
}

func OpenBoard(deviceFile string, addr int) (Board, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// I2CCounter reads one 16-bit big-endian tick counter register from the encoder board.
// Counters on the same bus share lock.
type I2CCounter struct {
	lock *sync.Mutex
	dev  Board
	reg  byte
}

func NewI2CCounter(lock *sync.Mutex, dev Board, reg byte) *I2CCounter {
	return &I2CCounter{
		lock: lock,
		dev:  dev,
		reg:  reg,
	}
}

func (c *I2CCounter) RawCount() (int16, error) {
	var buf [2]byte
	c.lock.Lock()
	err := c.dev.ReadReg(c.reg, buf[:])
	c.lock.Unlock()
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(buf[:])), nil
}
