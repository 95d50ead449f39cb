package pca9685

import (
	"bytes"
	"testing"
)

type write struct {
	reg  byte
	data []byte
}

type fakeDevice struct {
	writes []write
}

func (f *fakeDevice) WriteReg(reg byte, buf []byte) error {
	f.writes = append(f.writes, write{reg, append([]byte(nil), buf...)})
	return nil
}

func (f *fakeDevice) Close() error {
	return nil
}

func expectWrite(t *testing.T, w write, reg byte, off uint16) {
	t.Helper()
	want := []byte{0, 0, byte(off & 0xff), byte(off >> 8)}
	if w.reg != reg || !bytes.Equal(w.data, want) {
		t.Fatalf("Expected write to %#x of %v, got %#x %v", reg, want, w.reg, w.data)
	}
}

func TestChannelSpeedMapping(t *testing.T) {
	dev := &fakeDevice{}
	board := newWithDevice(dev, nil)

	ch := NewChannel(board, 2)
	_ = ch.SetSpeed(-1)
	_ = ch.SetSpeed(0)
	_ = ch.SetSpeed(1)
	_ = ch.SetSpeed(3)

	reg := byte(RegLEDBase + 2*4)
	neutral := ServoMinPWM + 0.5*(ServoMaxPWM-ServoMinPWM)
	expectWrite(t, dev.writes[0], reg, uint16(ServoMinPWM))
	expectWrite(t, dev.writes[1], reg, uint16(neutral))
	expectWrite(t, dev.writes[2], reg, uint16(ServoMaxPWM))
	// Over-range speed is clamped by the board.
	expectWrite(t, dev.writes[3], reg, uint16(ServoMaxPWM))
}

func TestPortOutOfRangeIgnored(t *testing.T) {
	dev := &fakeDevice{}
	board := newWithDevice(dev, nil)
	if err := board.SetPWM(NumPorts, 0.5); err != nil {
		t.Fatalf("Out of range port should be ignored, got %v", err)
	}
	if len(dev.writes) != 0 {
		t.Fatalf("Expected no writes, got %v", dev.writes)
	}
}

func TestConfigure(t *testing.T) {
	dev := &fakeDevice{}
	if err := newWithDevice(dev, nil).Configure(); err != nil {
		t.Fatal(err)
	}
	if len(dev.writes) != 4 || dev.writes[1].reg != RegPreScale {
		t.Fatalf("Unexpected configure sequence %v", dev.writes)
	}
}
