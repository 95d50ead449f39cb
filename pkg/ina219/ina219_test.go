package ina219

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type fakePort struct {
	regs   map[byte][2]byte
	writes map[byte][]byte
}

func (f *fakePort) ReadReg(reg byte, buf []byte) error {
	r := f.regs[reg]
	copy(buf, r[:])
	return nil
}

func (f *fakePort) WriteReg(reg byte, buf []byte) error {
	f.writes[reg] = append([]byte(nil), buf...)
	return nil
}

func TestINA219(t *testing.T) {
	Convey("Given an INA219 on a fake bus", t, func() {
		p := &fakePort{regs: map[byte][2]byte{}, writes: map[byte][]byte{}}
		m := newWithPort(p, nil)

		Convey("Configure writes the calibration register", func() {
			So(m.Configure(0.1, 3.2), ShouldBeNil)
			cval := CalculateCalibrationValue(3.2/(1<<15), 0.1)
			So(p.writes[RegCalibration], ShouldResemble, []byte{byte(cval >> 8), byte(cval)})
		})

		Convey("Bus voltage drops the status bits", func() {
			// 3000 * 4mV = 12V, shifted up past the three status bits.
			raw := uint16(3000<<3 | 0x3)
			p.regs[RegBusV] = [2]byte{byte(raw >> 8), byte(raw)}
			v, err := m.ReadBusVoltage()
			So(err, ShouldBeNil)
			So(v, ShouldAlmostEqual, 12.0, 1e-9)
		})

		Convey("Current is signed", func() {
			So(m.Configure(0.1, 3.2), ShouldBeNil)
			p.regs[RegCurrent] = [2]byte{0xff, 0xff}
			c, err := m.ReadCurrent()
			So(err, ShouldBeNil)
			So(c, ShouldBeLessThan, 0)
		})
	})
}
