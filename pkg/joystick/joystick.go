package joystick

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

// DS4 mapping under the Linux joystick driver.
//
// Axes are reported in [-32767, 32767]: sticks and D-pad are negative up and left; the
// analogue triggers L2 (2) and R2 (5) rest at -32767.

type EventType uint8

const (
	EventTypeButton EventType = 1
	EventTypeAxis   EventType = 2

	// eventTypeInit is or-ed into the synthetic events the driver sends on open to
	// report the initial state of every control.
	eventTypeInit = 0x80
)

const (
	ButtonCross    = 0
	ButtonCircle   = 1
	ButtonTriangle = 2
	ButtonSquare   = 3
	ButtonL1       = 4
	ButtonR1       = 5
	ButtonL2       = 6
	ButtonR2       = 7
	ButtonShare    = 8
	ButtonOptions  = 9
	ButtonPS       = 10
	ButtonLStick   = 11
	ButtonRStick   = 12

	AxisLStickX = 0
	AxisLStickY = 1
	AxisRStickX = 3
	AxisRStickY = 4
	AxisDPadX   = 6
	AxisDPadY   = 7
)

func (e EventType) String() string {
	switch e {
	case EventTypeAxis:
		return "axis"
	case EventTypeButton:
		return "button"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

type Joystick struct {
	device io.ReadCloser

	deviceEpoch    uint32
	wallclockEpoch time.Time
}

type rawEvent struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

type Event struct {
	Time   time.Time
	Value  int16
	Type   EventType
	Number uint8
	// Initial is set on the events that report the state of a control at open time.
	Initial bool
}

func (e *Event) String() string {
	return fmt.Sprintf("%v(%v)=%v", e.Type, e.Number, e.Value)
}

// Pressed returns true for a button-down event on the given button.
func (e *Event) Pressed(button uint8) bool {
	return e.Type == EventTypeButton && e.Number == button && e.Value == 1
}

// Released returns true for a button-up event on the given button.
func (e *Event) Released(button uint8) bool {
	return e.Type == EventTypeButton && e.Number == button && e.Value == 0
}

func NewJoystick(device string) (*Joystick, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, fmt.Errorf("opening joystick %s: %w", device, err)
	}
	return newJoystick(f), nil
}

func newJoystick(r io.ReadCloser) *Joystick {
	return &Joystick{device: r}
}

func (j *Joystick) ReadEvent() (*Event, error) {
	var rawEvent rawEvent
	err := binary.Read(j.device, binary.LittleEndian, &rawEvent)
	if err != nil {
		return nil, err
	}

	if j.deviceEpoch == 0 {
		j.deviceEpoch = rawEvent.Time
		j.wallclockEpoch = time.Now()
	}

	return &Event{
		Time:    j.wallclockEpoch.Add(time.Duration(rawEvent.Time-j.deviceEpoch) * time.Millisecond),
		Value:   rawEvent.Value,
		Type:    EventType(rawEvent.Type &^ eventTypeInit),
		Number:  rawEvent.Number,
		Initial: rawEvent.Type&eventTypeInit != 0,
	}, nil
}

func (j *Joystick) Close() error {
	return j.device.Close()
}
