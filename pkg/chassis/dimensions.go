package chassis

import "math"

const (
	WheelDiameterMM float64 = 152.4
	WheelCircumMM           = WheelDiameterMM * math.Pi

	// TrackWidthMM is the distance between the centres of the left and right wheels.
	TrackWidthMM = 560

	EncoderTicksPerRev = 360

	// MaxWheelSpeedMMPerSec is the free-running wheel speed at a drive command of 1.
	MaxWheelSpeedMMPerSec = 2500
)

func TicksForMM(mm float64) float64 {
	return mm / WheelCircumMM * EncoderTicksPerRev
}

func MMForTicks(ticks float64) float64 {
	return ticks / EncoderTicksPerRev * WheelCircumMM
}

// TurnRateDegPerSec returns the rate of heading change for the given drive commands.
// Left forwards with right backwards turns clockwise, which increases the heading.
func TurnRateDegPerSec(left, right float64) float64 {
	vl := left * MaxWheelSpeedMMPerSec
	vr := right * MaxWheelSpeedMMPerSec
	return (vl - vr) / TrackWidthMM * 180 / math.Pi
}
