package drivetrain

import "math"

// Normalize scales values in place so that none exceeds 1 in magnitude, keeping their
// signs and ratios.  Values already within range are left alone.
func Normalize(values []float64) []float64 {
	var max float64
	for _, v := range values {
		if a := math.Abs(v); a > max {
			max = a
		}
	}
	if max > 1 {
		for i := range values {
			values[i] /= max
		}
	}
	return values
}

// Mix is the arcade mixer.  Note that it is deliberately not symmetric: positive x is
// added to the left side, negative x is subtracted from the right side.
func Mix(x, y, angle float64) (left, right float64) {
	if x > 0 {
		left = y + x - angle
		right = y + angle
	} else {
		left = y - angle
		right = y - x + angle
	}
	return
}

// ConditionTwist applies a soft deadband: values inside the threshold become 0 and values
// outside are pulled toward 0 by the threshold.
func ConditionTwist(twist, threshold float64) float64 {
	if math.Abs(twist) < threshold {
		return 0
	}
	if twist > 0 {
		return twist - threshold
	}
	return twist + threshold
}
