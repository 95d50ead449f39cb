package drivetrain

import (
	"math"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("values within range are unchanged", t, func() {
		So(Normalize([]float64{0.5, -1}), ShouldResemble, []float64{0.5, -1})
		So(Normalize([]float64{0, 0}), ShouldResemble, []float64{0, 0})
	})

	Convey("values out of range are divided by the largest magnitude", t, func() {
		out := Normalize([]float64{2, -1})
		So(out[0], ShouldAlmostEqual, 1, 1e-9)
		So(out[1], ShouldAlmostEqual, -0.5, 1e-9)

		out = Normalize([]float64{-4, 1, 3})
		So(out[0], ShouldAlmostEqual, -1, 1e-9)
		So(out[1], ShouldAlmostEqual, 0.25, 1e-9)
		So(out[2], ShouldAlmostEqual, 0.75, 1e-9)
	})

	Convey("scaling happens in place", t, func() {
		in := []float64{3, 1.5}
		Normalize(in)
		So(in[0], ShouldAlmostEqual, 1, 1e-9)
		So(in[1], ShouldAlmostEqual, 0.5, 1e-9)
	})

	Convey("random inputs always come out within range with ratios preserved", t, func() {
		r := rand.New(rand.NewSource(4828))
		for i := 0; i < 500; i++ {
			a, b := (r.Float64()-0.5)*8, (r.Float64()-0.5)*8
			out := Normalize([]float64{a, b})
			So(math.Abs(out[0]), ShouldBeLessThanOrEqualTo, 1+1e-12)
			So(math.Abs(out[1]), ShouldBeLessThanOrEqualTo, 1+1e-12)
			if math.Abs(b) > 0.1 {
				So(out[0]/out[1], ShouldAlmostEqual, a/b, 1e-9)
			}
		}
	})
}

func TestMix(t *testing.T) {
	Convey("straight ahead drives both sides equally", t, func() {
		l, r := Mix(0, 1, 0)
		So(l, ShouldEqual, 1)
		So(r, ShouldEqual, 1)
	})

	Convey("positive x is added to the left side only", t, func() {
		l, r := Mix(1, 0, 0)
		So(l, ShouldEqual, 1)
		So(r, ShouldEqual, 0)
	})

	Convey("negative x is subtracted from the right side only", t, func() {
		l, r := Mix(-1, 0, 0)
		So(l, ShouldEqual, 0)
		So(r, ShouldEqual, 1)
	})

	Convey("angle turns the sides in opposite directions", t, func() {
		l, r := Mix(0, 0, 0.5)
		So(l, ShouldEqual, -0.5)
		So(r, ShouldEqual, 0.5)

		l, r = Mix(0.5, 0.5, 0.25)
		So(l, ShouldEqual, 0.75)
		So(r, ShouldEqual, 0.75)
	})
}

func TestConditionTwist(t *testing.T) {
	Convey("inside the deadband twist is zero", t, func() {
		So(ConditionTwist(0.29, 0.3), ShouldEqual, 0)
		So(ConditionTwist(-0.29, 0.3), ShouldEqual, 0)
		So(ConditionTwist(0, 0.3), ShouldEqual, 0)
	})

	Convey("outside the deadband twist is shrunk toward zero", t, func() {
		So(ConditionTwist(0.5, 0.3), ShouldAlmostEqual, 0.2, 1e-9)
		So(ConditionTwist(-0.5, 0.3), ShouldAlmostEqual, -0.2, 1e-9)
		So(ConditionTwist(1, 0.3), ShouldAlmostEqual, 0.7, 1e-9)
		So(ConditionTwist(0.3, 0.3), ShouldAlmostEqual, 0, 1e-9)
	})
}

func TestArcadeDrive(t *testing.T) {
	Convey("Given a drivetrain", t, func() {
		rec := &recorder{}
		left, right := newFakeGearbox("left", rec), newFakeGearbox("right", rec)
		dt := New(left, right, &fakeHeading{}, DefaultParams())

		Convey("arcade drive sends left then right", func() {
			dt.ArcadeDrive(0, 1, 0)
			So(rec.calls, ShouldResemble, []string{"left.drive(1)", "right.drive(1)"})
		})

		Convey("arcade drive output is normalised", func() {
			dt.ArcadeDrive(1, 1, 0)
			So(left.speed, ShouldAlmostEqual, 1, 1e-9)
			So(right.speed, ShouldAlmostEqual, 0.5, 1e-9)
		})

		Convey("joystick forward is negative y", func() {
			dt.JArcadeDrive(0, -1, 0)
			So(left.speed, ShouldEqual, 1)
			So(right.speed, ShouldEqual, 1)
		})

		Convey("small twist behaves like no twist", func() {
			dt.JArcadeDrive(0.2, -0.4, 0.25)
			l1, r1 := left.speed, right.speed
			dt.JArcadeDrive(0.2, -0.4, 0)
			So(left.speed, ShouldEqual, l1)
			So(right.speed, ShouldEqual, r1)
		})

		Convey("twist of 0.5 reaches the mixer as an angle of -0.1", func() {
			dt.JArcadeDrive(0, 0, 0.5)
			// angle = -0.1, so left = +0.1, right = -0.1.
			So(left.speed, ShouldAlmostEqual, 0.1, 1e-9)
			So(right.speed, ShouldAlmostEqual, -0.1, 1e-9)
		})

		Convey("brake twice repeats the same commands", func() {
			dt.Brake()
			dt.Brake()
			So(rec.calls, ShouldResemble, []string{"left.brake", "right.brake", "left.brake", "right.brake"})
			So(left.speed, ShouldEqual, 0)
			So(right.speed, ShouldEqual, 0)
		})
	})
}
