package screen

import (
	"image"
	"image/color"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type staticSource Status

func (s staticSource) Snapshot() Status {
	return Status(s)
}

func TestScreen(t *testing.T) {
	Convey("Given a screen over a static status", t, func() {
		s := New(staticSource{Heading: 45, Left: 0.5, Right: -1.5, Climber: 1, Battery: 10.5}, nil)
		s.SetMode("Teleop")

		Convey("Render produces a full frame", func() {
			img := s.Render()
			So(img.Bounds().Dx(), ShouldEqual, Size)
			So(img.Bounds().Dy(), ShouldEqual, Size)
		})

		Convey("ClearNotice only clears the matching notice", func() {
			s.SetNotice("NO JOY")
			s.ClearNotice("LOW BATT")
			So(s.notice, ShouldEqual, "NO JOY")
			s.ClearNotice("NO JOY")
			So(s.notice, ShouldEqual, "")
		})
	})
}

func TestEncodeRGB565(t *testing.T) {
	Convey("Encoding a white pixel at the origin", t, func() {
		img := image.NewRGBA(image.Rect(0, 0, Size, Size))
		img.Set(0, 0, color.White)
		buf := encodeRGB565(img)

		So(len(buf), ShouldEqual, Size*Size*2)
		// (0, 0) lands at the end of the first column after rotation.
		So(buf[(Size-1)*2], ShouldEqual, byte(0xff))
		So(buf[(Size-1)*2+1], ShouldEqual, byte(0xff))
		So(buf[0], ShouldEqual, byte(0))
	})
}
