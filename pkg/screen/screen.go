package screen

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
)

const (
	Size = 128

	DefaultDevice = "/dev/fb1"
)

// Status is what the drive hardware reports for display.
type Status struct {
	Heading     float64
	Left, Right float64
	Climber     float64
	// Battery is the drive pack voltage, 0 if unknown.
	Battery float64
}

type Source interface {
	Snapshot() Status
}

// Screen draws the robot status to the small TFT on the framebuffer.
type Screen struct {
	src Source
	log *zap.Logger

	lock   sync.Mutex
	mode   string
	notice string
}

func New(src Source, log *zap.Logger) *Screen {
	if log == nil {
		log = zap.NewNop()
	}
	return &Screen{src: src, log: log.Named("screen")}
}

func (s *Screen) SetMode(mode string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.mode = mode
}

func (s *Screen) SetNotice(notice string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.notice = notice
}

// ClearNotice removes the notice if it is still the one showing.
func (s *Screen) ClearNotice(notice string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.notice == notice {
		s.notice = ""
	}
}

// LoopUpdatingScreen redraws twice a second until the context is done, then blanks the
// screen.  A missing framebuffer disables the screen.
func (s *Screen) LoopUpdatingScreen(ctx context.Context, device string) {
	f, err := os.OpenFile(device, os.O_RDWR, 0666)
	if err != nil {
		s.log.Info("Failed to open screen, ignoring", zap.Error(err))
		return
	}
	defer f.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			var buf [Size * Size * 2]byte
			_ = writeFrame(f, buf[:])
			return
		case <-ticker.C:
		}
		buf := encodeRGB565(s.Render())
		if err := writeFrame(f, buf); err != nil {
			s.log.Error("Screen failure", zap.Error(err))
			return
		}
	}
}

// Render draws the current status.
func (s *Screen) Render() image.Image {
	s.lock.Lock()
	mode, notice := s.mode, s.notice
	s.lock.Unlock()
	var st Status
	if s.src != nil {
		st = s.src.Snapshot()
	}

	dc := gg.NewContext(Size, Size)
	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawString(mode, 4, 12)
	dc.DrawString(fmt.Sprintf("HDG %.1f", st.Heading), 4, 28)

	// Heading needle.
	dc.Push()
	dc.RotateAbout(gg.Radians(st.Heading), Size/2, 60)
	dc.DrawLine(Size/2, 60, Size/2, 40)
	dc.SetLineWidth(3)
	dc.Stroke()
	dc.Pop()

	drawSpeedBar(dc, 10, st.Left)
	drawSpeedBar(dc, Size-20, st.Right)
	dc.DrawString(fmt.Sprintf("CLB %+.1f", st.Climber), 36, 100)

	if st.Battery > 0 {
		dc.Push()
		dc.Translate(Size-34, 0)
		dc.Scale(0.4, 0.4)
		drawPowerBar(dc, st.Battery)
		dc.Pop()
	}

	if notice != "" {
		dc.Push()
		dc.Translate(20, 118)
		DrawWarning(dc)
		dc.Pop()
		dc.SetRGBA(1, 0.2, 0, 1)
		dc.DrawString(notice, 36, 122)
	}
	return dc.Image()
}

// drawSpeedBar draws a vertical bar centred at y=80, up for forwards.
func drawSpeedBar(dc *gg.Context, x, speed float64) {
	if speed > 1 {
		speed = 1
	} else if speed < -1 {
		speed = -1
	}
	dc.DrawRectangle(x, 80, 10, 1)
	h := speed * 30
	if h >= 0 {
		dc.DrawRectangle(x+2, 80-h, 6, h)
	} else {
		dc.DrawRectangle(x+2, 80, 6, -h)
	}
	dc.Fill()
}

const (
	minCellVoltage = 3
	maxCellVoltage = 4.2
)

func drawPowerBar(dc *gg.Context, voltage float64) {
	var cells float64
	switch {
	case voltage > 13:
		cells = 4
	case voltage > 9:
		cells = 3
	default:
		cells = 2
	}
	charge := (voltage/cells - minCellVoltage) / (maxCellVoltage - minCellVoltage)

	// Colour depends on charge level.
	if charge < 0.1 {
		dc.SetRGBA(1, 0.2, 0, 1)
	}
	dc.DrawRectangle(0, 70, 30, 10)
	for n := 2; n < 13; n++ {
		if charge >= (float64(n) / 13) {
			dc.DrawRectangle(2, 75-float64(n)*5, 26, 3)
		}
	}
	dc.Fill()
	dc.DrawString(fmt.Sprintf("%.1fv", voltage), -2, 93)
	dc.SetRGBA(1, 0.9, 0, 1)
}

func DrawWarning(dc *gg.Context) {
	dc.SetRGB(1, 0.2, 0)
	dc.DrawRegularPolygon(3, 0, 0, 7, 0)
	dc.Fill()
	dc.SetRGBA(0, 0, 0, 0.9)
	dc.DrawString("!", -2, 3)
}

// encodeRGB565 converts to the panel's rotated little-endian RGB565 layout.
func encodeRGB565(img image.Image) []byte {
	buf := make([]byte, Size*Size*2)
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(Size-1-y)*2+x*Size*2+1] = (rb << 3) | (gb >> 3)
			buf[(Size-1-y)*2+x*Size*2] = bb | (gb << 5)
		}
	}
	return buf
}

func writeFrame(f io.WriteSeeker, buf []byte) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	const row = Size * 2
	for i := 0; i < Size; i++ {
		if _, err := f.Write(buf[i*row : i*row+row]); err != nil {
			return err
		}
		time.Sleep(10 * time.Microsecond)
	}
	return nil
}
