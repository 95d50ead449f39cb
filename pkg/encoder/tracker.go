package encoder

import (
	"sync"

	"go.uber.org/zap"
)

// RawCounter is a free-running 16-bit hardware tick counter that wraps on overflow.
type RawCounter interface {
	RawCount() (int16, error)
}

// Tracker turns a wrapping RawCounter into a cumulative tick count.  It relies on being
// polled often enough that the counter moves less than half its range between polls.
type Tracker struct {
	src   RawCounter
	scale float64
	log   *zap.Logger

	lock          sync.Mutex
	doneFirstPoll bool
	lastRaw       int16
	accumulator   int64
}

// NewTracker returns a tracker reporting ticks multiplied by scale.  Use a negative
// scale for a counter that runs backwards.
func NewTracker(src RawCounter, scale float64, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		src:   src,
		scale: scale,
		log:   log.Named("enc"),
	}
}

func (t *Tracker) Poll() error {
	raw, err := t.src.RawCount()
	if err != nil {
		return err
	}

	t.lock.Lock()
	defer t.lock.Unlock()
	if t.doneFirstPoll {
		// int16 subtraction wraps, which gives the right delta across an overflow.
		delta := raw - t.lastRaw
		t.accumulator += int64(delta)
	}
	t.lastRaw = raw
	t.doneFirstPoll = true
	return nil
}

// Position polls the counter and returns the accumulated, scaled count.  A failed read
// is logged and the previous value returned.
func (t *Tracker) Position() float64 {
	if err := t.Poll(); err != nil {
		t.log.Warn("Failed to read encoder", zap.Error(err))
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	return float64(t.accumulator) * t.scale
}

func (t *Tracker) Zero() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.accumulator = 0
}
