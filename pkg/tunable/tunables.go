package tunable

import (
	"math"
	"sync/atomic"

	"go.uber.org/zap"
)

// Tunable is a float setting adjusted from the D-pad while driving.
type Tunable struct {
	Name     string
	Step     float64
	Min, Max float64

	bits atomic.Uint64
	log  *zap.Logger
}

// Add moves the value by delta steps, clamped to [Min, Max].
func (t *Tunable) Add(delta int) float64 {
	for {
		old := t.bits.Load()
		v := math.Float64frombits(old) + float64(delta)*t.Step
		v = math.Max(t.Min, math.Min(t.Max, v))
		if t.bits.CompareAndSwap(old, math.Float64bits(v)) {
			t.log.Info("Tunable", zap.String("name", t.Name), zap.Float64("value", v))
			return v
		}
	}
}

func (t *Tunable) Get() float64 {
	return math.Float64frombits(t.bits.Load())
}

func (t *Tunable) Set(v float64) {
	t.bits.Store(math.Float64bits(v))
}

type Tunables struct {
	All      []*Tunable
	selected int
	log      *zap.Logger
}

func New(log *zap.Logger) *Tunables {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tunables{log: log.Named("tunable")}
}

func (t *Tunables) Create(name string, value, step, min, max float64) *Tunable {
	newTunable := &Tunable{
		Name: name,
		Step: step,
		Min:  min,
		Max:  max,
		log:  t.log,
	}
	newTunable.Set(value)
	t.All = append(t.All, newTunable)
	return newTunable
}

func (t *Tunables) SelectNext() {
	t.selected++
	if t.selected >= len(t.All) {
		t.selected = 0
	}
	t.logSelected()
}

func (t *Tunables) SelectPrev() {
	t.selected--
	if t.selected < 0 {
		t.selected = len(t.All) - 1
	}
	t.logSelected()
}

func (t *Tunables) Current() *Tunable {
	return t.All[t.selected]
}

func (t *Tunables) logSelected() {
	c := t.Current()
	t.log.Info("Tunable selected", zap.String("name", c.Name), zap.Float64("value", c.Get()))
}
