package imu

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// SampleInterval is the FIFO sample period: 1kHz DLPF rate divided by SampleRateDiv+1.
	SampleInterval = (SampleRateDiv + 1) * time.Millisecond

	DefaultLoopInterval = 20 * time.Millisecond
)

// Gyro integrates the yaw rate into a heading in degrees.  The heading is never wrapped:
// two full turns clockwise read 720.
type Gyro struct {
	dev          Interface
	loopInterval time.Duration
	log          *zap.Logger

	lock    sync.Mutex
	heading float64
	samples int
}

func NewGyro(dev Interface, loopInterval time.Duration, log *zap.Logger) *Gyro {
	if log == nil {
		log = zap.NewNop()
	}
	if loopInterval <= 0 {
		loopInterval = DefaultLoopInterval
	}
	return &Gyro{
		dev:          dev,
		loopInterval: loopInterval,
		log:          log.Named("gyro"),
	}
}

func (g *Gyro) Heading() float64 {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.heading
}

// SetHeading resets the integrated heading, for example after the robot is placed.
func (g *Gyro) SetHeading(h float64) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.heading = h
}

func (g *Gyro) Samples() int {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.samples
}

// Init configures and calibrates the device.  The robot must be stationary.
func (g *Gyro) Init() error {
	if err := g.dev.Configure(); err != nil {
		return err
	}
	if err := g.dev.Calibrate(); err != nil {
		return err
	}
	return g.dev.ResetFIFO()
}

// Loop reads the FIFO every loop interval until the context is cancelled.
func (g *Gyro) Loop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer g.log.Info("Gyro loop exited")

	ticker := time.NewTicker(g.loopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		yawReadings, err := g.dev.ReadFIFO()
		if err != nil {
			g.log.Error("Failed to read gyro FIFO", zap.Error(err))
			if err := g.dev.ResetFIFO(); err != nil {
				g.log.Error("Failed to reset gyro FIFO", zap.Error(err))
			}
			continue
		}
		g.integrate(yawReadings)
	}
}

func (g *Gyro) integrate(yawReadings []int16) {
	dps := g.dev.DegreesPerLSB()
	g.lock.Lock()
	defer g.lock.Unlock()
	for _, yaw := range yawReadings {
		// Positive yaw rate from the sensor is anticlockwise; headings increase clockwise.
		g.heading -= SampleInterval.Seconds() * float64(yaw) * dps
	}
	g.samples += len(yawReadings)
}
