package sound

import (
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"go.uber.org/zap"
)

// Player plays WAV files one at a time; a new sound cuts off the previous one.
type Player struct {
	soundsToPlay chan string
	log          *zap.Logger
}

// Start opens the speaker and starts the playback goroutine.  If the speaker can't be
// opened, requests are logged and dropped.
func Start(log *zap.Logger) *Player {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Player{
		soundsToPlay: make(chan string),
		log:          log.Named("sound"),
	}
	go p.loop()
	return p
}

// Play queues a sound, giving up if the player is busy.
func (p *Player) Play(path string) {
	if path == "" {
		return
	}
	defer func() {
		recover() // Don't die if the channel is already closed.
	}()
	select {
	case p.soundsToPlay <- path:
	case <-time.After(10 * time.Millisecond):
		p.log.Warn("Timed out trying to play sound", zap.String("path", path))
	}
}

func (p *Player) Close() {
	close(p.soundsToPlay)
}

func (p *Player) drain() {
	for s := range p.soundsToPlay {
		p.log.Info("Unable to play", zap.String("path", s))
	}
}

func (p *Player) loop() {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Sound playback panicked", zap.Any("panic", r))
		}
		p.drain()
	}()
	sampleRate := beep.SampleRate(44100)
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/5)); err != nil {
		p.log.Error("Failed to open speaker", zap.Error(err))
		return
	}
	var ctrl *beep.Ctrl
	var s beep.StreamSeekCloser
	for soundToPlay := range p.soundsToPlay {
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if s != nil {
			_ = s.Close()
			s = nil
		}

		f, err := os.Open(soundToPlay)
		if err != nil {
			p.log.Error("Failed to open sound", zap.Error(err))
			continue
		}
		s, _, err = wav.Decode(f)
		if err != nil {
			p.log.Error("Failed to decode sound", zap.Error(err))
			_ = f.Close()
			continue
		}
		ctrl = &beep.Ctrl{Streamer: s}
		speaker.Play(ctrl)
	}
}
