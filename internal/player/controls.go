package player

import (
	"time"

	"github.com/gopxl/beep/v2/speaker"
)

// Stop stops playback and releases resources.
func (p *Player) Stop() {
	if p.state == Stopped {
		return
	}

	speaker.Clear()

	if p.streamer != nil {
		p.streamer.Close()
		p.streamer = nil
	}
	if p.closer != nil {
		p.closer.Close()
		p.closer = nil
	}

	p.ctrl = nil
	p.resampler = nil
	p.volume = nil
	p.state = Stopped

	select {
	case <-p.done:
		// already closed by the finish callback
	default:
		close(p.done)
	}
}

// Pause pauses playback.
func (p *Player) Pause() {
	if p.state != Playing || p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
	p.state = Paused
}

// Resume resumes paused playback.
func (p *Player) Resume() {
	if p.state != Paused || p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
	p.state = Playing
}

// Toggle toggles between playing and paused states.
func (p *Player) Toggle() {
	switch p.state {
	case Playing:
		p.Pause()
	case Paused:
		p.Resume()
	case Stopped:
	}
}

// Position returns the current playback position.
func (p *Player) Position() time.Duration {
	if p.streamer == nil {
		return 0
	}
	// Read without the speaker lock. The value may be a buffer's worth
	// stale but taking the lock here risks deadlocks with Beep callbacks.
	return p.format.SampleRate.D(p.streamer.Position())
}

// SeekTo moves playback to an absolute position, clamped to the track.
// Seeking at or past the end signals track finish instead.
func (p *Player) SeekTo(pos time.Duration) {
	if p.streamer == nil || p.state == Stopped {
		return
	}

	n := p.format.SampleRate.N(pos)
	if n >= p.streamer.Len() {
		select {
		case p.finishedCh <- struct{}{}:
		default:
		}
		return
	}
	n = max(n, 0)

	speaker.Lock()
	if p.streamer != nil && p.state != Stopped {
		_ = p.streamer.Seek(n)
	}
	speaker.Unlock()
}

// SetRate sets the playback rate multiplier. Values at or below zero
// are ignored.
func (p *Player) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	p.rate = rate

	if p.resampler == nil {
		return
	}
	speaker.Lock()
	p.resampler.SetRatio(playRatio(p.format.SampleRate, speakerSampleRate, rate))
	speaker.Unlock()
}
