// Package player plays audio from local files and remote URLs through
// the system speaker, with adjustable playback rate and volume.
package player

import (
	"io"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

type State int

const (
	Stopped State = iota
	Playing
	Paused
)

type Player struct {
	state       State
	ctrl        *beep.Ctrl
	resampler   *beep.Resampler
	volume      *effects.Volume
	streamer    beep.StreamSeekCloser
	format      beep.Format
	closer      io.Closer
	rate        float64
	volumeLevel float64
	muted       bool
	finishedCh  chan struct{}
	done        chan struct{}
	onFinished  func()
}

func New() *Player {
	return &Player{
		state:       Stopped,
		rate:        1.0,
		volumeLevel: 1.0,
		finishedCh:  make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

func (p *Player) State() State { return p.state }

// Rate returns the current playback rate multiplier.
func (p *Player) Rate() float64 { return p.rate }

// Duration returns the total length of the current track.
func (p *Player) Duration() time.Duration {
	if p.streamer == nil {
		return 0
	}
	return p.format.SampleRate.D(p.streamer.Len())
}

// OnFinished registers a callback invoked when a track plays to its end.
func (p *Player) OnFinished(fn func()) {
	p.onFinished = fn
}

// FinishedChan returns a channel that receives a signal when a track
// finishes naturally or is seeked past its end.
func (p *Player) FinishedChan() <-chan struct{} {
	return p.finishedCh
}

// Done returns a channel closed when the current track stops for any
// reason.
func (p *Player) Done() <-chan struct{} {
	return p.done
}
