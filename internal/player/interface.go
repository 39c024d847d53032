package player

import "time"

// Interface defines the player contract for dependency injection and
// testing.
type Interface interface {
	Play(source string) error
	Stop()
	Pause()
	Resume()
	Toggle()
	State() State
	Position() time.Duration
	Duration() time.Duration
	SeekTo(pos time.Duration)
	Rate() float64
	SetRate(rate float64)
	SetVolume(level float64)
	Volume() float64
	OnFinished(fn func())
	FinishedChan() <-chan struct{}
}

// Verify Player implements Interface at compile time.
var _ Interface = (*Player)(nil)
