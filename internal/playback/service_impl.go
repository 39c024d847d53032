package playback

import (
	"context"
	"sync"
	"time"

	"github.com/mlevasseur/chorus/internal/lyrics"
	"github.com/mlevasseur/chorus/internal/player"
	"github.com/mlevasseur/chorus/internal/queue"
	"github.com/mlevasseur/chorus/internal/scheduler"
	"github.com/mlevasseur/chorus/internal/session"
)

// Resolver turns a queue track into a playable source and a lyric
// timeline. *session.Session is the production implementation.
type Resolver interface {
	Activate(ctx context.Context, track queue.Track, opts lyrics.Options) session.Activation
}

// Radio is the personal-radio fallback used when the queue runs out.
type Radio interface {
	Advance(ctx context.Context) (queue.Track, error)
	Enable()
	Disable()
	IsEnabled() bool
	MoveToTrash(trackID string)
}

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

// minFailStreak is the floor on consecutive unplayable tracks tolerated
// before playback stops, regardless of queue length.
const minFailStreak = 3

type serviceImpl struct {
	mu sync.Mutex

	player   player.Interface
	queue    *queue.Queue
	radio    Radio
	resolver Resolver
	sched    *scheduler.Scheduler

	lyricOpts lyrics.Options
	tracks    map[string]queue.Track
	current   *queue.Track
	source    PlaylistSource
	timeline  lyrics.Timeline
	// payload is the raw lyric payload of the current track, kept so
	// the timeline can be rebuilt when lyric options change.
	payload lyrics.Payload

	// radioActive means the playing track came from the radio, not the
	// queue; the queue index is untouched while it is set.
	radioActive bool
	failStreak  int

	// gen invalidates in-flight track activations: a result whose
	// generation no longer matches is discarded.
	gen    uint64
	cancel context.CancelFunc

	subs   []*Subscription
	subsMu sync.RWMutex

	done   chan struct{}
	closed bool
}

// New creates a new playback service. The radio may be nil, in which
// case an exhausted queue simply stops.
func New(p player.Interface, q *queue.Queue, r Radio, res Resolver, lyricOpts lyrics.Options) Service {
	s := &serviceImpl{
		player:    p,
		queue:     q,
		radio:     r,
		resolver:  res,
		lyricOpts: lyricOpts,
		tracks:    make(map[string]queue.Track),
		done:      make(chan struct{}),
	}
	s.sched = scheduler.New(p, s.emitLine, s.emitWord)
	go s.finishLoop()
	return s
}

// finishLoop advances the queue when a track plays to its end.
func (s *serviceImpl) finishLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.player.FinishedChan():
			s.mu.Lock()
			if !s.closed {
				s.advanceLocked()
			}
			s.mu.Unlock()
		}
	}
}

// Play starts or resumes playback.
func (s *serviceImpl) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.stateLocked() {
	case StatePlaying:
		return nil
	case StatePaused:
		prev := s.stateLocked()
		s.player.Resume()
		s.sched.Play()
		s.emitState(StateChange{Previous: prev, Current: s.stateLocked()})
		return nil
	}

	if s.current != nil {
		s.activateLocked(*s.current, s.radioActive)
		return nil
	}
	if id, ok := s.queue.Current(); ok {
		s.activateLocked(s.trackFor(id), false)
		return nil
	}
	if s.radioEnabled() {
		s.radioAdvanceLocked()
	}
	return nil
}

// Pause pauses playback.
func (s *serviceImpl) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stateLocked() != StatePlaying {
		return nil
	}
	s.player.Pause()
	s.sched.Pause()
	s.emitState(StateChange{Previous: StatePlaying, Current: StatePaused})
	return nil
}

// Stop stops playback. The current track is kept so Play can restart it.
func (s *serviceImpl) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return nil
}

// Toggle toggles between playing and paused.
func (s *serviceImpl) Toggle() error {
	s.mu.Lock()
	st := s.stateLocked()
	s.mu.Unlock()

	if st == StatePlaying {
		return s.Pause()
	}
	return s.Play()
}

// Next advances to the next track, falling back to the radio when the
// queue is exhausted and radio mode is enabled.
func (s *serviceImpl) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()
	return nil
}

// Previous steps back to the previous track. During radio playback it
// restarts the current radio track.
func (s *serviceImpl) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.radioActive {
		if s.current != nil {
			s.activateLocked(*s.current, true)
		}
		return nil
	}
	id, res := s.queue.Retreat()
	if res == queue.StepOK {
		s.activateLocked(s.trackFor(id), false)
	}
	return nil
}

// Seek moves the playback position by a delta.
func (s *serviceImpl) Seek(delta time.Duration) error {
	return s.SeekTo(s.player.Position() + delta)
}

// SeekTo moves the playback position and resynchronizes the lyric
// scheduler against it.
func (s *serviceImpl) SeekTo(position time.Duration) error {
	if position < 0 {
		position = 0
	}
	s.player.SeekTo(position)
	s.sched.Sync()
	s.emitPosition(s.player.Position())
	return nil
}

// SetRate sets the playback rate on the player and the lyric scheduler.
func (s *serviceImpl) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	s.player.SetRate(rate)
	s.sched.SetRate(rate)
	s.sched.Sync()
}

// Rate returns the current playback rate.
func (s *serviceImpl) Rate() float64 {
	return s.player.Rate()
}

// JumpTo starts playback at a queue index.
func (s *serviceImpl) JumpTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.queue.JumpTo(index)
	if !ok {
		return nil
	}
	s.radioActive = false
	s.emitQueue(s.queueChangeLocked())
	s.activateLocked(s.trackFor(id), false)
	return nil
}

// ReplacePlaylist swaps the queue contents and starts playback at the
// given index. Out-of-range indices start at the first track.
func (s *serviceImpl) ReplacePlaylist(source PlaylistSource, tracks []queue.Track, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
		s.tracks[t.ID] = t
	}
	s.source = source
	cur, ok := s.queue.Replace(ids, index)
	s.emitQueue(s.queueChangeLocked())
	if !ok {
		s.stopLocked()
		s.current = nil
		return nil
	}
	s.radioActive = false
	s.activateLocked(s.trackFor(cur), false)
	return nil
}

// LoadQueue restores a saved queue without starting playback. The
// position points at the track that was current when the state was
// saved, so a subsequent Play picks up where the last session ended.
func (s *serviceImpl) LoadQueue(source PlaylistSource, tracks []queue.Track, index int, playNext []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
		s.tracks[t.ID] = t
	}
	s.source = source
	s.queue.Replace(ids, index)
	if len(playNext) > 0 {
		s.queue.AddToPlayNext(playNext, false)
	}
	s.emitQueue(s.queueChangeLocked())
}

// AddToPlayNext inserts tracks into the play-next list. With playNow
// set they go to the head and playback jumps to the first one.
func (s *serviceImpl) AddToPlayNext(tracks []queue.Track, playNow, atHead bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
		s.tracks[t.ID] = t
	}
	if playNow {
		atHead = true
	}
	s.queue.AddToPlayNext(ids, atHead)
	s.emitQueue(s.queueChangeLocked())
	if playNow {
		s.advanceLocked()
	}
}

// Source returns what the queue was last filled from.
func (s *serviceImpl) Source() PlaylistSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Substitute replaces a track id everywhere it appears in the queue.
// If the playing track is replaced, playback switches to the new track.
func (s *serviceImpl) Substitute(oldID string, replacement queue.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracks[replacement.ID] = replacement
	delete(s.tracks, oldID)
	s.queue.Substitute(oldID, replacement.ID)
	s.emitQueue(s.queueChangeLocked())

	if s.current != nil && s.current.ID == oldID {
		s.activateLocked(replacement, s.radioActive)
	}
}

// State returns the current playback state.
func (s *serviceImpl) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// IsPlaying returns true when a track is actively playing.
func (s *serviceImpl) IsPlaying() bool {
	return s.State() == StatePlaying
}

// Position returns the current playback position.
func (s *serviceImpl) Position() time.Duration {
	return s.player.Position()
}

// Duration returns the current track duration.
func (s *serviceImpl) Duration() time.Duration {
	return s.player.Duration()
}

// Current returns the playing track, or nil if none.
func (s *serviceImpl) Current() *queue.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	t := *s.current
	return &t
}

// QueueIDs returns the active queue projection.
func (s *serviceImpl) QueueIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.Shuffle() {
		return s.queue.Shuffled()
	}
	return s.queue.Order()
}

// QueueTracks returns the natural-order queue with known metadata, for
// persistence and display.
func (s *serviceImpl) QueueTracks() []queue.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	order := s.queue.Order()
	out := make([]queue.Track, len(order))
	for i, id := range order {
		out[i] = s.trackFor(id)
	}
	return out
}

// PlayNextIDs returns the pending play-next entries.
func (s *serviceImpl) PlayNextIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.PlayNext()
}

// QueueIndex returns the current index in the active projection.
func (s *serviceImpl) QueueIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.CurrentIndex()
}

// RepeatMode returns the current repeat mode.
func (s *serviceImpl) RepeatMode() queue.RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Repeat()
}

// SetRepeatMode sets the repeat mode.
func (s *serviceImpl) SetRepeatMode(mode queue.RepeatMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.SetRepeat(mode)
	s.emitMode(s.modeChangeLocked())
}

// CycleRepeatMode cycles off → all → one → off.
func (s *serviceImpl) CycleRepeatMode() queue.RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next queue.RepeatMode
	switch s.queue.Repeat() {
	case queue.RepeatOff:
		next = queue.RepeatAll
	case queue.RepeatAll:
		next = queue.RepeatOne
	default:
		next = queue.RepeatOff
	}
	s.queue.SetRepeat(next)
	s.emitMode(s.modeChangeLocked())
	return next
}

// Shuffle returns whether shuffle is enabled.
func (s *serviceImpl) Shuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Shuffle()
}

// SetShuffle enables or disables shuffle. The projection changes, so a
// queue event follows the mode event.
func (s *serviceImpl) SetShuffle(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.SetShuffle(enabled)
	s.emitMode(s.modeChangeLocked())
	s.emitQueue(s.queueChangeLocked())
}

// ToggleShuffle flips shuffle and returns the new value.
func (s *serviceImpl) ToggleShuffle() bool {
	s.mu.Lock()
	enabled := !s.queue.Shuffle()
	s.mu.Unlock()
	s.SetShuffle(enabled)
	return enabled
}

// SetRadio enables or disables the personal radio fallback.
func (s *serviceImpl) SetRadio(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.radio == nil {
		return
	}
	if enabled {
		s.radio.Enable()
	} else {
		s.radio.Disable()
		s.radioActive = false
	}
	s.emitMode(s.modeChangeLocked())
}

// RadioEnabled returns whether the radio fallback is enabled.
func (s *serviceImpl) RadioEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.radioEnabled()
}

// MoveToRadioTrash excludes a track from future radio picks. If it is
// playing from the radio, playback skips to the next pick.
func (s *serviceImpl) MoveToRadioTrash(trackID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.radio == nil {
		return
	}
	s.radio.MoveToTrash(trackID)
	if s.radioActive && s.current != nil && s.current.ID == trackID {
		s.advanceLocked()
	}
}

// Timeline returns the parsed lyric timeline of the playing track.
func (s *serviceImpl) Timeline() lyrics.Timeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeline
}

// LineIndex returns the active lyric line index.
func (s *serviceImpl) LineIndex() int {
	return s.sched.LineIndex()
}

// WordIndex returns the active word index of a word-timed channel.
func (s *serviceImpl) WordIndex(ch scheduler.WordChannel) int {
	return s.sched.WordIndex(ch)
}

// SetLyricOffset shifts lyric timing by the given number of seconds.
func (s *serviceImpl) SetLyricOffset(seconds float64) {
	s.sched.SetOffset(seconds)
}

// LyricOptions returns the options future timelines are built with.
func (s *serviceImpl) LyricOptions() lyrics.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lyricOpts
}

// SetLyricOptions changes the lyric options and rebuilds the current
// track's timeline wholesale from its retained payload. The timeline is
// never patched in place.
func (s *serviceImpl) SetLyricOptions(opts lyrics.Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lyricOpts = opts
	if s.current == nil {
		return
	}
	if opts.Duration <= 0 && s.current.Duration > 0 {
		opts.Duration = s.current.Duration.Seconds()
	}
	tl := lyrics.Parse(s.payload, opts)
	s.timeline = tl
	s.sched.SetTimeline(tl)
	if s.stateLocked() == StatePlaying {
		s.sched.Play()
	}
	s.emitTimeline(TimelineChange{Timeline: tl})
}

// Subscribe creates a new event subscription.
func (s *serviceImpl) Subscribe() *Subscription {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	sub := newSubscription()
	s.subs = append(s.subs, sub)
	return sub
}

// Close shuts down the service.
func (s *serviceImpl) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	close(s.done)
	s.player.Stop()
	s.sched.Close()
	s.mu.Unlock()

	s.subsMu.Lock()
	for _, sub := range s.subs {
		sub.close()
	}
	s.subs = nil
	s.subsMu.Unlock()

	return nil
}

// activateLocked starts asynchronous resolution of a track. A later
// activation supersedes this one; the stale result is discarded when it
// lands.
func (s *serviceImpl) activateLocked(track queue.Track, viaRadio bool) {
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		act := s.resolver.Activate(ctx, track, s.lyricOpts)
		s.completeActivation(gen, act, viaRadio)
	}()
}

func (s *serviceImpl) completeActivation(gen uint64, act session.Activation, viaRadio bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen {
		return
	}

	if act.Unplayable() {
		s.emitError(ErrorEvent{
			Operation: "resolve",
			TrackID:   act.Track.ID,
			Reason:    string(act.Reason),
			Err:       act.Err,
		})
		s.failAdvanceLocked()
		return
	}

	source := act.Audio.URL
	if act.Audio.Local {
		source = act.Audio.Path
	}

	prevState := s.stateLocked()
	if err := s.player.Play(source); err != nil {
		s.emitError(ErrorEvent{Operation: "play", TrackID: act.Track.ID, Err: err})
		s.failAdvanceLocked()
		return
	}
	s.failStreak = 0

	prev := s.current
	cur := act.Track
	s.tracks[cur.ID] = cur
	s.current = &cur
	s.radioActive = viaRadio
	s.timeline = act.Timeline
	s.payload = act.Payload
	s.sched.SetTimeline(act.Timeline)
	s.sched.Play()

	index := -1
	if !viaRadio {
		index = s.queue.CurrentIndex()
	}
	s.emitTrack(TrackChange{Previous: prev, Current: s.current, Index: index, Radio: viaRadio})
	if st := s.stateLocked(); st != prevState {
		s.emitState(StateChange{Previous: prevState, Current: st})
	}
}

// failAdvanceLocked advances past an unplayable track, but stops once a
// whole queue's worth of consecutive failures piles up. The limit never
// drops below a small floor so radio playback over an empty queue still
// skips a bad pick instead of stopping on it.
func (s *serviceImpl) failAdvanceLocked() {
	limit := s.queue.Len()
	if limit < minFailStreak {
		limit = minFailStreak
	}
	s.failStreak++
	if s.failStreak > limit {
		s.failStreak = 0
		prev := s.stateLocked()
		s.stopLocked()
		// When every resolve failed nothing ever started, so stopLocked
		// saw no transition. Report the stop anyway.
		if prev == StateStopped {
			s.emitState(StateChange{Previous: prev, Current: StateStopped})
		}
		return
	}
	s.advanceLocked()
}

func (s *serviceImpl) advanceLocked() {
	if s.radioActive && s.radioEnabled() {
		s.radioAdvanceLocked()
		return
	}

	id, res := s.queue.Advance()
	switch res {
	case queue.StepOK:
		s.activateLocked(s.trackFor(id), false)
	case queue.StepStop, queue.StepEmpty:
		if s.radioEnabled() {
			s.radioAdvanceLocked()
		} else {
			s.stopLocked()
		}
	}
}

// radioAdvanceLocked asks the radio for the next track. The fetch may
// retry with backoff, so it runs off the lock; generation checks keep a
// superseded fetch from landing.
func (s *serviceImpl) radioAdvanceLocked() {
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		track, err := s.radio.Advance(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || gen != s.gen {
			return
		}
		if err != nil {
			s.emitError(ErrorEvent{Operation: "radio", Err: err})
			s.stopLocked()
			return
		}
		s.activateLocked(track, true)
	}()
}

func (s *serviceImpl) stopLocked() {
	prev := s.stateLocked()
	s.player.Stop()
	s.sched.Pause()
	s.radioActive = false
	if prev != StateStopped {
		s.emitState(StateChange{Previous: prev, Current: StateStopped})
	}
}

func (s *serviceImpl) stateLocked() State {
	switch s.player.State() {
	case player.Playing:
		return StatePlaying
	case player.Paused:
		return StatePaused
	default:
		return StateStopped
	}
}

func (s *serviceImpl) radioEnabled() bool {
	return s.radio != nil && s.radio.IsEnabled()
}

func (s *serviceImpl) trackFor(id string) queue.Track {
	if t, ok := s.tracks[id]; ok {
		return t
	}
	return queue.Track{ID: id}
}

func (s *serviceImpl) queueChangeLocked() QueueChange {
	ids := s.queue.Order()
	if s.queue.Shuffle() {
		ids = s.queue.Shuffled()
	}
	return QueueChange{IDs: ids, Index: s.queue.CurrentIndex()}
}

func (s *serviceImpl) modeChangeLocked() ModeChange {
	return ModeChange{
		Repeat:  s.queue.Repeat(),
		Shuffle: s.queue.Shuffle(),
		Radio:   s.radioEnabled(),
	}
}

func (s *serviceImpl) emitState(e StateChange) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendState(e)
	}
}

func (s *serviceImpl) emitTrack(e TrackChange) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendTrack(e)
	}
}

func (s *serviceImpl) emitPosition(pos time.Duration) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendPosition(pos)
	}
}

func (s *serviceImpl) emitQueue(e QueueChange) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendQueue(e)
	}
}

func (s *serviceImpl) emitMode(e ModeChange) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendMode(e)
	}
}

func (s *serviceImpl) emitLine(index int) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendLine(LineChange{Index: index})
	}
}

func (s *serviceImpl) emitWord(ch scheduler.WordChannel, index int) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendWord(WordChange{Channel: ch, Index: index})
	}
}

func (s *serviceImpl) emitError(e ErrorEvent) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendError(e)
	}
}

func (s *serviceImpl) emitTimeline(e TimelineChange) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendTimeline(e)
	}
}
