package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mlevasseur/chorus/internal/queue"
)

func openTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := OpenAt(filepath.Join(t.TempDir(), "chorus.db"))
	if err != nil {
		t.Fatalf("OpenAt() error = %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestGetQueueEmpty(t *testing.T) {
	m := openTestManager(t)

	got, err := m.GetQueue()
	if err != nil {
		t.Fatalf("GetQueue() error = %v", err)
	}
	if got.CurrentIndex != -1 {
		t.Errorf("CurrentIndex = %d, want -1", got.CurrentIndex)
	}
	if len(got.Tracks) != 0 {
		t.Errorf("Tracks = %v, want empty", got.Tracks)
	}
}

func TestSaveAndGetQueue(t *testing.T) {
	m := openTestManager(t)

	want := QueueState{
		CurrentIndex: 1,
		RepeatMode:   queue.RepeatAll,
		Shuffle:      true,
		RadioEnabled: true,
		SourceType:   "album",
		SourceID:     "alb-9",
		Tracks: []queue.Track{
			{ID: "t1", Type: queue.TypeOnline, Title: "One", Artist: "A", Duration: 3 * time.Minute},
			{ID: "t2", Type: queue.TypeLocal, FilePath: "/music/two.mp3", Matched: true},
			{ID: "t3", Type: queue.TypeStream, SourceURL: "http://peer/three"},
		},
		PlayNext:   []string{"t3", "t1"},
		RadioTrash: []string{"bad-1", "bad-2"},
	}
	if err := m.SaveQueue(want); err != nil {
		t.Fatalf("SaveQueue() error = %v", err)
	}

	got, err := m.GetQueue()
	if err != nil {
		t.Fatalf("GetQueue() error = %v", err)
	}
	if got.CurrentIndex != 1 || got.RepeatMode != queue.RepeatAll || !got.Shuffle || !got.RadioEnabled {
		t.Errorf("queue_state = %+v", got)
	}
	if got.SourceType != "album" || got.SourceID != "alb-9" {
		t.Errorf("source = %s/%s, want album/alb-9", got.SourceType, got.SourceID)
	}
	if len(got.Tracks) != 3 {
		t.Fatalf("len(Tracks) = %d, want 3", len(got.Tracks))
	}
	if got.Tracks[0].ID != "t1" || got.Tracks[0].Duration != 3*time.Minute {
		t.Errorf("Tracks[0] = %+v", got.Tracks[0])
	}
	if got.Tracks[1].Type != queue.TypeLocal || !got.Tracks[1].Matched || got.Tracks[1].FilePath != "/music/two.mp3" {
		t.Errorf("Tracks[1] = %+v", got.Tracks[1])
	}
	if got.Tracks[2].SourceURL != "http://peer/three" {
		t.Errorf("Tracks[2] = %+v", got.Tracks[2])
	}
	if len(got.PlayNext) != 2 || got.PlayNext[0] != "t3" {
		t.Errorf("PlayNext = %v, want [t3 t1]", got.PlayNext)
	}
	if len(got.RadioTrash) != 2 || got.RadioTrash[0] != "bad-1" {
		t.Errorf("RadioTrash = %v, want [bad-1 bad-2]", got.RadioTrash)
	}
}

func TestSaveQueueReplacesPrevious(t *testing.T) {
	m := openTestManager(t)

	first := QueueState{
		CurrentIndex: 0,
		Tracks:       []queue.Track{{ID: "t1"}, {ID: "t2"}},
		PlayNext:     []string{"t2"},
	}
	if err := m.SaveQueue(first); err != nil {
		t.Fatal(err)
	}

	second := QueueState{CurrentIndex: 0, Tracks: []queue.Track{{ID: "t9"}}}
	if err := m.SaveQueue(second); err != nil {
		t.Fatal(err)
	}

	got, err := m.GetQueue()
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tracks) != 1 || got.Tracks[0].ID != "t9" {
		t.Errorf("Tracks = %+v, want only t9", got.Tracks)
	}
	if len(got.PlayNext) != 0 {
		t.Errorf("PlayNext = %v, want cleared", got.PlayNext)
	}
}

func TestPlayerStateRoundTrip(t *testing.T) {
	m := openTestManager(t)

	got, err := m.GetPlayerState()
	if err != nil {
		t.Fatalf("GetPlayerState() error = %v", err)
	}
	if got.Volume != 1.0 || got.Muted {
		t.Errorf("default PlayerState = %+v, want volume 1.0 unmuted", got)
	}

	if err := m.SavePlayerState(PlayerState{Volume: 0.4, Muted: true}); err != nil {
		t.Fatalf("SavePlayerState() error = %v", err)
	}
	got, err = m.GetPlayerState()
	if err != nil {
		t.Fatal(err)
	}
	if got.Volume != 0.4 || !got.Muted {
		t.Errorf("PlayerState = %+v, want volume 0.4 muted", got)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chorus.db")
	m, err := OpenAt(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SaveQueue(QueueState{CurrentIndex: 0, Tracks: []queue.Track{{ID: "t1"}}}); err != nil {
		t.Fatal(err)
	}
	m.Close()

	m2, err := OpenAt(path)
	if err != nil {
		t.Fatal(err)
	}
	defer m2.Close()

	got, err := m2.GetQueue()
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tracks) != 1 || got.Tracks[0].ID != "t1" {
		t.Errorf("after reopen, Tracks = %+v, want t1", got.Tracks)
	}
}
