package state

import (
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/mlevasseur/chorus/internal/db"
	"github.com/mlevasseur/chorus/internal/queue"
)

// QueueState is the persisted shape of the playback queue.
type QueueState struct {
	CurrentIndex int
	RepeatMode   queue.RepeatMode
	Shuffle      bool
	RadioEnabled bool
	SourceType   string // what the queue was filled from (album, playlist, ...)
	SourceID     string
	Tracks       []queue.Track
	PlayNext     []string
	RadioTrash   []string
}

func (m *Manager) GetQueue() (*QueueState, error) {
	return getQueue(m.db)
}

func (m *Manager) SaveQueue(state QueueState) error {
	return saveQueue(m.db, state)
}

func getQueue(db *sql.DB) (*QueueState, error) {
	var currentIndex, repeatMode int
	var shuffle, radioEnabled bool
	var sourceType, sourceID sql.NullString
	row := db.QueryRow(`SELECT current_index, repeat_mode, shuffle, radio_enabled, source_type, source_id FROM queue_state WHERE id = 1`)
	err := row.Scan(&currentIndex, &repeatMode, &shuffle, &radioEnabled, &sourceType, &sourceID)
	if errors.Is(err, sql.ErrNoRows) {
		return &QueueState{CurrentIndex: -1}, nil
	}
	if err != nil {
		return nil, err
	}

	tracks, err := getQueueTracks(db)
	if err != nil {
		return nil, err
	}
	playNext, err := getPlayNext(db)
	if err != nil {
		return nil, err
	}
	trash, err := getRadioTrash(db)
	if err != nil {
		return nil, err
	}

	return &QueueState{
		CurrentIndex: currentIndex,
		RepeatMode:   queue.RepeatMode(repeatMode),
		Shuffle:      shuffle,
		RadioEnabled: radioEnabled,
		SourceType:   dbutil.NullStringValue(sourceType),
		SourceID:     dbutil.NullStringValue(sourceID),
		Tracks:       tracks,
		PlayNext:     playNext,
		RadioTrash:   trash,
	}, nil
}

func getQueueTracks(db *sql.DB) ([]queue.Track, error) {
	rows, err := db.Query(`
		SELECT track_id, track_type, matched, file_path, source_url, title, artist, album, duration_ms
		FROM queue_tracks
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []queue.Track
	for rows.Next() {
		var t queue.Track
		var trackType int
		var filePath, sourceURL, title, artist, album sql.NullString
		var durationMs sql.NullInt64

		err := rows.Scan(&t.ID, &trackType, &t.Matched, &filePath, &sourceURL, &title, &artist, &album, &durationMs)
		if err != nil {
			return nil, err
		}

		t.Type = queue.TrackType(trackType)
		t.FilePath = dbutil.NullStringValue(filePath)
		t.SourceURL = dbutil.NullStringValue(sourceURL)
		t.Title = dbutil.NullStringValue(title)
		t.Artist = dbutil.NullStringValue(artist)
		t.Album = dbutil.NullStringValue(album)
		t.Duration = time.Duration(dbutil.NullInt64Value(durationMs)) * time.Millisecond
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func getPlayNext(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT track_id FROM play_next ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func getRadioTrash(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT track_id FROM radio_trash ORDER BY added_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func saveQueue(sqlDB *sql.DB, state QueueState) error {
	return dbutil.WithTx(sqlDB, func(tx *sql.Tx) error {
		for _, table := range []string{"queue_tracks", "play_next", "radio_trash"} {
			if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
				return err
			}
		}

		_, err := tx.Exec(`
			INSERT INTO queue_state (id, current_index, repeat_mode, shuffle, radio_enabled, source_type, source_id)
			VALUES (1, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				current_index = excluded.current_index,
				repeat_mode = excluded.repeat_mode,
				shuffle = excluded.shuffle,
				radio_enabled = excluded.radio_enabled,
				source_type = excluded.source_type,
				source_id = excluded.source_id
		`, state.CurrentIndex, int(state.RepeatMode), state.Shuffle, state.RadioEnabled,
			state.SourceType, state.SourceID)
		if err != nil {
			return err
		}

		stmt, err := tx.Prepare(`
			INSERT INTO queue_tracks (position, track_id, track_type, matched, file_path, source_url, title, artist, album, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, t := range state.Tracks {
			_, err = stmt.Exec(i, t.ID, int(t.Type), t.Matched, t.FilePath, t.SourceURL,
				t.Title, t.Artist, t.Album, t.Duration.Milliseconds())
			if err != nil {
				return err
			}
		}

		nextStmt, err := tx.Prepare(`INSERT INTO play_next (position, track_id) VALUES (?, ?)`)
		if err != nil {
			return err
		}
		defer nextStmt.Close()

		for i, id := range state.PlayNext {
			if _, err := nextStmt.Exec(i, id); err != nil {
				return err
			}
		}

		trashStmt, err := tx.Prepare(`INSERT INTO radio_trash (track_id, added_at) VALUES (?, ?)`)
		if err != nil {
			return err
		}
		defer trashStmt.Close()

		now := time.Now().Unix()
		for i, id := range state.RadioTrash {
			if _, err := trashStmt.Exec(id, now+int64(i)); err != nil {
				return err
			}
		}
		return nil
	})
}
