package state

import (
	"database/sql"
	"errors"
)

// PlayerState is the persisted player volume.
type PlayerState struct {
	Volume float64
	Muted  bool
}

func (m *Manager) GetPlayerState() (*PlayerState, error) {
	var ps PlayerState
	row := m.db.QueryRow(`SELECT volume, muted FROM player_state WHERE id = 1`)
	err := row.Scan(&ps.Volume, &ps.Muted)
	if errors.Is(err, sql.ErrNoRows) {
		return &PlayerState{Volume: 1.0}, nil
	}
	if err != nil {
		return nil, err
	}
	return &ps, nil
}

func (m *Manager) SavePlayerState(ps PlayerState) error {
	_, err := m.db.Exec(`
		INSERT INTO player_state (id, volume, muted)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			volume = excluded.volume,
			muted = excluded.muted
	`, ps.Volume, ps.Muted)
	return err
}
