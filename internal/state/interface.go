package state

import "database/sql"

// Interface defines the state manager contract for dependency injection
// and testing.
type Interface interface {
	DB() *sql.DB
	SaveQueue(state QueueState) error
	GetQueue() (*QueueState, error)
	SavePlayerState(ps PlayerState) error
	GetPlayerState() (*PlayerState, error)
	Close() error
}

// Verify Manager implements Interface at compile time.
var _ Interface = (*Manager)(nil)
