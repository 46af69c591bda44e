package database

import "context"

// Store is the read-only view of the studio membership data owned by the
// external CRUD API. The realtime tier never writes to it.
type Store interface {
	Ping() error
	IsMember(ctx context.Context, studioId, userId string) (bool, error)
	Close() error
}
