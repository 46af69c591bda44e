package database

import (
	"context"
	"database/sql"
)

type PgMembershipStore struct {
	conn *sql.DB
}

func NewPgMembershipStore(dsn string) (*PgMembershipStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgMembershipStore{conn: db}, nil
}

func (s *PgMembershipStore) Ping() error {
	return s.conn.Ping()
}

// IsMember reports whether the user belongs to the studio according to the
// membership table maintained by the CRUD API.
func (s *PgMembershipStore) IsMember(ctx context.Context, studioId, userId string) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM studio_members WHERE studio_id = $1 AND user_id = $2
	)`

	var exists bool
	if err := s.conn.QueryRowContext(ctx, query, studioId, userId).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

func (s *PgMembershipStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
