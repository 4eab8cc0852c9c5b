package db

import (
	"context"
	"errors"
	"time"

	"birdbot/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

// Instance is one workspace installation: the team id and the bot token
// minted for it during the OAuth flow.
type Instance struct {
	TeamID      string
	AccessToken string
	InstalledAt time.Time
	UpdatedAt   time.Time
}

func NewStore(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the instances table if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	utils.Debug("db migrate")
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS instances (
			team_id TEXT PRIMARY KEY,
			access_token TEXT NOT NULL,
			installed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

// FindInstance looks up an installation by team id. The second return value
// reports whether a record exists.
func (s *Store) FindInstance(ctx context.Context, teamID string) (Instance, bool, error) {
	utils.Debug("db find instance", "team_id", teamID)
	row := s.pool.QueryRow(ctx, `
		SELECT team_id, access_token, installed_at, updated_at
		FROM instances
		WHERE team_id = $1
	`, teamID)

	var inst Instance
	err := row.Scan(&inst.TeamID, &inst.AccessToken, &inst.InstalledAt, &inst.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Instance{}, false, nil
		}
		return Instance{}, false, err
	}
	return inst, true, nil
}

// UpsertInstance creates the installation record or rotates its token when a
// team reinstalls.
func (s *Store) UpsertInstance(ctx context.Context, teamID, accessToken string) error {
	if teamID == "" {
		return errors.New("missing team id for upsert")
	}
	utils.Debug("db upsert instance", "team_id", teamID)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO instances (team_id, access_token, installed_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (team_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			updated_at = NOW()
	`, teamID, accessToken)
	return err
}

// DeleteInstance removes the installation record for a team that uninstalled
// the app. Deleting a missing record is not an error.
func (s *Store) DeleteInstance(ctx context.Context, teamID string) error {
	utils.Debug("db delete instance", "team_id", teamID)
	_, err := s.pool.Exec(ctx, `
		DELETE FROM instances
		WHERE team_id = $1
	`, teamID)
	return err
}
