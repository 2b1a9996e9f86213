package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"admission/internal/application/models"
	id "admission/pkg/domain"
	"admission/pkg/platform/sentinel"
)

// uniqueViolation is the Postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// PostgresSubmissionStore keeps every submitted application. A reset marks
// earlier rows superseded instead of removing them; LatestByOwner returns the
// most recent row that is not superseded.
type PostgresSubmissionStore struct {
	db *sql.DB
}

func NewPostgresSubmissionStore(db *sql.DB) *PostgresSubmissionStore {
	return &PostgresSubmissionStore{db: db}
}

func (s *PostgresSubmissionStore) Save(ctx context.Context, snap models.Snapshot) error {
	if !snap.IsCompleted || snap.ApplicationID == nil || snap.SubmittedAt == nil {
		return sentinel.ErrInvalidState
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO submitted_applications (application_id, owner, submitted_at, snapshot)
		VALUES ($1, $2, $3, $4)
	`, snap.ApplicationID.String(), snap.Owner.String(), *snap.SubmittedAt, raw)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *PostgresSubmissionStore) FindByApplicationID(ctx context.Context, appID id.ApplicationID) (*models.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM submitted_applications WHERE application_id = $1`, appID.String())
	return scanSnapshot(row)
}

func (s *PostgresSubmissionStore) LatestByOwner(ctx context.Context, owner id.ApplicationID) (*models.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT snapshot FROM submitted_applications
		WHERE owner = $1 AND superseded_at IS NULL
		ORDER BY submitted_at DESC
		LIMIT 1
	`, owner.String())
	return scanSnapshot(row)
}

func (s *PostgresSubmissionStore) Supersede(ctx context.Context, owner id.ApplicationID, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE submitted_applications SET superseded_at = $2
		WHERE owner = $1 AND superseded_at IS NULL
	`, owner.String(), at.UTC())
	if err != nil {
		return fmt.Errorf("supersede submissions: %w", err)
	}
	return nil
}

func scanSnapshot(row *sql.Row) (*models.Snapshot, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query submission: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode submission: %w", err)
	}
	return &snap, nil
}
