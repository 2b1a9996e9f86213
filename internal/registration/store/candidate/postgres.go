package candidate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"admission/internal/registration/models"
	id "admission/pkg/domain"
	"admission/pkg/platform/sentinel"
)

const (
	uniqueViolation         = "23505"
	applicationIDConstraint = "candidates_application_id_key"
)

// PostgresStore persists candidates in the candidates table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Candidate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO candidates (
			id, application_id, full_name, email, mobile_number,
			date_of_birth, gender, password_hash, verified, verified_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		uuid.UUID(c.ID), c.ApplicationID.String(), c.FullName, c.Email, c.MobileNumber,
		c.DateOfBirth, c.Gender, c.PasswordHash, c.Verified, c.VerifiedAt, c.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if pqErr.Constraint == applicationIDConstraint {
				return models.ErrApplicationIDTaken
			}
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByApplicationID(ctx context.Context, appID id.ApplicationID) (*models.Candidate, error) {
	var (
		c          models.Candidate
		candID     uuid.UUID
		storedApp  string
		verifiedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, application_id, full_name, email, mobile_number,
			date_of_birth, gender, password_hash, verified, verified_at, created_at
		FROM candidates
		WHERE application_id = $1
	`, appID.String()).Scan(
		&candID, &storedApp, &c.FullName, &c.Email, &c.MobileNumber,
		&c.DateOfBirth, &c.Gender, &c.PasswordHash, &c.Verified, &verifiedAt, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find candidate: %w", err)
	}
	c.ID = id.CandidateID(candID)
	c.ApplicationID = id.ApplicationID(storedApp)
	if verifiedAt.Valid {
		at := verifiedAt.Time
		c.VerifiedAt = &at
	}
	return &c, nil
}

func (s *PostgresStore) MarkVerified(ctx context.Context, appID id.ApplicationID, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET verified = TRUE, verified_at = $2 WHERE application_id = $1`,
		appID.String(), at)
	if err != nil {
		return fmt.Errorf("mark candidate verified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark candidate verified: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
