package candidate

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admission/internal/registration/models"
	id "admission/pkg/domain"
	"admission/pkg/platform/sentinel"
)

var createdAt = time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

func newCandidate(appID id.ApplicationID, email, mobile string) *models.Candidate {
	return &models.Candidate{
		ID:            id.CandidateID(uuid.New()),
		ApplicationID: appID,
		FullName:      "Asha Patil",
		Email:         email,
		MobileNumber:  mobile,
		DateOfBirth:   "2006-04-12",
		Gender:        "female",
		PasswordHash:  "$2a$10$hash",
		CreatedAt:     createdAt,
	}
}

func TestInMemoryStoreUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.Create(ctx, newCandidate("REG202500000001", "asha@example.com", "9876543210")))

	err := s.Create(ctx, newCandidate("REG202500000001", "other@example.com", "9876543211"))
	assert.ErrorIs(t, err, models.ErrApplicationIDTaken)
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	err = s.Create(ctx, newCandidate("REG202500000002", "asha@example.com", "9876543211"))
	assert.ErrorIs(t, err, sentinel.ErrConflict)
	assert.NotErrorIs(t, err, models.ErrApplicationIDTaken)

	err = s.Create(ctx, newCandidate("REG202500000003", "new@example.com", "9876543210"))
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestInMemoryStoreVerify(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.Create(ctx, newCandidate("REG202500000001", "asha@example.com", "9876543210")))

	found, err := s.FindByApplicationID(ctx, "REG202500000001")
	require.NoError(t, err)
	assert.False(t, found.Verified)

	at := createdAt.Add(time.Minute)
	require.NoError(t, s.MarkVerified(ctx, "REG202500000001", at))
	found, err = s.FindByApplicationID(ctx, "REG202500000001")
	require.NoError(t, err)
	assert.True(t, found.Verified)
	assert.Equal(t, at, *found.VerifiedAt)

	assert.ErrorIs(t, s.MarkVerified(ctx, "REG202500000099", at), sentinel.ErrNotFound)
	_, err = s.FindByApplicationID(ctx, "REG202500000099")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestPostgresStoreCreate(t *testing.T) {
	db, mock := newSQLMock(t)
	s := NewPostgresStore(db)
	c := newCandidate("REG202500000001", "asha@example.com", "9876543210")

	mock.ExpectExec("INSERT INTO candidates").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Create(context.Background(), c))

	mock.ExpectExec("INSERT INTO candidates").
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: applicationIDConstraint})
	assert.ErrorIs(t, s.Create(context.Background(), c), models.ErrApplicationIDTaken)

	mock.ExpectExec("INSERT INTO candidates").
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "candidates_email_key"})
	err := s.Create(context.Background(), c)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
	assert.NotErrorIs(t, err, models.ErrApplicationIDTaken)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreFind(t *testing.T) {
	db, mock := newSQLMock(t)
	s := NewPostgresStore(db)
	candID := uuid.New()
	columns := []string{"id", "application_id", "full_name", "email", "mobile_number",
		"date_of_birth", "gender", "password_hash", "verified", "verified_at", "created_at"}

	mock.ExpectQuery("SELECT .* FROM candidates").
		WithArgs("REG202500000001").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			candID.String(), "REG202500000001", "Asha Patil", "asha@example.com", "9876543210",
			"2006-04-12", "female", "$2a$10$hash", true, createdAt, createdAt))

	found, err := s.FindByApplicationID(context.Background(), "REG202500000001")
	require.NoError(t, err)
	assert.Equal(t, id.CandidateID(candID), found.ID)
	assert.True(t, found.Verified)
	require.NotNil(t, found.VerifiedAt)

	mock.ExpectQuery("SELECT .* FROM candidates").
		WithArgs("REG202500000002").
		WillReturnError(sql.ErrNoRows)
	_, err = s.FindByApplicationID(context.Background(), "REG202500000002")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreMarkVerified(t *testing.T) {
	db, mock := newSQLMock(t)
	s := NewPostgresStore(db)

	mock.ExpectExec("UPDATE candidates SET verified").
		WithArgs("REG202500000001", createdAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.MarkVerified(context.Background(), "REG202500000001", createdAt))

	mock.ExpectExec("UPDATE candidates SET verified").
		WithArgs("REG202500000002", createdAt).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.MarkVerified(context.Background(), "REG202500000002", createdAt), sentinel.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
