package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wbs-api/internal/models"
)

var activityColumns = []string{"id", "action", "resource", "resource_name", "resource_id", "user_id", "user_name", "created_at"}

func TestActivityLogCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityLogRepository(db)

	mock.ExpectExec("INSERT INTO activity_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.ActivityLog{Action: models.ActivityActionCreate, Resource: models.ActivityResourceUser, ResourceName: "Budi", ResourceID: "u1", UserID: "u1", UserName: "Budi"}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityLogListDefaultsLimit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityLogRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(activityColumns).
		AddRow("l2", "update", "user", "Budi", "u1", "u1", "Budi", now).
		AddRow("l1", "create", "user", "Budi", "u1", "u1", "Budi", now.Add(-time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta("FROM activity_logs ORDER BY created_at DESC LIMIT 10")).WillReturnRows(rows)

	logs, err := repo.List(context.Background(), models.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "l2", logs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityLogListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityLogRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM activity_logs WHERE resource = $1 AND user_id = $2 ORDER BY created_at DESC LIMIT 500")).
		WithArgs("user", "u1").
		WillReturnRows(sqlmock.NewRows(activityColumns))

	logs, err := repo.List(context.Background(), models.ActivityFilter{Limit: 10000, Resource: "user", UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
