package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/wbs-api/internal/models"
	appErrors "github.com/noah-isme/wbs-api/pkg/errors"
	"github.com/noah-isme/wbs-api/pkg/jobs"
)

type mockActivityRepo struct {
	mu        sync.Mutex
	created   []models.ActivityLog
	logs      []models.ActivityLog
	createErr error
	listErr   error
	lastQuery models.ActivityFilter
}

func (m *mockActivityRepo) Create(_ context.Context, log *models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if log.ID == "" {
		log.ID = "log-" + log.ResourceID
	}
	m.created = append(m.created, *log)
	return nil
}

func (m *mockActivityRepo) List(_ context.Context, filter models.ActivityFilter) ([]models.ActivityLog, error) {
	m.lastQuery = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.logs, nil
}

func (m *mockActivityRepo) Created() []models.ActivityLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ActivityLog(nil), m.created...)
}

type capturePublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *capturePublisher) Publish(_ context.Context, key string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *capturePublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

func TestActivityServiceRecordPublishes(t *testing.T) {
	repo := &mockActivityRepo{}
	pub := &capturePublisher{}
	queue := jobs.NewQueue("activity", PublishJobHandler(pub), jobs.QueueConfig{})
	queue.Start(context.Background())
	defer queue.Stop()

	svc := NewActivityService(repo, queue, zap.NewNop())
	svc.Record(context.Background(), models.ActivityLog{Action: models.ActivityActionCreate, Resource: models.ActivityResourceUser, ResourceID: "u1"})

	require.Len(t, repo.Created(), 1)
	require.Eventually(t, func() bool { return len(pub.Keys()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"u1"}, pub.Keys())
}

func TestActivityServiceRecordSwallowsErrors(t *testing.T) {
	repo := &mockActivityRepo{createErr: errors.New("db down")}
	svc := NewActivityService(repo, nil, nil)

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), models.ActivityLog{Action: models.ActivityActionUpdate})
	})
	assert.Empty(t, repo.Created())
}

func TestActivityServiceList(t *testing.T) {
	repo := &mockActivityRepo{logs: []models.ActivityLog{{ID: "l1"}}}
	svc := NewActivityService(repo, nil, nil)

	logs, err := svc.List(context.Background(), models.ActivityFilter{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Equal(t, 5, repo.lastQuery.Limit)

	repo.listErr = errors.New("boom")
	_, err = svc.List(context.Background(), models.ActivityFilter{})
	assert.Equal(t, appErrors.ErrInternal.Status, appErrors.FromError(err).Status)
}

func TestActivityServiceExport(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	repo := &mockActivityRepo{logs: []models.ActivityLog{
		{ID: "l1", Action: "create", Resource: "user", ResourceName: "Budi", ResourceID: "u1", UserName: "Budi", CreatedAt: now},
	}}
	svc := NewActivityService(repo, nil, nil)
	svc.now = func() time.Time { return now }

	file, err := svc.Export(context.Background(), "CSV", models.ActivityFilter{})
	require.NoError(t, err)
	assert.Equal(t, "activity_20240501_083000.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "Time,Action,Resource,Name,Resource ID,User\n"))
	assert.Contains(t, string(file.Data), "2024-05-01T08:30:00Z,create,user,Budi,u1,Budi")

	file, err = svc.Export(context.Background(), "pdf", models.ActivityFilter{})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)

	_, err = svc.Export(context.Background(), "xlsx", models.ActivityFilter{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
