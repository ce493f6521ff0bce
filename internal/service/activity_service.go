package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/wbs-api/internal/models"
	appErrors "github.com/noah-isme/wbs-api/pkg/errors"
	"github.com/noah-isme/wbs-api/pkg/export"
	"github.com/noah-isme/wbs-api/pkg/jobs"
)

const activityEventJob = "activity.recorded"

// Export formats accepted by ActivityService.Export.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ActivityLogRepository abstracts persistence for the audit trail.
type ActivityLogRepository interface {
	Create(ctx context.Context, log *models.ActivityLog) error
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, error)
}

// EventPublisher forwards activity entries to an external bus.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
}

// ExportFile is a rendered activity log document.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ActivityService records and reads the audit trail. Recording never fails the
// calling operation.
type ActivityService struct {
	repo      ActivityLogRepository
	queue     *jobs.Queue
	renderers map[string]export.Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewActivityService constructs the service. queue may be nil, in which case
// entries are only stored.
func NewActivityService(repo ActivityLogRepository, queue *jobs.Queue, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		repo:  repo,
		queue: queue,
		renderers: map[string]export.Renderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// PublishJobHandler returns a queue handler that delivers recorded entries to publisher.
func PublishJobHandler(publisher EventPublisher) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		return publisher.Publish(ctx, job.Key, job.Payload)
	}
}

// Record stores an entry and schedules it for publishing.
func (s *ActivityService) Record(ctx context.Context, entry models.ActivityLog) {
	if s == nil || s.repo == nil {
		return
	}
	if err := s.repo.Create(ctx, &entry); err != nil {
		s.logger.Warn("failed to record activity",
			zap.String("action", entry.Action),
			zap.String("resource", entry.Resource),
			zap.String("resource_id", entry.ResourceID),
			zap.Error(err),
		)
		return
	}
	if s.queue == nil {
		return
	}
	if err := s.queue.TryEnqueue(jobs.Job{Type: activityEventJob, Key: entry.ResourceID, Payload: entry}); err != nil {
		s.logger.Warn("failed to schedule activity event", zap.String("id", entry.ID), zap.Error(err))
	}
}

// List returns the most recent entries.
func (s *ActivityService) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, error) {
	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity logs")
	}
	return logs, nil
}

// Export renders the entries matching filter as csv or pdf.
func (s *ActivityService) Export(ctx context.Context, format string, filter models.ActivityFilter) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	logs, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	data, err := renderer.Render(activityDataset(logs), "Activity Log")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("activity_%s.%s", s.now().UTC().Format("20060102_150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

func activityDataset(logs []models.ActivityLog) export.Dataset {
	headers := []string{"Time", "Action", "Resource", "Name", "Resource ID", "User"}
	rows := make([]map[string]string, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, map[string]string{
			"Time":        l.CreatedAt.UTC().Format(time.RFC3339),
			"Action":      l.Action,
			"Resource":    l.Resource,
			"Name":        l.ResourceName,
			"Resource ID": l.ResourceID,
			"User":        l.UserName,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
