package repository

import (
	"context"
	"time"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// ModerationRepository handles content reports
type ModerationRepository struct {
	db database.Database
}

// NewModerationRepository creates a new moderation repository
func NewModerationRepository(db database.Database) *ModerationRepository {
	return &ModerationRepository{db: db}
}

var parseReport = parseInto[model.Report]()

// CreateReport stores an open report
func (r *ModerationRepository) CreateReport(ctx context.Context, report *model.Report) error {
	query := `
		CREATE reports CONTENT {
			reporter_id: $reporter_id,
			content_type: $content_type,
			content_id: $content_id,
			reason: $reason,
			details: $details,
			status: $status,
			created_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"reporter_id":  report.ReporterID,
		"content_type": report.ContentType,
		"content_id":   report.ContentID,
		"reason":       report.Reason,
		"details":      ptrToNone(report.Details),
		"status":       model.ReportStatusOpen,
	}
	created, err := createOne(ctx, r.db, query, vars, parseReport)
	if err != nil {
		return err
	}
	*report = *created
	return nil
}

// GetReport retrieves a report
func (r *ModerationRepository) GetReport(ctx context.Context, id string) (*model.Report, error) {
	return selectOne(ctx, r.db, `SELECT * FROM type::record($id) WHERE meta::tb(id) = 'reports'`,
		map[string]interface{}{"id": id}, parseReport)
}

// ListReports returns reports with the given status, oldest first. An empty
// status lists everything, newest first.
func (r *ModerationRepository) ListReports(ctx context.Context, status model.ReportStatus, limit, offset int) ([]*model.Report, error) {
	limit, offset = page(limit, offset, 50, 200)
	vars := map[string]interface{}{"limit": limit, "offset": offset}
	query := `SELECT * FROM reports ORDER BY created_on DESC LIMIT $limit START $offset`
	if status != "" {
		query = `SELECT * FROM reports WHERE status = $status ORDER BY created_on ASC LIMIT $limit START $offset`
		vars["status"] = status
	}
	return selectMany(ctx, r.db, query, vars, parseReport)
}

// ResolveReport closes an open report. It returns nil when the report was
// no longer open.
func (r *ModerationRepository) ResolveReport(ctx context.Context, id string, status model.ReportStatus, resolverID string, note *string, at time.Time) (*model.Report, error) {
	query := `
		UPDATE type::record($id) SET
			status = $status,
			resolver_id = $resolver_id,
			resolution_note = $note,
			resolved_on = <datetime>$at
		WHERE status = 'open'
		RETURN AFTER
	`
	rows, err := selectMany(ctx, r.db, query, map[string]interface{}{
		"id":          id,
		"status":      status,
		"resolver_id": resolverID,
		"note":        ptrToNone(note),
		"at":          timeVar(at),
	}, parseReport)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}
