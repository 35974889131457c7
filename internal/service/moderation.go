package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/forgo/haven/api/internal/model"
)

// ModerationRepository defines the interface for report storage
type ModerationRepository interface {
	CreateReport(ctx context.Context, report *model.Report) error
	GetReport(ctx context.Context, id string) (*model.Report, error)
	ListReports(ctx context.Context, status model.ReportStatus, limit, offset int) ([]*model.Report, error)
	ResolveReport(ctx context.Context, id string, status model.ReportStatus, resolverID string, note *string, at time.Time) (*model.Report, error)
}

// ModerationService handles content reports
type ModerationService struct {
	moderationRepo ModerationRepository
	now            func() time.Time
}

// NewModerationService creates a new moderation service
func NewModerationService(moderationRepo ModerationRepository) *ModerationService {
	return &ModerationService{
		moderationRepo: moderationRepo,
		now:            time.Now,
	}
}

// CreateReport files a report against a piece of content
func (s *ModerationService) CreateReport(ctx context.Context, reporterID string, req model.CreateReportRequest) (*model.Report, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}
	contentID := strings.TrimSpace(req.ContentID)
	if model.ReportContentType(req.ContentType) == model.ReportContentProfile && contentID == reporterID {
		return nil, ErrCannotReportSelf
	}

	report := &model.Report{
		ReporterID:  reporterID,
		ContentType: model.ReportContentType(req.ContentType),
		ContentID:   contentID,
		Reason:      model.ReportReason(req.Reason),
		Details:     nonEmpty(req.Details),
	}
	if err := s.moderationRepo.CreateReport(ctx, report); err != nil {
		return nil, err
	}

	slog.Info("report filed",
		slog.String("report_id", report.ID),
		slog.String("content_type", string(report.ContentType)),
		slog.String("reason", string(report.Reason)))
	return report, nil
}

// ListReports returns reports for moderators, optionally filtered by status
func (s *ModerationService) ListReports(ctx context.Context, actor Actor, status string, limit, offset int) ([]*model.Report, error) {
	if !actor.IsModerator() {
		return nil, ErrModeratorRequired
	}
	st := model.ReportStatus(status)
	switch st {
	case "", model.ReportStatusOpen, model.ReportStatusResolved, model.ReportStatusDismissed:
	default:
		return nil, ErrInvalidStatus
	}
	return s.moderationRepo.ListReports(ctx, st, limit, offset)
}

// ResolveReport closes an open report as resolved or dismissed
func (s *ModerationService) ResolveReport(ctx context.Context, actor Actor, id string, req model.ResolveReportRequest) (*model.Report, error) {
	if !actor.IsModerator() {
		return nil, ErrModeratorRequired
	}
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	rid, ok := recordID("reports", id)
	if !ok {
		return nil, ErrReportNotFound
	}
	report, err := s.moderationRepo.GetReport(ctx, rid)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, ErrReportNotFound
	}
	if report.Status != model.ReportStatusOpen {
		return nil, ErrReportClosed
	}

	resolved, err := s.moderationRepo.ResolveReport(ctx, rid, model.ReportStatus(req.Status), actor.UserID, nonEmpty(req.Note), s.now().UTC())
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, ErrReportClosed
	}
	return resolved, nil
}
