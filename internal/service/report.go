package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hanbit-dev/fleamart/internal/domain"
)

// SubmitReportInput carries a user complaint about a seller or listing.
type SubmitReportInput struct {
	TargetUserID    int64
	TargetProductID int64
	Reason          domain.ReportReason
	Detail          string
}

// ReportStore handles user reports and their admin resolution. Resolved
// reports can feed the blocked-sellers set.
type ReportStore struct {
	kv        domain.KeyValueStore
	sessions  *SessionManager
	validator *Validator
	catalog   *CatalogStore
	audit     *AuditLog
	now       func() time.Time
}

// NewReportStore creates a new ReportStore.
func NewReportStore(kv domain.KeyValueStore, sessions *SessionManager, validator *Validator, catalog *CatalogStore, audit *AuditLog) *ReportStore {
	return &ReportStore{
		kv:        kv,
		sessions:  sessions,
		validator: validator,
		catalog:   catalog,
		audit:     audit,
		now:       time.Now,
	}
}

// Submit files a report from the current session.
func (s *ReportStore) Submit(ctx context.Context, in SubmitReportInput) (*domain.Report, error) {
	actor, err := s.sessions.CurrentClaims(ctx)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	if !domain.ValidReportReason(in.Reason) {
		return nil, fmt.Errorf("%w: unknown report reason", domain.ErrInvalidInput)
	}
	if in.TargetUserID == 0 && in.TargetProductID == 0 {
		return nil, fmt.Errorf("%w: a report needs a target", domain.ErrInvalidInput)
	}
	if s.validator.ScanText(ctx, in.Detail) {
		return nil, domain.ErrSecurityRejected
	}
	if !s.validator.Validate(ctx, in.Detail, KindFreeText) {
		return nil, fmt.Errorf("%w: detail must be 1-1000 characters", domain.ErrInvalidInput)
	}

	reports, err := loadCollection[domain.Report](ctx, s.kv, domain.KeyReports)
	if err != nil {
		return nil, err
	}

	var maxID int64
	for _, r := range reports {
		if r.ID > maxID {
			maxID = r.ID
		}
	}

	report := domain.Report{
		ID:              maxID + 1,
		ReporterID:      actor.UserID(),
		TargetUserID:    in.TargetUserID,
		TargetProductID: in.TargetProductID,
		Reason:          in.Reason,
		Detail:          Sanitize(in.Detail),
		CreatedAt:       s.now().UTC(),
	}

	reports = append(reports, report)
	if err := saveCollection(ctx, s.kv, domain.KeyReports, reports); err != nil {
		return nil, err
	}

	if err := s.audit.Append(ctx, "report_submitted", map[string]any{
		"reporterId": report.ReporterID,
		"reportId":   report.ID,
		"reason":     string(report.Reason),
	}); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListOpen returns all unprocessed reports. Admin only.
func (s *ReportStore) ListOpen(ctx context.Context) ([]domain.Report, error) {
	actor, err := s.sessions.CurrentClaims(ctx)
	if err != nil || !actor.IsAdmin() {
		return nil, domain.ErrUnauthorized
	}

	reports, err := loadCollection[domain.Report](ctx, s.kv, domain.KeyReports)
	if err != nil {
		return nil, err
	}

	var open []domain.Report
	for _, r := range reports {
		if !r.Processed {
			open = append(open, r)
		}
	}
	return open, nil
}

// Resolve marks a report processed and optionally blocks the reported
// seller. Admin only.
func (s *ReportStore) Resolve(ctx context.Context, reportID int64, blockSeller bool) error {
	actor, err := s.sessions.CurrentClaims(ctx)
	if err != nil || !actor.IsAdmin() {
		return domain.ErrUnauthorized
	}

	reports, err := loadCollection[domain.Report](ctx, s.kv, domain.KeyReports)
	if err != nil {
		return err
	}
	for i := range reports {
		if reports[i].ID != reportID {
			continue
		}
		if reports[i].Processed {
			return fmt.Errorf("%w: report already processed", domain.ErrInvalidInput)
		}
		reports[i].Processed = true
		if err := saveCollection(ctx, s.kv, domain.KeyReports, reports); err != nil {
			return err
		}
		if blockSeller && reports[i].TargetUserID != 0 {
			if err := s.catalog.BlockSeller(ctx, reports[i].TargetUserID); err != nil {
				return err
			}
		}
		return nil
	}
	return domain.ErrNotFound
}
