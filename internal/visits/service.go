package visits

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/novadent/novadent/internal/platform/httpx"
	"github.com/novadent/novadent/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// PatientRoster is the slice of the patients module the visits module needs:
// name lookup on create and the last-visit marker on file.
type PatientRoster interface {
	DisplayName(ctx context.Context, patientID string) (name, phone string, err error)
	RecordVisit(ctx context.Context, patientID string, visitedAt time.Time) error
}

// Service coordinates visit record operations.
type Service struct {
	repo     Repository
	audit    AuditPort
	patients PatientRoster
}

// NewService builds Service. patients may be nil.
func NewService(repo Repository, audit AuditPort, patients PatientRoster) *Service {
	return &Service{repo: repo, audit: audit, patients: patients}
}

// List returns one page of visit records.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Visit, shared.Pagination, error) {
	out, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return out, shared.NewPagination(filters.Page, filters.PageSize, total), nil
}

// History returns all visits for one patient, newest first.
func (s *Service) History(ctx context.Context, patientID string) ([]Visit, error) {
	return s.repo.ListForPatient(ctx, patientID)
}

// Get fetches one visit record.
func (s *Service) Get(ctx context.Context, id string) (Visit, error) {
	return s.repo.Get(ctx, id)
}

// Create files a new visit record and moves the patient's last-visit marker
// forward.
func (s *Service) Create(ctx context.Context, visit Visit) (Visit, error) {
	if err := validateVisit(visit); err != nil {
		return Visit{}, err
	}
	if visit.Status == "" {
		visit.Status = StatusCompleted
	}
	if s.patients != nil && visit.PatientID != "" && visit.PatientName == "" {
		name, _, err := s.patients.DisplayName(ctx, visit.PatientID)
		if err != nil {
			return Visit{}, err
		}
		visit.PatientName = name
	}
	visit.ID = uuid.NewString()
	created, err := s.repo.Create(ctx, visit)
	if err != nil {
		return Visit{}, err
	}
	if s.patients != nil && created.PatientID != "" {
		if err := s.patients.RecordVisit(ctx, created.PatientID, created.Date); err != nil {
			s.recordAudit(ctx, "visit:touch-failed", created.ID, map[string]any{"error": err.Error()})
		}
	}
	s.recordAudit(ctx, "visit:create", created.ID, map[string]any{"patient": created.PatientName})
	return created, nil
}

// Update revises a filed record. The patient link is immutable.
func (s *Service) Update(ctx context.Context, visit Visit) (Visit, error) {
	if err := validateVisit(visit); err != nil {
		return Visit{}, err
	}
	if visit.Status == "" {
		visit.Status = StatusCompleted
	}
	updated, err := s.repo.Update(ctx, visit)
	if err != nil {
		return Visit{}, err
	}
	s.recordAudit(ctx, "visit:update", updated.ID, nil)
	return updated, nil
}

// Delete removes a visit record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "visit:delete", id, nil)
	return nil
}

// FilterOptions lists the distinct dentists and treatments on record, used
// to populate filter dropdowns.
func (s *Service) FilterOptions(ctx context.Context) (dentists, treatments []string, err error) {
	dentists, err = s.repo.Dentists(ctx)
	if err != nil {
		return nil, nil, err
	}
	treatments, err = s.repo.Treatments(ctx)
	if err != nil {
		return nil, nil, err
	}
	return dentists, treatments, nil
}

func (s *Service) recordAudit(ctx context.Context, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "visit", EntityID: id, Meta: meta})
}

func validateVisit(visit Visit) error {
	if strings.TrimSpace(visit.PatientID) == "" && strings.TrimSpace(visit.PatientName) == "" {
		return fmt.Errorf("%w: a patient is required", httpx.ErrValidation)
	}
	if strings.TrimSpace(visit.DentistName) == "" {
		return fmt.Errorf("%w: a dentist is required", httpx.ErrValidation)
	}
	if visit.Date.IsZero() {
		return fmt.Errorf("%w: a visit date is required", httpx.ErrValidation)
	}
	if visit.Cost < 0 {
		return fmt.Errorf("%w: cost cannot be negative", httpx.ErrValidation)
	}
	switch visit.Status {
	case "", StatusCompleted, StatusFollowUp:
	default:
		return fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, visit.Status)
	}
	return nil
}
