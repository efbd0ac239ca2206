package patients

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

// Service coordinates patient operations.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// List returns one page of patients.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Patient, shared.Pagination, error) {
	out, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return out, shared.NewPagination(filters.Page, filters.PageSize, total), nil
}

// Get fetches one patient.
func (s *Service) Get(ctx context.Context, id string) (Patient, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new patient.
func (s *Service) Create(ctx context.Context, patient Patient) (Patient, error) {
	if err := validatePatient(patient); err != nil {
		return Patient{}, err
	}
	patient.ID = uuid.NewString()
	if patient.Status == "" {
		patient.Status = StatusActive
	}
	created, err := s.repo.Create(ctx, patient)
	if err != nil {
		return Patient{}, err
	}
	s.recordAudit(ctx, "patient:create", created.ID, map[string]any{"name": created.FullName()})
	return created, nil
}

// Update validates and stores changes to a patient.
func (s *Service) Update(ctx context.Context, patient Patient) (Patient, error) {
	if err := validatePatient(patient); err != nil {
		return Patient{}, err
	}
	updated, err := s.repo.Update(ctx, patient)
	if err != nil {
		return Patient{}, err
	}
	s.recordAudit(ctx, "patient:update", updated.ID, nil)
	return updated, nil
}

// Delete removes a patient record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "patient:delete", id, nil)
	return nil
}

// RecordVisit advances the patient's last-visit marker. Called by the
// visits module when a visit record is filed.
func (s *Service) RecordVisit(ctx context.Context, id string, visitedAt time.Time) error {
	return s.repo.TouchLastVisit(ctx, id, visitedAt)
}

// DisplayName resolves a patient's name and phone for other modules that
// denormalise them onto their own records.
func (s *Service) DisplayName(ctx context.Context, id string) (string, string, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", "", err
	}
	return p.FullName(), p.Phone, nil
}

// Stats summarises the roster with month-over-month intake movement.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	now := s.now()
	total, active, err := s.repo.Counts(ctx)
	if err != nil {
		return Stats{}, err
	}
	dates, err := s.repo.CreationDates(ctx, shared.PreviousMonth(now).Start)
	if err != nil {
		return Stats{}, err
	}
	thisMonth, lastMonth := shared.SplitByMonth(now, dates, nil)
	return Stats{
		TotalPatients:  total,
		NewThisMonth:   int(thisMonth),
		NewChange:      shared.PeriodChange(thisMonth, lastMonth),
		ActivePatients: active,
	}, nil
}

func validatePatient(patient Patient) error {
	if strings.TrimSpace(patient.FirstName) == "" && strings.TrimSpace(patient.LastName) == "" {
		return fmt.Errorf("%w: a name is required", httpx.ErrValidation)
	}
	if strings.TrimSpace(patient.Phone) == "" {
		return fmt.Errorf("%w: phone number is required", httpx.ErrValidation)
	}
	if patient.Age < 0 || patient.Age > 150 {
		return fmt.Errorf("%w: age out of range", httpx.ErrValidation)
	}
	if patient.Status != "" && patient.Status != StatusActive && patient.Status != StatusInactive {
		return fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, patient.Status)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	actor := shared.ActorFromContext(ctx)
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "patient",
		EntityID: entityID,
		Meta:     meta,
	})
}
