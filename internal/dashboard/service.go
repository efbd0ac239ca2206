package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/novadent/novadent/internal/appointments"
	"github.com/novadent/novadent/internal/billing"
	"github.com/novadent/novadent/internal/inventory"
	"github.com/novadent/novadent/internal/patients"
)

// Summary is the landing-page payload: one stats block per module.
type Summary struct {
	Patients     patients.Stats     `json:"patients"`
	Appointments appointments.Stats `json:"appointments"`
	Billing      billing.Stats      `json:"billing"`
	Inventory    inventory.Stats    `json:"inventory"`
	GeneratedAt  time.Time          `json:"generated_at"`
}

// PatientStats is the slice of the patients module the dashboard reads.
type PatientStats interface {
	Stats(ctx context.Context) (patients.Stats, error)
}

// AppointmentStats is the slice of the appointments module the dashboard reads.
type AppointmentStats interface {
	Stats(ctx context.Context) (appointments.Stats, error)
}

// BillingStats is the slice of the billing module the dashboard reads.
type BillingStats interface {
	Stats(ctx context.Context) (billing.Stats, error)
}

// InventoryStats is the slice of the inventory module the dashboard reads.
type InventoryStats interface {
	Stats(ctx context.Context) (inventory.Stats, error)
}

// Service assembles the dashboard summary, fanning out to the module
// services concurrently and caching the combined result.
type Service struct {
	patients     PatientStats
	appointments AppointmentStats
	billing      BillingStats
	inventory    InventoryStats
	cache        *Cache
	now          func() time.Time
}

// NewService builds Service. cache may be nil, in which case every request
// recomputes the summary.
func NewService(p PatientStats, a AppointmentStats, b BillingStats, i InventoryStats, cache *Cache) *Service {
	return &Service{patients: p, appointments: a, billing: b, inventory: i, cache: cache, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Summary returns the cached summary, computing it on a miss.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	key, err := s.cache.BuildKey(ctx, keySummary())
	if err != nil {
		return Summary{}, err
	}
	var out Summary
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return s.compute(ctx)
	})
	return out, err
}

// Invalidate bumps the cache version. Module mutations call this through
// their audit hooks so the next summary read recomputes.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) compute(ctx context.Context) (Summary, error) {
	var out Summary
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.patients.Stats(ctx)
		if err != nil {
			return err
		}
		out.Patients = stats
		return nil
	})
	g.Go(func() error {
		stats, err := s.appointments.Stats(ctx)
		if err != nil {
			return err
		}
		out.Appointments = stats
		return nil
	})
	g.Go(func() error {
		stats, err := s.billing.Stats(ctx)
		if err != nil {
			return err
		}
		out.Billing = stats
		return nil
	})
	g.Go(func() error {
		stats, err := s.inventory.Stats(ctx)
		if err != nil {
			return err
		}
		out.Inventory = stats
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	out.GeneratedAt = s.now()
	return out, nil
}
