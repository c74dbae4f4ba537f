package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/borderdesk/visatrack/internal/domain"
	"github.com/borderdesk/visatrack/internal/mailer"
	"github.com/borderdesk/visatrack/internal/repository"
	"github.com/borderdesk/visatrack/pkg/events"
	"github.com/borderdesk/visatrack/pkg/logger"
)

// ErrNotFound is returned when an operation targets a missing record.
var ErrNotFound = fmt.Errorf("tourist not found")

// sweepConcurrency bounds the fan-out of the sweep. Records are mutated
// independently, so any degree of parallelism is correct.
const sweepConcurrency = 8

type SweepResult struct {
	Scanned       int `json:"scanned"`
	RemindersSent int `json:"reminders_sent"`
	Expired       int `json:"expired"`
}

// TouristService takes today as an explicit parameter on every date-sensitive
// operation; nothing below the handlers reads the wall clock, which keeps the
// classification paths deterministic under test.
type TouristService interface {
	AddTourist(ctx context.Context, req *domain.CreateTouristRequest, today time.Time) (*domain.Tourist, error)
	GetTourist(ctx context.Context, id int64, today time.Time) (*domain.Tourist, error)
	ListTourists(ctx context.Context, limit, offset int, status *domain.VisaStatus, nationality string, today time.Time) ([]domain.Tourist, error)
	FindByPassport(ctx context.Context, passportNumber string, today time.Time) (*domain.Tourist, error)
	SendReminder(ctx context.Context, id int64, today time.Time) (string, error)
	RecordExit(ctx context.Context, id int64, exitDate time.Time, notes *string) (*domain.Tourist, error)
	RecordRenewal(ctx context.Context, id int64, renewalDate, newExpirationDate time.Time, notes *string) (*domain.Tourist, error)
	DashboardStats(ctx context.Context, today time.Time) (*domain.DashboardStats, error)
	Sweep(ctx context.Context, today time.Time) (*SweepResult, error)
}

type touristService struct {
	touristRepo repository.TouristRepository
	mail        mailer.Service
	eventBus    events.Publisher
}

func NewTouristService(touristRepo repository.TouristRepository, mail mailer.Service, eventBus events.Publisher) TouristService {
	return &touristService{
		touristRepo: touristRepo,
		mail:        mail,
		eventBus:    eventBus,
	}
}

func (s *touristService) AddTourist(ctx context.Context, req *domain.CreateTouristRequest, today time.Time) (*domain.Tourist, error) {
	status := domain.Classify(today, req.VisaExpirationDate, false, nil, nil)

	tourist, err := s.touristRepo.Create(ctx, req, status)
	if err != nil {
		return nil, fmt.Errorf("failed to create tourist record: %w", err)
	}

	event := events.TouristCreatedEvent{
		TouristID:      tourist.ID,
		FullName:       tourist.FullName,
		Nationality:    tourist.Nationality,
		PassportNumber: tourist.PassportNumber,
		VisaNumber:     tourist.VisaNumber,
		ExpirationDate: tourist.VisaExpirationDate,
		Status:         string(tourist.Status),
		CreatedAt:      tourist.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.TouristCreated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish tourist created event", "error", err, "tourist_id", tourist.ID)
	}

	// Run a sweep immediately so a record created inside the reminder window
	// gets its reminder without waiting for the daily run.
	if _, err := s.Sweep(ctx, today); err != nil {
		logger.ErrorContext(ctx, "Post-create sweep failed", "error", err, "tourist_id", tourist.ID)
	}

	// The sweep may have just mutated the new record
	created, err := s.touristRepo.GetByID(ctx, tourist.ID)
	if err != nil || created == nil {
		return tourist, nil
	}
	created.Status = created.DerivedStatus(today)
	return created, nil
}

func (s *touristService) GetTourist(ctx context.Context, id int64, today time.Time) (*domain.Tourist, error) {
	tourist, err := s.touristRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tourist: %w", err)
	}
	if tourist == nil {
		return nil, ErrNotFound
	}
	tourist.Status = tourist.DerivedStatus(today)
	return tourist, nil
}

func (s *touristService) ListTourists(ctx context.Context, limit, offset int, status *domain.VisaStatus, nationality string, today time.Time) ([]domain.Tourist, error) {
	var (
		tourists []domain.Tourist
		err      error
	)
	switch {
	case status != nil:
		tourists, err = s.touristRepo.ListByStatus(ctx, *status, limit, offset)
	case nationality != "":
		tourists, err = s.touristRepo.ListByNationality(ctx, nationality, limit, offset)
	default:
		tourists, err = s.touristRepo.List(ctx, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list tourists: %w", err)
	}

	// The stored status is a cache that lags until the next sweep; readers
	// always see the freshly derived value.
	for i := range tourists {
		tourists[i].Status = tourists[i].DerivedStatus(today)
	}
	return tourists, nil
}

func (s *touristService) FindByPassport(ctx context.Context, passportNumber string, today time.Time) (*domain.Tourist, error) {
	tourist, err := s.touristRepo.FindByPassport(ctx, passportNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to find tourist: %w", err)
	}
	if tourist == nil {
		return nil, ErrNotFound
	}
	tourist.Status = tourist.DerivedStatus(today)
	return tourist, nil
}

// SendReminder is the manual action. Unlike the sweep it ignores the
// reminder window and the reminder_sent flag, so a repeat send always
// refreshes last_reminder_date. Terminal records are still off limits.
func (s *touristService) SendReminder(ctx context.Context, id int64, today time.Time) (string, error) {
	tourist, err := s.touristRepo.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to get tourist: %w", err)
	}
	if tourist == nil {
		return "", ErrNotFound
	}
	if tourist.IsTerminal() {
		return "", fmt.Errorf("cannot send reminder: record is already exited or renewed")
	}

	daysRemaining := domain.DaysUntil(today, tourist.VisaExpirationDate)
	if err := s.mail.SendVisaReminder(tourist.Email, tourist.FullName, tourist.VisaNumber, tourist.VisaExpirationDate, daysRemaining); err != nil {
		logger.ErrorContext(ctx, "Reminder delivery failed", "error", err, "tourist_id", tourist.ID, "email", tourist.Email)
	}

	changed, err := s.touristRepo.RecordManualReminder(ctx, id, today)
	if err != nil {
		return "", fmt.Errorf("failed to record reminder: %w", err)
	}
	if !changed {
		// Lost a race against an exit or renewal.
		return "", fmt.Errorf("cannot send reminder: record is already exited or renewed")
	}

	s.publishReminderSent(ctx, tourist, daysRemaining, true)

	return fmt.Sprintf("Reminder sent to %s", tourist.FullName), nil
}

func (s *touristService) RecordExit(ctx context.Context, id int64, exitDate time.Time, notes *string) (*domain.Tourist, error) {
	tourist, err := s.touristRepo.RecordExit(ctx, id, exitDate, notes)
	if err != nil {
		return nil, fmt.Errorf("failed to record exit: %w", err)
	}
	if tourist == nil {
		return nil, ErrNotFound
	}

	event := events.TouristExitedEvent{TouristID: tourist.ID, ExitDate: exitDate}
	if err := s.eventBus.Publish(ctx, events.TouristExited, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish tourist exited event", "error", err, "tourist_id", tourist.ID)
	}

	return tourist, nil
}

func (s *touristService) RecordRenewal(ctx context.Context, id int64, renewalDate, newExpirationDate time.Time, notes *string) (*domain.Tourist, error) {
	tourist, err := s.touristRepo.RecordRenewal(ctx, id, renewalDate, newExpirationDate, notes)
	if err != nil {
		return nil, fmt.Errorf("failed to record renewal: %w", err)
	}
	if tourist == nil {
		return nil, ErrNotFound
	}

	event := events.VisaRenewedEvent{
		TouristID:         tourist.ID,
		RenewalDate:       renewalDate,
		NewExpirationDate: newExpirationDate,
	}
	if err := s.eventBus.Publish(ctx, events.VisaRenewed, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish visa renewed event", "error", err, "tourist_id", tourist.ID)
	}

	return tourist, nil
}

func (s *touristService) DashboardStats(ctx context.Context, today time.Time) (*domain.DashboardStats, error) {
	tourists, err := s.touristRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load records for stats: %w", err)
	}

	stats := domain.CountStatuses(tourists, today)
	return &stats, nil
}

// Sweep scans every record and applies the reminder and expiration rules.
// Each record is handled independently, so the scan fans out with a bounded
// worker group. Every mutation is guarded at the storage layer, which makes
// the whole run idempotent: an immediate re-run emits no further mutations.
func (s *touristService) Sweep(ctx context.Context, today time.Time) (*SweepResult, error) {
	tourists, err := s.touristRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("sweep scan failed: %w", err)
	}

	var reminders, expired atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)

	for i := range tourists {
		t := tourists[i]
		g.Go(func() error {
			if t.IsTerminal() {
				return nil
			}

			daysRemaining := domain.DaysUntil(today, t.VisaExpirationDate)

			switch {
			case daysRemaining >= 0 && daysRemaining <= domain.ReminderWindowDays && !t.ReminderSent:
				if s.dispatchReminder(gctx, &t, daysRemaining, today) {
					reminders.Add(1)
				}
			case daysRemaining < 0 && t.Status != domain.StatusExpired:
				changed, err := s.touristRepo.MarkExpired(gctx, t.ID)
				if err != nil {
					return fmt.Errorf("mark expired (id=%d): %w", t.ID, err)
				}
				if changed {
					expired.Add(1)
					event := events.VisaExpiredEvent{TouristID: t.ID, ExpirationDate: t.VisaExpirationDate}
					if err := s.eventBus.Publish(gctx, events.VisaExpired, event); err != nil {
						logger.ErrorContext(gctx, "Failed to publish visa expired event", "error", err, "tourist_id", t.ID)
					}
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &SweepResult{
		Scanned:       len(tourists),
		RemindersSent: int(reminders.Load()),
		Expired:       int(expired.Load()),
	}

	logger.InfoContext(ctx, "Sweep completed",
		"scanned", result.Scanned,
		"reminders_sent", result.RemindersSent,
		"expired", result.Expired,
	)

	event := events.SweepDoneEvent{
		Scanned:       result.Scanned,
		RemindersSent: result.RemindersSent,
		Expired:       result.Expired,
		RanAt:         time.Now(),
	}
	if err := s.eventBus.Publish(ctx, events.SweepDone, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish sweep event", "error", err)
	}

	return result, nil
}

// dispatchReminder is the sweep's reminder branch: send the notification,
// then record that it was sent. The send is fire-and-forget: a delivery
// failure is logged but never blocks the status flip. Returns whether the
// record was actually mutated.
func (s *touristService) dispatchReminder(ctx context.Context, t *domain.Tourist, daysRemaining int, today time.Time) bool {
	if err := s.mail.SendVisaReminder(t.Email, t.FullName, t.VisaNumber, t.VisaExpirationDate, daysRemaining); err != nil {
		logger.ErrorContext(ctx, "Reminder delivery failed", "error", err, "tourist_id", t.ID, "email", t.Email)
	}

	changed, err := s.touristRepo.MarkReminderSent(ctx, t.ID, today)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to record reminder", "error", err, "tourist_id", t.ID)
		return false
	}
	if !changed {
		return false
	}

	s.publishReminderSent(ctx, t, daysRemaining, false)
	return true
}

func (s *touristService) publishReminderSent(ctx context.Context, t *domain.Tourist, daysRemaining int, manual bool) {
	event := events.ReminderSentEvent{
		TouristID:      t.ID,
		Email:          t.Email,
		ExpirationDate: t.VisaExpirationDate,
		DaysRemaining:  daysRemaining,
		Manual:         manual,
		SentAt:         time.Now(),
	}
	if err := s.eventBus.Publish(ctx, events.ReminderSent, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish reminder sent event", "error", err, "tourist_id", t.ID)
	}
}
