package appointments

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/agenda-platform/internal/cache"
	"github.com/wolfman30/agenda-platform/internal/calendar"
	"github.com/wolfman30/agenda-platform/internal/catalog"
	"github.com/wolfman30/agenda-platform/internal/observability/metrics"
	"github.com/wolfman30/agenda-platform/internal/retry"
	"github.com/wolfman30/agenda-platform/pkg/logging"
)

var appointmentsTracer = otel.Tracer("agenda.internal.appointments")

const (
	// DefaultBookingWindow is how many days ahead a booking may be placed.
	DefaultBookingWindow = 30
	dashboardTTL         = time.Minute
)

// Catalog is the slice of the provider catalog the service relies on.
type Catalog interface {
	ActiveProviders(ctx context.Context) ([]catalog.Provider, error)
	ActiveProvider(ctx context.Context, id int64) (*catalog.Provider, error)
	OfferedProcedure(ctx context.Context, providerID, procedureID int64) (*catalog.Procedure, error)
}

// Schedule is the clinic calendar a booking must fall inside.
type Schedule interface {
	IsClosed(ctx context.Context, date time.Time) (bool, error)
	HoursFor(ctx context.Context, weekday time.Weekday) (calendar.DayHours, bool, error)
}

// Service is the booking transactor.
type Service struct {
	repo      Repository
	catalog   Catalog
	schedule  Schedule
	interval  time.Duration
	cache     cache.Cache
	codes     *CodeGenerator
	now       func() time.Time
	loc       *time.Location
	window    int
	occupancy Occupancy
	policy    retry.Policy
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock sets the time source used for "today" and booking codes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithBookingWindow(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.window = days
		}
	}
}

// WithSchedule rejects bookings on closed dates and at times off the slot
// grid of the given interval.
func WithSchedule(sched Schedule, interval time.Duration) Option {
	return func(s *Service) {
		s.schedule = sched
		if interval >= calendar.MinSlotInterval {
			s.interval = interval
		}
	}
}

func WithOccupancy(o Occupancy) Option {
	return func(s *Service) { s.occupancy = o }
}

func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) { s.policy = p }
}

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(repo Repository, cat Catalog, opts ...Option) *Service {
	if repo == nil || cat == nil {
		panic("appointments: repository and catalog required")
	}
	s := &Service{
		repo:      repo,
		catalog:   cat,
		cache:     cache.Noop{},
		now:       time.Now,
		loc:       time.UTC,
		window:    DefaultBookingWindow,
		interval:  30 * time.Minute,
		occupancy: OccupancyPoint,
		policy:    retry.DefaultPolicy(),
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.codes = NewCodeGenerator(func() time.Time { return s.now().In(s.loc) })
	next := s.policy.Retryable
	s.policy.Retryable = func(err error) bool {
		if errors.Is(err, ErrNotFound) || next == nil {
			return false
		}
		return next(err)
	}
	return s
}

// Occupancy is the slot blocking mode in effect.
func (s *Service) Occupancy() Occupancy { return s.occupancy }

// Today is the current date in the clinic time zone.
func (s *Service) Today() time.Time {
	return calendar.DateOf(s.now().In(s.loc))
}

// Create validates req and books the slot. Rejections are a
// *ValidationError, ErrNotFound, ErrSlotTaken, or ErrPersistence.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.create")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("agenda.provider_id", req.ProviderID),
		attribute.Int64("agenda.procedure_id", req.ProcedureID),
		attribute.String("agenda.date", req.Date),
		attribute.String("agenda.time", req.Time),
	)

	a, err := s.create(ctx, req)
	outcome := "created"
	switch {
	case err == nil:
	case IsValidation(err):
		outcome = "invalid"
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrSlotTaken):
		outcome = "slot_taken"
	default:
		outcome = "error"
	}
	s.metrics.ObserveBooking(outcome)
	span.SetAttributes(attribute.String("agenda.outcome", outcome))
	if err != nil {
		if outcome == "error" {
			span.RecordError(err)
		}
		return nil, err
	}
	return a, nil
}

func (s *Service) create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	date, err := ValidateDate(req.Date, s.Today(), s.window)
	if err != nil {
		return nil, err
	}
	if err := ValidatePhone(req.ClientPhone); err != nil {
		return nil, err
	}
	if err := ValidateName(req.ClientName); err != nil {
		return nil, err
	}
	start, err := ValidateTime(req.Time)
	if err != nil {
		return nil, err
	}

	provider, err := s.catalog.ActiveProvider(ctx, req.ProviderID)
	if err != nil {
		return nil, s.catalogError(err, "provider", req.ProviderID)
	}
	procedure, err := s.catalog.OfferedProcedure(ctx, req.ProviderID, req.ProcedureID)
	if err != nil {
		return nil, s.catalogError(err, "procedure", req.ProcedureID)
	}

	length := time.Duration(procedure.DurationMinutes) * time.Minute
	buffer := time.Duration(provider.BufferMinutes) * time.Minute
	if err := s.checkSlot(ctx, provider, date, start, length); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.ProcedureName)
	if name == "" {
		name = procedure.Name
	}
	a := &Appointment{
		Code:            s.codes.Next(),
		ProviderID:      provider.ID,
		ProcedureID:     procedure.ID,
		ProcedureName:   name,
		ClientName:      strings.TrimSpace(req.ClientName),
		ClientPhone:     strings.TrimSpace(req.ClientPhone),
		Date:            date,
		StartTime:       start,
		DurationMinutes: procedure.DurationMinutes,
		Status:          StatusConfirmed,
	}

	err = s.repo.Insert(ctx, a, func(existing []Appointment) bool {
		return s.occupancy.Conflicts(existing, start, length, buffer)
	})
	if errors.Is(err, ErrSlotTaken) {
		s.logger.Info("booking rejected, slot taken",
			"provider_id", a.ProviderID, "date", req.Date, "time", req.Time)
		return nil, ErrSlotTaken
	}
	if err != nil {
		s.logger.Error("failed to persist appointment", "error", err, "provider_id", a.ProviderID)
		return nil, ErrPersistence
	}

	cache.Invalidate(ctx, s.cache, s.logger)
	s.logger.Info("appointment created",
		"appointment_id", a.ID, "code", a.Code, "provider_id", a.ProviderID,
		"date", calendar.FormatDate(a.Date), "time", calendar.FormatClock(a.StartTime))
	return a, nil
}

// checkSlot applies the rules the availability engine offers slots by: the
// provider works that weekday, the clinic is open, and start sits on the grid.
func (s *Service) checkSlot(ctx context.Context, provider *catalog.Provider, date time.Time, start calendar.Clock, length time.Duration) error {
	if !provider.WorksOn(calendar.WeekdayName(date.Weekday())) {
		return &ValidationError{Field: "date", Reason: ReasonDateUnavailable}
	}
	if s.schedule == nil {
		return nil
	}
	closed, err := s.schedule.IsClosed(ctx, date)
	if err != nil {
		s.logger.Error("calendar lookup failed", "error", err, "date", calendar.FormatDate(date))
		return ErrPersistence
	}
	if closed {
		return &ValidationError{Field: "date", Reason: ReasonDateUnavailable}
	}
	hours, open, err := s.schedule.HoursFor(ctx, date.Weekday())
	if err != nil {
		s.logger.Error("business hours lookup failed", "error", err, "date", calendar.FormatDate(date))
		return ErrPersistence
	}
	if !open || !hours.OnGrid(start, s.interval) {
		return &ValidationError{Field: "time", Reason: ReasonTimeUnavailable}
	}
	if s.occupancy == OccupancyDuration && start.Add(length) > hours.Close {
		return &ValidationError{Field: "time", Reason: ReasonTimeUnavailable}
	}
	return nil
}

func (s *Service) catalogError(err error, kind string, id int64) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return notFoundError{kind: kind, id: id}
	}
	s.logger.Error("catalog lookup failed", "error", err, kind+"_id", id)
	return ErrPersistence
}

// Cancel marks the appointment cancelled, freeing its slot.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	return s.transition(ctx, id, nil, StatusCancelled, "cancelled")
}

// Complete marks a confirmed appointment as attended.
func (s *Service) Complete(ctx context.Context, id int64) error {
	return s.transition(ctx, id, []Status{StatusConfirmed}, StatusCompleted, "completed")
}

func (s *Service) transition(ctx context.Context, id int64, from []Status, to Status, outcome string) error {
	ctx, span := appointmentsTracer.Start(ctx, "appointments."+outcome)
	defer span.End()
	span.SetAttributes(attribute.Int64("agenda.appointment_id", id))

	err := s.repo.UpdateStatus(ctx, id, from, to)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotConfirmed) {
		return err
	}
	if err != nil {
		span.RecordError(err)
		s.logger.Error("failed to update appointment", "error", err, "appointment_id", id, "status", to)
		return ErrPersistence
	}
	s.metrics.ObserveBooking(outcome)
	cache.Invalidate(ctx, s.cache, s.logger)
	s.logger.Info("appointment "+outcome, "appointment_id", id)
	return nil
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, id int64) (*Appointment, error) {
	return retry.Value(ctx, s.policy, func(ctx context.Context) (*Appointment, error) {
		return s.repo.Get(ctx, id)
	})
}

// ListByProvider returns every appointment of a provider, oldest first.
func (s *Service) ListByProvider(ctx context.Context, providerID int64) ([]Appointment, error) {
	return retry.Value(ctx, s.policy, func(ctx context.Context) ([]Appointment, error) {
		return s.repo.ListByProvider(ctx, providerID)
	})
}

// ConfirmedOn returns the confirmed appointments of a provider on date.
func (s *Service) ConfirmedOn(ctx context.Context, providerID int64, date time.Time) ([]Appointment, error) {
	return retry.Value(ctx, s.policy, func(ctx context.Context) ([]Appointment, error) {
		return s.repo.ConfirmedOn(ctx, providerID, date)
	})
}

// Dashboard summarizes appointment counts per active provider.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	return cache.Fetch(ctx, s.cache, s.logger, "dashboard", dashboardTTL, func(ctx context.Context) (*Dashboard, error) {
		providers, err := s.catalog.ActiveProviders(ctx)
		if err != nil {
			return nil, err
		}
		counts, err := retry.Value(ctx, s.policy, s.repo.CountByProvider)
		if err != nil {
			return nil, err
		}
		d := &Dashboard{Providers: make([]ProviderSummary, 0, len(providers))}
		for _, p := range providers {
			c := counts[p.ID]
			d.Providers = append(d.Providers, ProviderSummary{
				ProviderID: p.ID,
				Name:       p.Name,
				Specialty:  p.Specialty,
				Total:      c.Total(),
				Confirmed:  c.Confirmed,
				Cancelled:  c.Cancelled,
				Completed:  c.Completed,
			})
			d.TotalConfirmed += c.Confirmed
		}
		return d, nil
	})
}

// ClearCache drops every cached read.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.cache.InvalidateAll(ctx)
}
