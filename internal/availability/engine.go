// Package availability derives the bookable dates and start times of a
// provider from the clinic calendar and the confirmed appointments.
package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/agenda-platform/internal/appointments"
	"github.com/wolfman30/agenda-platform/internal/calendar"
	"github.com/wolfman30/agenda-platform/internal/catalog"
	"github.com/wolfman30/agenda-platform/internal/observability/metrics"
	"github.com/wolfman30/agenda-platform/pkg/logging"
)

var availabilityTracer = otel.Tracer("agenda.internal.availability")

const (
	// DefaultHorizon is the number of days scanned when the caller passes none.
	DefaultHorizon = 30
	// MaxDates caps the candidate date list.
	MaxDates = 30
	// DefaultSlotInterval is the grid spacing of candidate start times.
	DefaultSlotInterval = 30 * time.Minute
)

// Catalog resolves providers and procedures.
type Catalog interface {
	ActiveProvider(ctx context.Context, id int64) (*catalog.Provider, error)
	Procedure(ctx context.Context, id int64) (*catalog.Procedure, error)
}

// Bookings lists the confirmed appointments of a provider-day.
type Bookings interface {
	ConfirmedOn(ctx context.Context, providerID int64, date time.Time) ([]appointments.Appointment, error)
}

// Engine computes candidate dates and times. It never writes.
type Engine struct {
	catalog   Catalog
	calendar  *calendar.Resolver
	bookings  Bookings
	occupancy appointments.Occupancy
	interval  time.Duration
	now       func() time.Time
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

func WithOccupancy(o appointments.Occupancy) Option {
	return func(e *Engine) { e.occupancy = o }
}

// WithSlotInterval sets the grid spacing. Intervals under a minute are
// ignored.
func WithSlotInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d >= calendar.MinSlotInterval {
			e.interval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewEngine(cat Catalog, cal *calendar.Resolver, bookings Bookings, opts ...Option) *Engine {
	if cat == nil || cal == nil || bookings == nil {
		panic("availability: catalog, calendar and bookings required")
	}
	e := &Engine{
		catalog:   cat,
		calendar:  cal,
		bookings:  bookings,
		occupancy: appointments.OccupancyPoint,
		interval:  DefaultSlotInterval,
		now:       time.Now,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) today() time.Time {
	return calendar.DateOf(e.now().In(e.calendar.Location()))
}

// CandidateDates lists, in calendar order, the dates from today through
// today+horizon-1 on which the provider works, the clinic is open, and no
// holiday falls. horizon <= 0 means DefaultHorizon. An unknown or inactive
// provider yields an empty list.
func (e *Engine) CandidateDates(ctx context.Context, providerID int64, horizon int) ([]string, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.candidate_dates")
	defer span.End()
	span.SetAttributes(attribute.Int64("agenda.provider_id", providerID), attribute.Int("agenda.horizon", horizon))
	started := time.Now()
	defer func() { e.metrics.ObserveAvailability("dates", time.Since(started).Seconds()) }()

	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	provider, err := e.catalog.ActiveProvider(ctx, providerID)
	if errors.Is(err, catalog.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("availability: provider lookup: %w", err)
	}
	schedule, err := e.calendar.Schedule(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	start := e.today()
	var days []time.Time
	for i := 0; i < horizon && len(days) < MaxDates; i++ {
		d := start.AddDate(0, 0, i)
		if !provider.WorksOn(calendar.WeekdayName(d.Weekday())) {
			continue
		}
		if schedule.ForWeekday(d.Weekday()) == nil {
			continue
		}
		holiday, err := e.calendar.IsHoliday(ctx, d)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if holiday {
			continue
		}
		days = append(days, d)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = calendar.FormatDate(d)
	}
	span.SetAttributes(attribute.Int("agenda.dates", len(out)))
	return out, nil
}

// CandidateTimes lists the free HH:MM start times on the slot grid for the
// provider on date. Unknown providers, malformed dates, holidays, and closed
// weekdays yield an empty list rather than an error.
func (e *Engine) CandidateTimes(ctx context.Context, providerID int64, date string, procedureID int64) ([]string, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.candidate_times")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("agenda.provider_id", providerID),
		attribute.String("agenda.date", date),
		attribute.Int64("agenda.procedure_id", procedureID),
	)
	started := time.Now()
	defer func() { e.metrics.ObserveAvailability("times", time.Since(started).Seconds()) }()

	provider, err := e.catalog.ActiveProvider(ctx, providerID)
	if errors.Is(err, catalog.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("availability: provider lookup: %w", err)
	}
	day, err := calendar.ParseDate(date, e.calendar.Location())
	if err != nil {
		return []string{}, nil
	}
	closed, err := e.calendar.IsClosed(ctx, day)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if closed {
		return []string{}, nil
	}
	hours, _, err := e.calendar.HoursFor(ctx, day.Weekday())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var length, buffer time.Duration
	if e.occupancy == appointments.OccupancyDuration {
		proc, err := e.catalog.Procedure(ctx, procedureID)
		if errors.Is(err, catalog.ErrNotFound) {
			return []string{}, nil
		}
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("availability: procedure lookup: %w", err)
		}
		length = time.Duration(proc.DurationMinutes) * time.Minute
		buffer = time.Duration(provider.BufferMinutes) * time.Minute
	}

	booked, err := e.bookings.ConfirmedOn(ctx, providerID, day)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("availability: confirmed appointments: %w", err)
	}

	out := []string{}
	for slot := hours.Open; slot < hours.Close; slot = slot.Add(e.interval) {
		if e.occupancy == appointments.OccupancyDuration && slot.Add(length) > hours.Close {
			break
		}
		if e.occupancy.Conflicts(booked, slot, length, buffer) {
			continue
		}
		out = append(out, calendar.FormatClock(slot))
	}
	span.SetAttributes(attribute.Int("agenda.slots", len(out)))
	return out, nil
}
