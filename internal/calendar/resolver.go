package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/agenda-platform/internal/retry"
	"github.com/wolfman30/agenda-platform/pkg/logging"
)

// Resolver answers holiday and opening-hours questions for a date.
type Resolver struct {
	repo   Repository
	loc    *time.Location
	policy retry.Policy
	logger *logging.Logger
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithRetryPolicy overrides the read retry policy.
func WithRetryPolicy(p retry.Policy) ResolverOption {
	return func(r *Resolver) { r.policy = p }
}

// WithLogger sets the resolver logger.
func WithLogger(l *logging.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewResolver(repo Repository, loc *time.Location, opts ...ResolverOption) *Resolver {
	if repo == nil {
		panic("calendar: repository required")
	}
	if loc == nil {
		loc = time.UTC
	}
	r := &Resolver{
		repo:   repo,
		loc:    loc,
		policy: retry.DefaultPolicy(),
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Location is the clinic time zone dates are interpreted in.
func (r *Resolver) Location() *time.Location { return r.loc }

// IsHoliday reports whether date is a registered holiday.
func (r *Resolver) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	ok, err := retry.Value(ctx, r.policy, func(ctx context.Context) (bool, error) {
		return r.repo.HolidayOn(ctx, DateOf(date))
	})
	if err != nil {
		r.logger.Error("holiday lookup failed", "date", FormatDate(date), "error", err)
		return false, fmt.Errorf("calendar: holiday lookup: %w", err)
	}
	return ok, nil
}

// IsHolidayString is IsHoliday for a DD/MM/YYYY string. Malformed input is
// reported as not a holiday.
func (r *Resolver) IsHolidayString(ctx context.Context, date string) (bool, error) {
	d, err := ParseDate(date, r.loc)
	if err != nil {
		return false, nil
	}
	return r.IsHoliday(ctx, d)
}

// HoursFor returns the opening window for a weekday; ok is false when the
// clinic is closed that day.
func (r *Resolver) HoursFor(ctx context.Context, weekday time.Weekday) (DayHours, bool, error) {
	hours, err := r.schedule(ctx)
	if err != nil {
		return DayHours{}, false, err
	}
	h := hours.ForWeekday(weekday)
	if h == nil {
		return DayHours{}, false, nil
	}
	return *h, true, nil
}

// Schedule returns the full weekly schedule.
func (r *Resolver) Schedule(ctx context.Context) (*BusinessHours, error) {
	return r.schedule(ctx)
}

// IsClosed is true on holidays and on weekdays without opening hours.
func (r *Resolver) IsClosed(ctx context.Context, date time.Time) (bool, error) {
	holiday, err := r.IsHoliday(ctx, date)
	if err != nil {
		return false, err
	}
	if holiday {
		return true, nil
	}
	_, open, err := r.HoursFor(ctx, date.Weekday())
	if err != nil {
		return false, err
	}
	return !open, nil
}

func (r *Resolver) schedule(ctx context.Context) (*BusinessHours, error) {
	hours, err := retry.Value(ctx, r.policy, r.repo.BusinessHours)
	if err != nil {
		r.logger.Error("business hours lookup failed", "error", err)
		return nil, fmt.Errorf("calendar: business hours: %w", err)
	}
	return hours, nil
}
