package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the clinic schedule and holidays.
type Repository interface {
	BusinessHours(ctx context.Context) (*BusinessHours, error)
	SetHours(ctx context.Context, weekday time.Weekday, hours *DayHours) error
	HolidayOn(ctx context.Context, date time.Time) (bool, error)
	ListHolidays(ctx context.Context) ([]Holiday, error)
	AddHoliday(ctx context.Context, h Holiday) error
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository reads business_hours and holidays.
type PostgresRepository struct {
	db querier
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("calendar: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithQuerier(q querier) *PostgresRepository {
	if q == nil {
		panic("calendar: querier required")
	}
	return &PostgresRepository{db: q}
}

func (r *PostgresRepository) BusinessHours(ctx context.Context) (*BusinessHours, error) {
	rows, err := r.db.Query(ctx, `
		SELECT weekday,
		       COALESCE(to_char(open_time, 'HH24:MI'), ''),
		       COALESCE(to_char(close_time, 'HH24:MI'), '')
		FROM business_hours
	`)
	if err != nil {
		return nil, fmt.Errorf("calendar: query business hours: %w", err)
	}
	defer rows.Close()

	hours := &BusinessHours{}
	for rows.Next() {
		var name, open, close string
		if err := rows.Scan(&name, &open, &close); err != nil {
			return nil, fmt.Errorf("calendar: scan business hours: %w", err)
		}
		weekday, ok := ParseWeekday(name)
		if !ok || open == "" || close == "" {
			continue
		}
		dh, err := NewDayHours(open, close)
		if err != nil {
			continue
		}
		hours.Set(weekday, &dh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("calendar: iterate business hours: %w", err)
	}
	return hours, nil
}

func (r *PostgresRepository) SetHours(ctx context.Context, weekday time.Weekday, hours *DayHours) error {
	var open, close any
	if hours != nil {
		open, close = FormatClock(hours.Open), FormatClock(hours.Close)
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO business_hours (weekday, open_time, close_time)
		VALUES ($1, $2::time, $3::time)
		ON CONFLICT (weekday) DO UPDATE
		SET open_time = EXCLUDED.open_time, close_time = EXCLUDED.close_time
	`, WeekdayName(weekday), open, close)
	if err != nil {
		return fmt.Errorf("calendar: set hours: %w", err)
	}
	return nil
}

func (r *PostgresRepository) HolidayOn(ctx context.Context, date time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM holidays
			WHERE holiday_date = $1
			   OR (recurring AND EXTRACT(MONTH FROM holiday_date) = $2 AND EXTRACT(DAY FROM holiday_date) = $3)
		)
	`, DateOf(date), int(date.Month()), date.Day()).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("calendar: check holiday: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) ListHolidays(ctx context.Context) ([]Holiday, error) {
	rows, err := r.db.Query(ctx, `SELECT holiday_date, description, recurring FROM holidays ORDER BY holiday_date`)
	if err != nil {
		return nil, fmt.Errorf("calendar: list holidays: %w", err)
	}
	defer rows.Close()

	var out []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.Date, &h.Description, &h.Recurring); err != nil {
			return nil, fmt.Errorf("calendar: scan holiday: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) AddHoliday(ctx context.Context, h Holiday) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO holidays (holiday_date, description, recurring)
		VALUES ($1, $2, $3)
		ON CONFLICT (holiday_date) DO UPDATE
		SET description = EXCLUDED.description, recurring = EXCLUDED.recurring
	`, DateOf(h.Date), h.Description, h.Recurring)
	if err != nil {
		return fmt.Errorf("calendar: add holiday: %w", err)
	}
	return nil
}

// MemoryRepository keeps the schedule in process, for tests and local runs.
type MemoryRepository struct {
	mu       sync.RWMutex
	hours    BusinessHours
	holidays map[string]Holiday
}

func NewMemoryRepository(hours BusinessHours, holidays ...Holiday) *MemoryRepository {
	r := &MemoryRepository{hours: hours, holidays: make(map[string]Holiday)}
	for _, h := range holidays {
		r.holidays[FormatDate(h.Date)] = h
	}
	return r
}

func (r *MemoryRepository) BusinessHours(context.Context) (*BusinessHours, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	copied := r.hours
	return &copied, nil
}

func (r *MemoryRepository) SetHours(_ context.Context, weekday time.Weekday, hours *DayHours) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hours != nil {
		h := *hours
		hours = &h
	}
	r.hours.Set(weekday, hours)
	return nil
}

func (r *MemoryRepository) HolidayOn(_ context.Context, date time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.holidays {
		if h.Matches(date) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) ListHolidays(context.Context) ([]Holiday, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Holiday, 0, len(r.holidays))
	for _, h := range r.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *MemoryRepository) AddHoliday(_ context.Context, h Holiday) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holidays[FormatDate(h.Date)] = h
	return nil
}

// StandardHours is the default clinic schedule: 09:00-18:00 Monday to
// Saturday, closed on Sunday.
func StandardHours() BusinessHours {
	b := BusinessHours{}
	for d := time.Monday; d <= time.Saturday; d++ {
		h := DayHours{Open: 9 * 60, Close: 18 * 60}
		b.Set(d, &h)
	}
	return b
}
