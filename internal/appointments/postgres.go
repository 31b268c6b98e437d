package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/agenda-platform/internal/calendar"
)

const confirmedSlotIndex = "appointments_confirmed_slot_key"

type querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in the appointments table.
type PostgresRepository struct {
	db querier
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithQuerier(q querier) *PostgresRepository {
	if q == nil {
		panic("appointments: querier required")
	}
	return &PostgresRepository{db: q}
}

const selectColumns = `
	id, code, provider_id, procedure_id, procedure_name, client_name, client_phone,
	appointment_date, to_char(start_time, 'HH24:MI'), duration_minutes, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (Appointment, error) {
	var (
		a      Appointment
		start  string
		status string
	)
	if err := row.Scan(&a.ID, &a.Code, &a.ProviderID, &a.ProcedureID, &a.ProcedureName, &a.ClientName,
		&a.ClientPhone, &a.Date, &start, &a.DurationMinutes, &status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Appointment{}, err
	}
	a.Status = Status(status)
	clock, err := calendar.ParseClock(start)
	if err != nil {
		return Appointment{}, err
	}
	a.StartTime = clock
	return a, nil
}

func collect(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()
	out := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Insert takes a transaction-scoped advisory lock on the provider-day, runs
// the conflict check against the confirmed rows of that day, then inserts.
// The partial unique index on confirmed slots backs the lock.
func (r *PostgresRepository) Insert(ctx context.Context, a *Appointment, conflicts ConflictFunc) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("appointments: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	day := calendar.DateOf(a.Date)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, int32(a.ProviderID), lockDay(day)); err != nil {
		return fmt.Errorf("appointments: lock provider day: %w", err)
	}

	rows, err := tx.Query(ctx, `SELECT `+selectColumns+`
		FROM appointments
		WHERE provider_id = $1 AND appointment_date = $2 AND status = 'confirmed'
		ORDER BY start_time`, a.ProviderID, day)
	if err != nil {
		return fmt.Errorf("appointments: load day: %w", err)
	}
	existing, err := collect(rows)
	if err != nil {
		return fmt.Errorf("appointments: scan day: %w", err)
	}
	if conflicts != nil && conflicts(existing) {
		return ErrSlotTaken
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (code, provider_id, procedure_id, procedure_name, client_name,
			client_phone, appointment_date, start_time, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::time, $9, $10)
		RETURNING id, created_at, updated_at`,
		a.Code, a.ProviderID, a.ProcedureID, a.ProcedureName, a.ClientName, a.ClientPhone,
		day, calendar.FormatClock(a.StartTime), a.DurationMinutes, string(a.Status),
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == confirmedSlotIndex {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: insert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("appointments: commit: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*Appointment, error) {
	a, err := scanAppointment(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM appointments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return &a, nil
}

func (r *PostgresRepository) ListByProvider(ctx context.Context, providerID int64) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+`
		FROM appointments WHERE provider_id = $1
		ORDER BY appointment_date, start_time, id`, providerID)
	if err != nil {
		return nil, fmt.Errorf("appointments: list by provider: %w", err)
	}
	out, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("appointments: scan list: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) ConfirmedOn(ctx context.Context, providerID int64, date time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+`
		FROM appointments
		WHERE provider_id = $1 AND appointment_date = $2 AND status = 'confirmed'
		ORDER BY start_time`, providerID, calendar.DateOf(date))
	if err != nil {
		return nil, fmt.Errorf("appointments: confirmed on: %w", err)
	}
	out, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("appointments: scan confirmed: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id int64, from []Status, to Status) error {
	var (
		ct  pgconn.CommandTag
		err error
	)
	if len(from) == 0 {
		ct, err = r.db.Exec(ctx, `UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(to))
	} else {
		allowed := make([]string, len(from))
		for i, s := range from {
			allowed[i] = string(s)
		}
		ct, err = r.db.Exec(ctx, `UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1 AND status = ANY($3)`, id, string(to), allowed)
	}
	if err != nil {
		return fmt.Errorf("appointments: update status: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrNotConfirmed
}

func (r *PostgresRepository) CountByProvider(ctx context.Context) (map[int64]StatusCounts, error) {
	rows, err := r.db.Query(ctx, `
		SELECT provider_id,
		       COUNT(*) FILTER (WHERE status = 'confirmed'),
		       COUNT(*) FILTER (WHERE status = 'cancelled'),
		       COUNT(*) FILTER (WHERE status = 'completed')
		FROM appointments
		GROUP BY provider_id`)
	if err != nil {
		return nil, fmt.Errorf("appointments: count by provider: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]StatusCounts)
	for rows.Next() {
		var (
			providerID int64
			c          StatusCounts
		)
		if err := rows.Scan(&providerID, &c.Confirmed, &c.Cancelled, &c.Completed); err != nil {
			return nil, fmt.Errorf("appointments: scan counts: %w", err)
		}
		out[providerID] = c
	}
	return out, rows.Err()
}

// lockDay folds a date into the second advisory-lock key.
func lockDay(day time.Time) int32 {
	y, m, d := day.Date()
	return int32(y*10000 + int(m)*100 + d)
}
