package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var appointmentCols = []string{
	"id", "code", "provider_id", "procedure_id", "procedure_name", "client_name", "client_phone",
	"appointment_date", "start_time", "duration_minutes", "status", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, newPostgresRepositoryWithQuerier(mock)
}

func newAppointment() *Appointment {
	return &Appointment{
		Code:            "AG030326100000",
		ProviderID:      1,
		ProcedureID:     2,
		ProcedureName:   "Simple Haircut",
		ClientName:      "Maria Souza",
		ClientPhone:     "11987654321",
		Date:            time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC),
		StartTime:       10 * 60,
		DurationMinutes: 30,
		Status:          StatusConfirmed,
	}
}

func pointConflict(a *Appointment) ConflictFunc {
	return func(existing []Appointment) bool {
		return OccupancyPoint.Conflicts(existing, a.StartTime, 0, 0)
	}
}

func TestPostgresInsertTakesDayLock(t *testing.T) {
	mock, repo := newMockRepo(t)
	a := newAppointment()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(int32(1), int32(20260303)).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("FROM appointments").WithArgs(int64(1), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(appointmentCols).
			AddRow(int64(3), "AG020326090000", int64(1), int64(2), "Simple Haircut", "Ana", "11900000000",
				a.Date, "09:30", 30, "confirmed", now, now))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(a.Code, int64(1), int64(2), "Simple Haircut", "Maria Souza", "11987654321",
			pgxmock.AnyArg(), "10:00", 30, "confirmed").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(9), now, now))
	mock.ExpectCommit()

	if err := repo.Insert(context.Background(), a, pointConflict(a)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID != 9 {
		t.Fatalf("expected id 9, got %d", a.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresInsertRejectsTakenSlot(t *testing.T) {
	mock, repo := newMockRepo(t)
	a := newAppointment()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(int32(a.ProviderID), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("FROM appointments").WithArgs(a.ProviderID, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(appointmentCols).
			AddRow(int64(3), "AG020326090000", int64(1), int64(2), "Simple Haircut", "Ana", "11900000000",
				a.Date, "10:00", 30, "confirmed", now, now))
	mock.ExpectRollback()

	if err := repo.Insert(context.Background(), a, pointConflict(a)); err != ErrSlotTaken {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresInsertMapsUniqueViolation(t *testing.T) {
	mock, repo := newMockRepo(t)
	a := newAppointment()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(int32(a.ProviderID), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("FROM appointments").WithArgs(a.ProviderID, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(appointmentCols))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(a.Code, a.ProviderID, a.ProcedureID, a.ProcedureName, a.ClientName, a.ClientPhone,
			pgxmock.AnyArg(), "10:00", a.DurationMinutes, "confirmed").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: confirmedSlotIndex})
	mock.ExpectRollback()

	if err := repo.Insert(context.Background(), a, pointConflict(a)); err != ErrSlotTaken {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresGetNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectQuery("FROM appointments WHERE id").WithArgs(int64(42)).WillReturnError(pgx.ErrNoRows)

	if _, err := repo.Get(context.Background(), 42); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresUpdateStatus(t *testing.T) {
	mock, repo := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE appointments SET status").WithArgs(int64(5), "cancelled").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := repo.UpdateStatus(ctx, 5, nil, StatusCancelled); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectExec("UPDATE appointments SET status").WithArgs(int64(6), "cancelled").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("FROM appointments WHERE id").WithArgs(int64(6)).WillReturnError(pgx.ErrNoRows)
	if err := repo.UpdateStatus(ctx, 6, nil, StatusCancelled); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCountByProvider(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectQuery("GROUP BY provider_id").WillReturnRows(
		pgxmock.NewRows([]string{"provider_id", "confirmed", "cancelled", "completed"}).
			AddRow(int64(1), 3, 1, 2))

	counts, err := repo.CountByProvider(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c := counts[1]; c.Confirmed != 3 || c.Cancelled != 1 || c.Total() != 6 {
		t.Fatalf("unexpected counts %+v", c)
	}
}
