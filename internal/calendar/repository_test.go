package calendar

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresRepositoryBusinessHours(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)

	mock.ExpectQuery("FROM business_hours").WillReturnRows(
		pgxmock.NewRows([]string{"weekday", "open", "close"}).
			AddRow("monday", "09:00", "18:00").
			AddRow("saturday", "09:00", "12:00").
			AddRow("sunday", "", ""),
	)

	hours, err := repo.BusinessHours(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hours.Monday == nil || hours.Monday.Close.String() != "18:00" {
		t.Fatalf("unexpected monday hours: %+v", hours.Monday)
	}
	if hours.Saturday == nil || hours.Saturday.Close.String() != "12:00" {
		t.Fatalf("unexpected saturday hours: %+v", hours.Saturday)
	}
	if hours.Sunday != nil {
		t.Fatalf("expected sunday closed")
	}
	if hours.Tuesday != nil {
		t.Fatalf("expected missing row to be closed")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepositoryHolidays(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	ctx := context.Background()
	xmas := time.Date(2026, time.December, 25, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT EXISTS").WithArgs(pgxmock.AnyArg(), 12, 25).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := repo.HolidayOn(ctx, xmas)
	if err != nil || !ok {
		t.Fatalf("expected holiday, got ok=%v err=%v", ok, err)
	}

	mock.ExpectExec("INSERT INTO holidays").WithArgs(pgxmock.AnyArg(), "Christmas", true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := repo.AddHoliday(ctx, Holiday{Date: xmas, Description: "Christmas", Recurring: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectQuery("SELECT holiday_date, description, recurring FROM holidays").
		WillReturnRows(pgxmock.NewRows([]string{"holiday_date", "description", "recurring"}).AddRow(xmas, "Christmas", true))
	list, err := repo.ListHolidays(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || !list[0].Recurring || list[0].Description != "Christmas" {
		t.Fatalf("unexpected holidays: %+v", list)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepositorySetHours(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	h := DayHours{Open: 10 * 60, Close: 16 * 60}

	mock.ExpectExec("INSERT INTO business_hours").WithArgs("friday", "10:00", "16:00").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := repo.SetHours(context.Background(), time.Friday, &h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
