package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresRepository reads providers and procedures through database/sql.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	if db == nil {
		panic("catalog: sql db required")
	}
	return &PostgresRepository{db: db}
}

const providerColumns = `id, name, specialty, working_days, buffer_minutes, active`

const procedureColumns = `id, provider_id, code, name, description, price, duration_minutes, active`

type scanner interface {
	Scan(dest ...any) error
}

func scanProvider(s scanner) (Provider, error) {
	var p Provider
	err := s.Scan(&p.ID, &p.Name, &p.Specialty, pq.Array(&p.WorkingDays), &p.BufferMinutes, &p.Active)
	if p.WorkingDays == nil {
		p.WorkingDays = []string{}
	}
	return p, err
}

func scanProcedure(s scanner) (Procedure, error) {
	var p Procedure
	err := s.Scan(&p.ID, &p.ProviderID, &p.Code, &p.Name, &p.Description, &p.Price, &p.DurationMinutes, &p.Active)
	return p, err
}

func (r *PostgresRepository) ListActiveProviders(ctx context.Context) ([]Provider, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+providerColumns+` FROM providers WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list providers: %w", err)
	}
	defer rows.Close()

	out := []Provider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan provider: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetProvider(ctx context.Context, id int64) (*Provider, error) {
	p, err := scanProvider(r.db.QueryRowContext(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get provider: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) ListActiveProcedures(ctx context.Context, providerID int64) ([]Procedure, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+procedureColumns+` FROM procedures WHERE provider_id = $1 AND active ORDER BY id`, providerID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list procedures: %w", err)
	}
	defer rows.Close()

	out := []Procedure{}
	for rows.Next() {
		p, err := scanProcedure(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan procedure: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetProcedure(ctx context.Context, id int64) (*Procedure, error) {
	p, err := scanProcedure(r.db.QueryRowContext(ctx, `SELECT `+procedureColumns+` FROM procedures WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get procedure: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) CreateProvider(ctx context.Context, p *Provider) error {
	if err := validateProvider(p); err != nil {
		return err
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO providers (name, specialty, working_days, buffer_minutes, active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		p.Name, p.Specialty, pq.Array(p.WorkingDays), p.BufferMinutes, p.Active).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("catalog: create provider: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateProcedure(ctx context.Context, p *Procedure) error {
	if p.DurationMinutes <= 0 {
		return fmt.Errorf("catalog: procedure duration must be positive")
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO procedures (provider_id, code, name, description, price, duration_minutes, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		p.ProviderID, p.Code, p.Name, p.Description, p.Price, p.DurationMinutes, p.Active).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("catalog: create procedure: %w", err)
	}
	return nil
}

// DeactivateProvider flags the provider and all of its procedures inactive
// in one transaction.
func (r *PostgresRepository) DeactivateProvider(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin deactivate: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE providers SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("catalog: deactivate provider: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `UPDATE procedures SET active = FALSE WHERE provider_id = $1`, id); err != nil {
		return fmt.Errorf("catalog: deactivate procedures: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit deactivate: %w", err)
	}
	return nil
}
