package stages

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Create(ctx context.Context, name, description string, costPerUnit float64) (*Stage, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO stages (name, description, cost_per_unit, active)
		VALUES ($1,$2,$3,TRUE)
		RETURNING id, name, description, cost_per_unit, active, created_at
	`, name, description, costPerUnit)
	var s Stage
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.CostPerUnit, &s.Active, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Stage, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, description, cost_per_unit, active, created_at
		FROM stages
		WHERE id = $1
	`, id)
	var s Stage
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.CostPerUnit, &s.Active, &s.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repo) List(ctx context.Context, onlyActive bool) ([]Stage, error) {
	q := `
		SELECT id, name, description, cost_per_unit, active, created_at
		FROM stages
	`
	if onlyActive {
		q += " WHERE active = TRUE"
	}
	q += " ORDER BY name"

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Stage
	for rows.Next() {
		var s Stage
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.CostPerUnit, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByIDs возвращает этапы в том порядке, в котором переданы id.
// Если какого-то этапа нет — его просто не будет в результате.
func (r *Repo) GetByIDs(ctx context.Context, ids []int64) ([]Stage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, cost_per_unit, active, created_at
		FROM stages
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[int64]Stage, len(ids))
	for rows.Next() {
		var s Stage
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.CostPerUnit, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Stage, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}
