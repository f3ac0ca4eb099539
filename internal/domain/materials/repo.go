package materials

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Create(ctx context.Context, name string, unit Unit, price, reorderLevel float64) (*Material, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO materials (name, unit, qty, price_per_unit, reorder_level, active)
		VALUES ($1,$2,0,$3,$4,TRUE)
		RETURNING id, name, unit, qty, price_per_unit, reorder_level, active, created_at
	`, name, unit, price, reorderLevel)

	var m Material
	if err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Unit,
		&m.Qty,
		&m.PricePerUnit,
		&m.ReorderLevel,
		&m.Active,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Material, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, unit, qty, price_per_unit, reorder_level, active, created_at
		FROM materials
		WHERE id = $1
	`, id)
	var m Material
	if err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Unit,
		&m.Qty,
		&m.PricePerUnit,
		&m.ReorderLevel,
		&m.Active,
		&m.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// GetStock возвращает текущий остаток материала.
func (r *Repo) GetStock(ctx context.Context, id int64) (float64, error) {
	var qty float64
	err := r.pool.QueryRow(ctx, `SELECT qty FROM materials WHERE id=$1`, id).Scan(&qty)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return qty, err
}

func (r *Repo) List(ctx context.Context, onlyActive bool) ([]Material, error) {
	q := `
		SELECT id, name, unit, qty, price_per_unit, reorder_level, active, created_at
		FROM materials
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

	var out []Material
	for rows.Next() {
		var m Material
		if err := rows.Scan(
			&m.ID,
			&m.Name,
			&m.Unit,
			&m.Qty,
			&m.PricePerUnit,
			&m.ReorderLevel,
			&m.Active,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) UpdatePrice(ctx context.Context, id int64, price float64) (*Material, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE materials SET price_per_unit=$2
		WHERE id=$1
		RETURNING id, name, unit, qty, price_per_unit, reorder_level, active, created_at
	`, id, price)
	var m Material
	if err := row.Scan(&m.ID, &m.Name, &m.Unit, &m.Qty, &m.PricePerUnit, &m.ReorderLevel, &m.Active, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// Receive Приход: увеличивает остаток, обновляет закупочную цену и пишет строку поставки.
func (r *Repo) Receive(ctx context.Context, id int64, qty, unitCost float64, comment string) error {
	if qty <= 0 {
		return fmt.Errorf("qty must be > 0")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE materials SET qty = qty + $2, price_per_unit = $3 WHERE id = $1
	`, id, qty, unitCost)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("материал %d не найден", id)
	}

	total := unitCost * qty
	if _, err = tx.Exec(ctx, `
		INSERT INTO supplies (material_id, qty, unit_cost, total_cost, comment)
		VALUES ($1,$2,$3,$4,$5)
	`, id, qty, unitCost, total, comment); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Reserve списывает qty с остатка, только если остатка хватает.
// Для резервирования нескольких материалов одной операцией см. workorders.Repo.Create.
func (r *Repo) Reserve(ctx context.Context, id int64, qty float64) error {
	if qty <= 0 {
		return fmt.Errorf("qty must be > 0")
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE materials SET qty = qty - $2
		WHERE id = $1 AND qty >= $2
	`, id, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		m, gerr := r.GetByID(ctx, id)
		if gerr != nil {
			return gerr
		}
		if m == nil {
			return fmt.Errorf("материал %d не найден", id)
		}
		return ErrInsufficientStock{MaterialName: m.Name, Required: qty, Available: m.Qty}
	}
	return nil
}

// ListBelowReorder возвращает материалы с остатком не выше порога (для оповещений).
func (r *Repo) ListBelowReorder(ctx context.Context, ids []int64) ([]Material, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, unit, qty, price_per_unit, reorder_level, active, created_at
		FROM materials
		WHERE id = ANY($1) AND reorder_level > 0 AND qty <= reorder_level
		ORDER BY name
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Material
	for rows.Next() {
		var m Material
		if err := rows.Scan(
			&m.ID, &m.Name, &m.Unit, &m.Qty,
			&m.PricePerUnit, &m.ReorderLevel, &m.Active, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
