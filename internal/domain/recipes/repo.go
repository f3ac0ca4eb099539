package recipes

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Create(ctx context.Context, productID int64, productName string, labor, overhead float64, items []Item) (*Recipe, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("техкарта без материалов")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var rec Recipe
	row := tx.QueryRow(ctx, `
		INSERT INTO recipes (product_id, product_name, labor_per_unit, overhead_per_unit)
		VALUES ($1,$2,$3,$4)
		RETURNING id, product_id, product_name, labor_per_unit, overhead_per_unit, created_at
	`, productID, productName, labor, overhead)
	if err := row.Scan(&rec.ID, &rec.ProductID, &rec.ProductName, &rec.LaborPerUnit, &rec.OverheadPerUnit, &rec.CreatedAt); err != nil {
		return nil, err
	}

	for i, it := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO recipe_items (recipe_id, material_id, qty_per_unit, position)
			VALUES ($1,$2,$3,$4)
		`, rec.ID, it.MaterialID, it.QtyPerUnit, i); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	rec.Items = items
	return &rec, nil
}

// Resolve Ищет техкарту по изделию; (nil, nil) если техкарты нет.
func (r *Repo) Resolve(ctx context.Context, productID int64) (*Recipe, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, product_id, product_name, labor_per_unit, overhead_per_unit, created_at
		FROM recipes
		WHERE product_id = $1
	`, productID)

	var rec Recipe
	if err := row.Scan(&rec.ID, &rec.ProductID, &rec.ProductName, &rec.LaborPerUnit, &rec.OverheadPerUnit, &rec.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT ri.material_id, COALESCE(m.name,''), ri.qty_per_unit
		FROM recipe_items ri
		LEFT JOIN materials m ON m.id = ri.material_id
		WHERE ri.recipe_id = $1
		ORDER BY ri.position
	`, rec.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.MaterialID, &it.MaterialName, &it.QtyPerUnit); err != nil {
			return nil, err
		}
		rec.Items = append(rec.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) List(ctx context.Context) ([]Recipe, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, product_name, labor_per_unit, overhead_per_unit, created_at
		FROM recipes
		ORDER BY product_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Recipe
	for rows.Next() {
		var rec Recipe
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.ProductName, &rec.LaborPerUnit, &rec.OverheadPerUnit, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
