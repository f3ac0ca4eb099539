package wip

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// List Все открытые наряды с текущим этапом (для отчёта по незавершёнке).
func (r *Repo) List(ctx context.Context) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT w.id, w.work_order_id, COALESCE(o.number,''), w.product_id, w.product_name,
		       w.qty, w.current_stage_id, COALESCE(s.name,'')
		FROM wip_records w
		LEFT JOIN work_orders o ON o.id = w.work_order_id
		LEFT JOIN stages s ON s.id = w.current_stage_id
		ORDER BY w.work_order_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID,
			&rec.WorkOrderID,
			&rec.OrderNumber,
			&rec.ProductID,
			&rec.ProductName,
			&rec.Qty,
			&rec.CurrentStageID,
			&rec.StageName,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetByOrder возвращает WIP-запись наряда ((nil, nil) если её нет).
func (r *Repo) GetByOrder(ctx context.Context, workOrderID int64) (*Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, work_order_id, product_id, product_name, qty, current_stage_id
		FROM wip_records
		WHERE work_order_id = $1
	`, workOrderID)
	var rec Record
	if err := row.Scan(&rec.ID, &rec.WorkOrderID, &rec.ProductID, &rec.ProductName, &rec.Qty, &rec.CurrentStageID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
