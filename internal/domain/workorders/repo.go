package workorders

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkazakova/fabrika/internal/domain/materials"
	"github.com/mkazakova/fabrika/internal/domain/recipes"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

type CreateParams struct {
	ProductID int64
	Qty       int64
	StageIDs  []int64
}

// Create создаёт наряд: проверка и резерв всех материалов, номер наряда,
// сам наряд и его WIP-запись — всё в одной транзакции.
// Блокировка строк материалов берётся в порядке возрастания id.
func (r *Repo) Create(ctx context.Context, p CreateParams) (*WorkOrder, error) {
	if p.Qty <= 0 {
		return nil, ErrQtyNotPositive
	}
	if len(p.StageIDs) == 0 {
		return nil, ErrNoStages
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := resolveRecipeTx(ctx, tx, p.ProductID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecipeNotFound
	}

	// Все этапы из запроса должны существовать в справочнике
	known := map[int64]bool{}
	rows, err := tx.Query(ctx, `SELECT id FROM stages WHERE id = ANY($1)`, p.StageIDs)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		known[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range p.StageIDs {
		if !known[id] {
			return nil, fmt.Errorf("%w: %d", ErrUnknownStage, id)
		}
	}

	need := Requirements(rec, p.Qty)

	// Блокируем строки материалов, считаем достаточность, затем списываем
	matIDs := make([]int64, 0, len(need))
	for _, n := range need {
		matIDs = append(matIDs, n.MaterialID)
	}
	type lockedMat struct {
		name  string
		qty   float64
		price float64
	}
	locked := make(map[int64]lockedMat, len(matIDs))
	rows, err = tx.Query(ctx, `
		SELECT id, name, qty, price_per_unit
		FROM materials
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, matIDs)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id int64
		var lm lockedMat
		if err := rows.Scan(&id, &lm.name, &lm.qty, &lm.price); err != nil {
			rows.Close()
			return nil, err
		}
		locked[id] = lm
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range need {
		lm, ok := locked[need[i].MaterialID]
		if !ok {
			return nil, fmt.Errorf("материал %d из техкарты не найден", need[i].MaterialID)
		}
		if lm.qty < need[i].Qty {
			return nil, materials.ErrInsufficientStock{
				MaterialName: lm.name,
				Required:     need[i].Qty,
				Available:    lm.qty,
			}
		}
		need[i].MaterialName = lm.name
		need[i].UnitCost = lm.price
	}

	for _, n := range need {
		if _, err := tx.Exec(ctx, `
			UPDATE materials SET qty = qty - $2 WHERE id = $1
		`, n.MaterialID, n.Qty); err != nil {
			return nil, err
		}
	}

	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval('work_order_number_seq')`).Scan(&seq); err != nil {
		return nil, err
	}

	wo := WorkOrder{
		Number:          FormatNumber(seq),
		ProductID:       rec.ProductID,
		ProductName:     rec.ProductName,
		Qty:             p.Qty,
		Status:          StatusInProgress,
		StageIDs:        p.StageIDs,
		LaborPerUnit:    rec.LaborPerUnit,
		OverheadPerUnit: rec.OverheadPerUnit,
		Materials:       need,
	}
	first := p.StageIDs[0]
	wo.CurrentStageID = &first

	row := tx.QueryRow(ctx, `
		INSERT INTO work_orders
			(number, product_id, product_name, qty, status, stage_ids, current_stage_id,
			 labor_per_unit, overhead_per_unit)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at
	`, wo.Number, wo.ProductID, wo.ProductName, wo.Qty, wo.Status, wo.StageIDs, first,
		wo.LaborPerUnit, wo.OverheadPerUnit)
	if err := row.Scan(&wo.ID, &wo.CreatedAt); err != nil {
		return nil, err
	}

	for _, n := range need {
		if _, err := tx.Exec(ctx, `
			INSERT INTO work_order_materials (work_order_id, material_id, material_name, qty, unit_cost)
			VALUES ($1,$2,$3,$4,$5)
		`, wo.ID, n.MaterialID, n.MaterialName, n.Qty, n.UnitCost); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO wip_records (work_order_id, product_id, product_name, qty, current_stage_id)
		VALUES ($1,$2,$3,$4,$5)
	`, wo.ID, wo.ProductID, wo.ProductName, wo.Qty, first); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &wo, nil
}

// Advance переводит наряд на следующий этап; на последнем этапе завершает его:
// итоговая себестоимость, запись готовой продукции, удаление WIP — одной транзакцией.
func (r *Repo) Advance(ctx context.Context, id int64) (*WorkOrder, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	wo, err := lockOrderTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	switch wo.Status {
	case StatusCompleted:
		return nil, ErrAlreadyCompleted
	case StatusInProgress:
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotInProgress, wo.Status)
	}
	if wo.CurrentStageID == nil {
		return nil, ErrInconsistentState
	}

	next, done, err := NextStage(wo.StageIDs, *wo.CurrentStageID)
	if err != nil {
		return nil, err
	}

	items, err := orderMaterialsTx(ctx, tx, wo.ID)
	if err != nil {
		return nil, err
	}
	wo.Materials = items

	if !done {
		if _, err := tx.Exec(ctx, `
			UPDATE work_orders SET current_stage_id = $2 WHERE id = $1
		`, wo.ID, next); err != nil {
			return nil, err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE wip_records SET current_stage_id = $2 WHERE work_order_id = $1
		`, wo.ID, next)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() != 1 {
			return nil, ErrInconsistentState
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		wo.CurrentStageID = &next
		return wo, nil
	}

	// Последний этап: завершаем и приходуем готовую продукцию
	total := TotalCost(items, wo.LaborPerUnit, wo.OverheadPerUnit, wo.Qty)

	row := tx.QueryRow(ctx, `
		UPDATE work_orders
		SET status = $2, current_stage_id = NULL, total_cost = $3, completed_at = NOW()
		WHERE id = $1
		RETURNING completed_at
	`, wo.ID, StatusCompleted, total)
	if err := row.Scan(&wo.CompletedAt); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM wip_records WHERE work_order_id = $1`, wo.ID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() != 1 {
		return nil, ErrInconsistentState
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO finished_goods (product_id, product_name, qty, total_cost)
		VALUES ($1,$2,$3,$4)
	`, wo.ProductID, wo.ProductName, wo.Qty, total); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	wo.Status = StatusCompleted
	wo.CurrentStageID = nil
	wo.TotalCost = &total
	return wo, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*WorkOrder, error) {
	row := r.pool.QueryRow(ctx, orderSelect+` WHERE id = $1`, id)
	wo, err := scanOrder(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT material_id, material_name, qty, unit_cost
		FROM work_order_materials
		WHERE work_order_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var um UsedMaterial
		if err := rows.Scan(&um.MaterialID, &um.MaterialName, &um.Qty, &um.UnitCost); err != nil {
			return nil, err
		}
		wo.Materials = append(wo.Materials, um)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return wo, nil
}

func (r *Repo) List(ctx context.Context) ([]WorkOrder, error) {
	rows, err := r.pool.Query(ctx, orderSelect+` ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WorkOrder
	for rows.Next() {
		wo, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *wo)
	}
	return out, rows.Err()
}

const orderSelect = `
	SELECT id, number, product_id, product_name, qty, status, stage_ids, current_stage_id,
	       labor_per_unit, overhead_per_unit, total_cost, created_at, completed_at
	FROM work_orders`

func scanOrder(row pgx.Row) (*WorkOrder, error) {
	var wo WorkOrder
	if err := row.Scan(
		&wo.ID,
		&wo.Number,
		&wo.ProductID,
		&wo.ProductName,
		&wo.Qty,
		&wo.Status,
		&wo.StageIDs,
		&wo.CurrentStageID,
		&wo.LaborPerUnit,
		&wo.OverheadPerUnit,
		&wo.TotalCost,
		&wo.CreatedAt,
		&wo.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &wo, nil
}

func lockOrderTx(ctx context.Context, tx pgx.Tx, id int64) (*WorkOrder, error) {
	row := tx.QueryRow(ctx, orderSelect+` WHERE id = $1 FOR UPDATE`, id)
	wo, err := scanOrder(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return wo, nil
}

func orderMaterialsTx(ctx context.Context, tx pgx.Tx, orderID int64) ([]UsedMaterial, error) {
	rows, err := tx.Query(ctx, `
		SELECT material_id, material_name, qty, unit_cost
		FROM work_order_materials
		WHERE work_order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsedMaterial
	for rows.Next() {
		var um UsedMaterial
		if err := rows.Scan(&um.MaterialID, &um.MaterialName, &um.Qty, &um.UnitCost); err != nil {
			return nil, err
		}
		out = append(out, um)
	}
	return out, rows.Err()
}

func resolveRecipeTx(ctx context.Context, tx pgx.Tx, productID int64) (*recipes.Recipe, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, product_id, product_name, labor_per_unit, overhead_per_unit, created_at
		FROM recipes
		WHERE product_id = $1
	`, productID)

	var rec recipes.Recipe
	if err := row.Scan(&rec.ID, &rec.ProductID, &rec.ProductName, &rec.LaborPerUnit, &rec.OverheadPerUnit, &rec.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT material_id, qty_per_unit
		FROM recipe_items
		WHERE recipe_id = $1
		ORDER BY position
	`, rec.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it recipes.Item
		if err := rows.Scan(&it.MaterialID, &it.QtyPerUnit); err != nil {
			return nil, err
		}
		rec.Items = append(rec.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &rec, nil
}
