package workorders

import (
	"errors"
	"fmt"
	"time"

	"github.com/mkazakova/fabrika/internal/domain/recipes"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// WorkOrder Производственный наряд: резерв материалов + движение по этапам.
type WorkOrder struct {
	ID              int64
	Number          string // порядковый номер вида 00042
	ProductID       int64
	ProductName     string
	Qty             int64
	Status          Status
	StageIDs        []int64 // порядок этапов, как задал создатель наряда
	CurrentStageID  *int64  // NULL после завершения
	LaborPerUnit    float64 // зафиксировано из техкарты при создании
	OverheadPerUnit float64
	TotalCost       *float64 // заполняется при завершении
	Materials       []UsedMaterial
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

// UsedMaterial Снимок резерва: количество и цена на момент создания наряда.
type UsedMaterial struct {
	MaterialID   int64
	MaterialName string
	Qty          float64
	UnitCost     float64
}

var (
	ErrRecipeNotFound    = errors.New("техкарта для изделия не найдена")
	ErrOrderNotFound     = errors.New("наряд не найден")
	ErrAlreadyCompleted  = errors.New("наряд уже завершён")
	ErrNotInProgress     = errors.New("наряд не в работе")
	ErrInconsistentState = errors.New("текущий этап не входит в список этапов наряда")
	ErrQtyNotPositive    = errors.New("количество должно быть положительным")
	ErrNoStages          = errors.New("список этапов пуст")
	ErrUnknownStage      = errors.New("этап не найден в справочнике")
)

// Requirements считает потребность в материалах по техкарте на qty единиц.
func Requirements(rec *recipes.Recipe, qty int64) []UsedMaterial {
	out := make([]UsedMaterial, 0, len(rec.Items))
	for _, it := range rec.Items {
		out = append(out, UsedMaterial{
			MaterialID:   it.MaterialID,
			MaterialName: it.MaterialName,
			Qty:          it.QtyPerUnit * float64(qty),
		})
	}
	return out
}

// NextStage возвращает следующий этап после currentID.
// done=true — currentID был последним, наряд пора завершать.
func NextStage(stageIDs []int64, currentID int64) (next int64, done bool, err error) {
	for i, id := range stageIDs {
		if id != currentID {
			continue
		}
		if i+1 < len(stageIDs) {
			return stageIDs[i+1], false, nil
		}
		return 0, true, nil
	}
	return 0, false, ErrInconsistentState
}

// TotalCost Итоговая себестоимость: материалы по ценам резерва + труд + накладные.
func TotalCost(items []UsedMaterial, laborPerUnit, overheadPerUnit float64, qty int64) float64 {
	var total float64
	for _, it := range items {
		total += it.Qty * it.UnitCost
	}
	total += laborPerUnit * float64(qty)
	total += overheadPerUnit * float64(qty)
	return total
}

// FormatNumber номер наряда с ведущими нулями (00001, 00002, …).
func FormatNumber(n int64) string {
	return fmt.Sprintf("%05d", n)
}
