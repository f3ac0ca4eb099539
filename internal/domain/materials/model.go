package materials

import (
	"fmt"
	"time"
)

type Unit string

const (
	UnitPcs Unit = "pcs"
	UnitM   Unit = "m"
	UnitG   Unit = "g"
)

type Material struct {
	ID           int64
	Name         string
	Unit         Unit
	Qty          float64 // текущий остаток на складе
	PricePerUnit float64 // ₽ за единицу
	ReorderLevel float64 // порог для уведомлений, на резерв не влияет
	Active       bool
	CreatedAt    time.Time
}

// Supply Приход материала (история поставок)
type Supply struct {
	ID         int64
	MaterialID int64
	Qty        float64
	UnitCost   float64
	TotalCost  float64
	Comment    string
	CreatedAt  time.Time
}

// ErrInsufficientStock возвращается, когда остатка не хватает на резерв.
type ErrInsufficientStock struct {
	MaterialName string
	Required     float64
	Available    float64
}

func (e ErrInsufficientStock) Error() string {
	return fmt.Sprintf("недостаточно материала «%s»: требуется %.3f, доступно %.3f",
		e.MaterialName, e.Required, e.Available)
}
