package finished

import "time"

// Entry Готовая продукция: результат завершённого наряда, запись неизменяемая.
type Entry struct {
	ID          int64
	ProductID   int64
	ProductName string
	Qty         int64
	TotalCost   float64
	CreatedAt   time.Time
}
