package recipes

import "time"

// Recipe Техкарта изделия: материалы на единицу + трудозатраты и накладные.
type Recipe struct {
	ID              int64
	ProductID       int64
	ProductName     string
	LaborPerUnit    float64
	OverheadPerUnit float64
	CreatedAt       time.Time
	Items           []Item
}

type Item struct {
	MaterialID   int64
	MaterialName string // для отображения
	QtyPerUnit   float64
}
