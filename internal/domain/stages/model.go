package stages

import "time"

// Stage Производственный этап (крой, пошив, отделка…).
// Порядок этапов задаётся при создании наряда, сам справочник порядка не хранит.
type Stage struct {
	ID          int64
	Name        string
	Description string
	CostPerUnit float64 // заполняется в справочнике, в расчёте себестоимости не участвует
	Active      bool
	CreatedAt   time.Time
}
