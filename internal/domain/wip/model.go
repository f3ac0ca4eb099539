package wip

// Record Зеркало незавершённого производства: один наряд — одна запись,
// живёт ровно пока наряд в работе.
type Record struct {
	ID             int64
	WorkOrderID    int64
	OrderNumber    string
	ProductID      int64
	ProductName    string
	Qty            int64
	CurrentStageID int64
	StageName      string
}
