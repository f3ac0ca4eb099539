package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fabrika_work_orders_created_total",
		Help: "Созданные производственные наряды.",
	})

	OrdersCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fabrika_work_orders_completed_total",
		Help: "Завершённые производственные наряды.",
	})

	ReservationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fabrika_reservation_failures_total",
		Help: "Отказы резервирования из-за нехватки материалов.",
	})
)
