package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mkazakova/fabrika/internal/domain/finished"
	"github.com/mkazakova/fabrika/internal/domain/materials"
	"github.com/mkazakova/fabrika/internal/domain/recipes"
	"github.com/mkazakova/fabrika/internal/domain/stages"
	"github.com/mkazakova/fabrika/internal/domain/wip"
	"github.com/mkazakova/fabrika/internal/domain/workorders"
	"github.com/mkazakova/fabrika/internal/infra/metrics"
)

type WorkOrderStore interface {
	Create(ctx context.Context, p workorders.CreateParams) (*workorders.WorkOrder, error)
	GetByID(ctx context.Context, id int64) (*workorders.WorkOrder, error)
	List(ctx context.Context) ([]workorders.WorkOrder, error)
	Advance(ctx context.Context, id int64) (*workorders.WorkOrder, error)
}

type MaterialStore interface {
	Create(ctx context.Context, name string, unit materials.Unit, price, reorderLevel float64) (*materials.Material, error)
	List(ctx context.Context, onlyActive bool) ([]materials.Material, error)
	Receive(ctx context.Context, id int64, qty, unitCost float64, comment string) error
	ListBelowReorder(ctx context.Context, ids []int64) ([]materials.Material, error)
}

type RecipeStore interface {
	Create(ctx context.Context, productID int64, productName string, labor, overhead float64, items []recipes.Item) (*recipes.Recipe, error)
	List(ctx context.Context) ([]recipes.Recipe, error)
}

type StageStore interface {
	Create(ctx context.Context, name, description string, costPerUnit float64) (*stages.Stage, error)
	List(ctx context.Context, onlyActive bool) ([]stages.Stage, error)
	GetByIDs(ctx context.Context, ids []int64) ([]stages.Stage, error)
}

type WIPStore interface {
	List(ctx context.Context) ([]wip.Record, error)
}

type FinishedStore interface {
	List(ctx context.Context) ([]finished.Entry, error)
}

type LowStockNotifier interface {
	LowStock(mats []materials.Material)
}

type Deps struct {
	Orders   WorkOrderStore
	Mats     MaterialStore
	Recipes  RecipeStore
	Stages   StageStore
	WIP      WIPStore
	Finished FinishedStore
	Notifier LowStockNotifier
	APIKey   string
}

type Handler struct {
	log      *slog.Logger
	orders   WorkOrderStore
	mats     MaterialStore
	recipes  RecipeStore
	stages   StageStore
	wip      WIPStore
	finished FinishedStore
	notifier LowStockNotifier
	apiKey   string
}

func New(log *slog.Logger, d Deps) *Handler {
	return &Handler{
		log:      log,
		orders:   d.Orders,
		mats:     d.Mats,
		recipes:  d.Recipes,
		stages:   d.Stages,
		wip:      d.WIP,
		finished: d.Finished,
		notifier: d.Notifier,
		apiKey:   d.APIKey,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/work-orders", h.createWorkOrder)
	mux.HandleFunc("GET /api/work-orders", h.listWorkOrders)
	mux.HandleFunc("GET /api/work-orders/{id}", h.getWorkOrder)
	mux.HandleFunc("POST /api/work-orders/{id}/advance", h.advanceStage)

	mux.HandleFunc("GET /api/wip", h.listWIP)
	mux.HandleFunc("GET /api/finished-goods", h.listFinished)

	mux.HandleFunc("GET /api/materials", h.listMaterials)
	mux.HandleFunc("POST /api/materials", h.createMaterial)
	mux.HandleFunc("POST /api/materials/{id}/receive", h.receiveMaterial)

	mux.HandleFunc("GET /api/recipes", h.listRecipes)
	mux.HandleFunc("POST /api/recipes", h.createRecipe)

	mux.HandleFunc("GET /api/stages", h.listStages)
	mux.HandleFunc("POST /api/stages", h.createStage)

	mux.HandleFunc("GET /api/reports/wip.xlsx", h.exportWIP)
	mux.HandleFunc("GET /api/reports/finished-goods.xlsx", h.exportFinished)

	return h.auth(mux)
}

// auth Проверка ключа доступа; роли и пользователи живут во внешнем контуре.
// Пустой ключ в конфиге — доступ без проверки (дев-режим).
func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.apiKey != "" && r.Header.Get("X-API-Key") != h.apiKey {
			writeErr(w, http.StatusUnauthorized, "недействительный ключ доступа")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainErr транслирует доменные ошибки движка в HTTP-статусы.
func (h *Handler) writeDomainErr(w http.ResponseWriter, err error) {
	var insuf materials.ErrInsufficientStock
	switch {
	case errors.As(err, &insuf):
		metrics.ReservationFailures.Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":    insuf.Error(),
			"material": insuf.MaterialName,
		})
	case errors.Is(err, workorders.ErrRecipeNotFound),
		errors.Is(err, workorders.ErrQtyNotPositive),
		errors.Is(err, workorders.ErrNoStages),
		errors.Is(err, workorders.ErrUnknownStage):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, workorders.ErrOrderNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, workorders.ErrAlreadyCompleted),
		errors.Is(err, workorders.ErrNotInProgress),
		errors.Is(err, workorders.ErrInconsistentState):
		writeErr(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("internal error", "err", err)
		writeErr(w, http.StatusInternalServerError, "внутренняя ошибка")
	}
}
