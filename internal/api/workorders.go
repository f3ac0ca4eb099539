package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/mkazakova/fabrika/internal/domain/workorders"
	"github.com/mkazakova/fabrika/internal/infra/metrics"
)

type createWorkOrderRequest struct {
	ProductID int64   `json:"product_id"`
	Qty       int64   `json:"qty"`
	StageIDs  []int64 `json:"stage_ids"`
}

type stageRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type usedMaterialResponse struct {
	MaterialID   int64   `json:"material_id"`
	MaterialName string  `json:"material_name"`
	Qty          float64 `json:"qty"`
	UnitCost     float64 `json:"unit_cost"`
}

type workOrderResponse struct {
	ID               int64                  `json:"id"`
	Number           string                 `json:"number"`
	ProductID        int64                  `json:"product_id"`
	ProductName      string                 `json:"product_name"`
	Qty              int64                  `json:"qty"`
	Status           string                 `json:"status"`
	Stages           []stageRef             `json:"stages"`
	CurrentStage     *stageRef              `json:"current_stage"`
	RawMaterialsUsed []usedMaterialResponse `json:"raw_materials_used"`
	TotalCost        *float64               `json:"total_cost,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
}

func (h *Handler) createWorkOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createWorkOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "некорректное тело запроса")
		return
	}
	if req.Qty <= 0 {
		writeErr(w, http.StatusBadRequest, workorders.ErrQtyNotPositive.Error())
		return
	}
	if len(req.StageIDs) == 0 {
		writeErr(w, http.StatusBadRequest, workorders.ErrNoStages.Error())
		return
	}

	wo, err := h.orders.Create(ctx, workorders.CreateParams{
		ProductID: req.ProductID,
		Qty:       req.Qty,
		StageIDs:  req.StageIDs,
	})
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}
	metrics.OrdersCreated.Inc()

	h.notifyLowStock(ctx, wo)

	resp, err := h.toResponse(ctx, wo)
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) listWorkOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orders, err := h.orders.List(ctx)
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}

	// имена этапов одним запросом на весь список
	seen := map[int64]bool{}
	var ids []int64
	for _, wo := range orders {
		for _, id := range wo.StageIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	names, err := h.stageNames(ctx, ids)
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}

	out := make([]workOrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, buildResponse(&orders[i], names))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getWorkOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeErr(w, http.StatusBadRequest, "некорректный id")
		return
	}

	wo, err := h.orders.GetByID(ctx, id)
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}
	if wo == nil {
		writeErr(w, http.StatusNotFound, workorders.ErrOrderNotFound.Error())
		return
	}

	resp, err := h.toResponse(ctx, wo)
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) advanceStage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeErr(w, http.StatusBadRequest, "некорректный id")
		return
	}

	wo, err := h.orders.Advance(ctx, id)
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}
	if wo.Status == workorders.StatusCompleted {
		metrics.OrdersCompleted.Inc()
	}

	resp, err := h.toResponse(ctx, wo)
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) notifyLowStock(ctx context.Context, wo *workorders.WorkOrder) {
	if h.notifier == nil {
		return
	}
	ids := make([]int64, 0, len(wo.Materials))
	for _, m := range wo.Materials {
		ids = append(ids, m.MaterialID)
	}
	low, err := h.mats.ListBelowReorder(ctx, ids)
	if err != nil {
		h.log.Error("low stock check failed", "order", wo.Number, "err", err)
		return
	}
	h.notifier.LowStock(low)
}

func (h *Handler) stageNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := map[int64]string{}
	if len(ids) == 0 {
		return names, nil
	}
	ss, err := h.stages.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, s := range ss {
		names[s.ID] = s.Name
	}
	return names, nil
}

func (h *Handler) toResponse(ctx context.Context, wo *workorders.WorkOrder) (workOrderResponse, error) {
	names, err := h.stageNames(ctx, wo.StageIDs)
	if err != nil {
		return workOrderResponse{}, err
	}
	return buildResponse(wo, names), nil
}

func buildResponse(wo *workorders.WorkOrder, stageNames map[int64]string) workOrderResponse {
	resp := workOrderResponse{
		ID:          wo.ID,
		Number:      wo.Number,
		ProductID:   wo.ProductID,
		ProductName: wo.ProductName,
		Qty:         wo.Qty,
		Status:      string(wo.Status),
		CreatedAt:   wo.CreatedAt,
		CompletedAt: wo.CompletedAt,
		TotalCost:   wo.TotalCost,
	}
	resp.Stages = make([]stageRef, 0, len(wo.StageIDs))
	for _, id := range wo.StageIDs {
		resp.Stages = append(resp.Stages, stageRef{ID: id, Name: stageNames[id]})
	}
	if wo.CurrentStageID != nil {
		resp.CurrentStage = &stageRef{ID: *wo.CurrentStageID, Name: stageNames[*wo.CurrentStageID]}
	}
	resp.RawMaterialsUsed = make([]usedMaterialResponse, 0, len(wo.Materials))
	for _, m := range wo.Materials {
		resp.RawMaterialsUsed = append(resp.RawMaterialsUsed, usedMaterialResponse{
			MaterialID:   m.MaterialID,
			MaterialName: m.MaterialName,
			Qty:          m.Qty,
			UnitCost:     m.UnitCost,
		})
	}
	return resp
}
