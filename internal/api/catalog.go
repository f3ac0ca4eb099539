package api

import (
	"net/http"
	"time"

	"github.com/mkazakova/fabrika/internal/domain/recipes"
)

/* Техкарты */

type recipeItemDTO struct {
	MaterialID int64   `json:"material_id"`
	QtyPerUnit float64 `json:"qty_per_unit"`
}

type createRecipeRequest struct {
	ProductID       int64           `json:"product_id"`
	ProductName     string          `json:"product_name"`
	LaborPerUnit    float64         `json:"labor_per_unit"`
	OverheadPerUnit float64         `json:"overhead_per_unit"`
	Items           []recipeItemDTO `json:"items"`
}

type recipeResponse struct {
	ID              int64           `json:"id"`
	ProductID       int64           `json:"product_id"`
	ProductName     string          `json:"product_name"`
	LaborPerUnit    float64         `json:"labor_per_unit"`
	OverheadPerUnit float64         `json:"overhead_per_unit"`
	Items           []recipeItemDTO `json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func toRecipeResponse(rec recipes.Recipe) recipeResponse {
	resp := recipeResponse{
		ID:              rec.ID,
		ProductID:       rec.ProductID,
		ProductName:     rec.ProductName,
		LaborPerUnit:    rec.LaborPerUnit,
		OverheadPerUnit: rec.OverheadPerUnit,
		CreatedAt:       rec.CreatedAt,
	}
	for _, it := range rec.Items {
		resp.Items = append(resp.Items, recipeItemDTO{MaterialID: it.MaterialID, QtyPerUnit: it.QtyPerUnit})
	}
	return resp
}

func (h *Handler) listRecipes(w http.ResponseWriter, r *http.Request) {
	list, err := h.recipes.List(r.Context())
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}
	out := make([]recipeResponse, 0, len(list))
	for _, rec := range list {
		out = append(out, toRecipeResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createRecipe(w http.ResponseWriter, r *http.Request) {
	var req createRecipeRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "некорректное тело запроса")
		return
	}
	if req.ProductID <= 0 || req.ProductName == "" {
		writeErr(w, http.StatusBadRequest, "не указано изделие")
		return
	}
	if len(req.Items) == 0 {
		writeErr(w, http.StatusBadRequest, "техкарта без материалов")
		return
	}
	items := make([]recipes.Item, 0, len(req.Items))
	for _, it := range req.Items {
		if it.MaterialID <= 0 || it.QtyPerUnit <= 0 {
			writeErr(w, http.StatusBadRequest, "некорректная строка техкарты")
			return
		}
		items = append(items, recipes.Item{MaterialID: it.MaterialID, QtyPerUnit: it.QtyPerUnit})
	}

	rec, err := h.recipes.Create(r.Context(), req.ProductID, req.ProductName,
		req.LaborPerUnit, req.OverheadPerUnit, items)
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecipeResponse(*rec))
}

/* Этапы */

type createStageRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CostPerUnit float64 `json:"cost_per_unit"`
}

type stageResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CostPerUnit float64 `json:"cost_per_unit"`
	Active      bool    `json:"active"`
}

func (h *Handler) listStages(w http.ResponseWriter, r *http.Request) {
	list, err := h.stages.List(r.Context(), true)
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}
	out := make([]stageResponse, 0, len(list))
	for _, s := range list {
		out = append(out, stageResponse{
			ID: s.ID, Name: s.Name, Description: s.Description,
			CostPerUnit: s.CostPerUnit, Active: s.Active,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createStage(w http.ResponseWriter, r *http.Request) {
	var req createStageRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "некорректное тело запроса")
		return
	}
	if req.Name == "" {
		writeErr(w, http.StatusBadRequest, "не указано название этапа")
		return
	}

	s, err := h.stages.Create(r.Context(), req.Name, req.Description, req.CostPerUnit)
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stageResponse{
		ID: s.ID, Name: s.Name, Description: s.Description,
		CostPerUnit: s.CostPerUnit, Active: s.Active,
	})
}

/* Незавершёнка и готовая продукция */

type wipResponse struct {
	WorkOrderID    int64  `json:"work_order_id"`
	OrderNumber    string `json:"order_number"`
	ProductID      int64  `json:"product_id"`
	ProductName    string `json:"product_name"`
	Qty            int64  `json:"qty"`
	CurrentStageID int64  `json:"current_stage_id"`
	StageName      string `json:"stage_name"`
}

func (h *Handler) listWIP(w http.ResponseWriter, r *http.Request) {
	list, err := h.wip.List(r.Context())
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}
	out := make([]wipResponse, 0, len(list))
	for _, rec := range list {
		out = append(out, wipResponse{
			WorkOrderID:    rec.WorkOrderID,
			OrderNumber:    rec.OrderNumber,
			ProductID:      rec.ProductID,
			ProductName:    rec.ProductName,
			Qty:            rec.Qty,
			CurrentStageID: rec.CurrentStageID,
			StageName:      rec.StageName,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type finishedResponse struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	Qty         int64     `json:"qty"`
	TotalCost   float64   `json:"total_cost"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handler) listFinished(w http.ResponseWriter, r *http.Request) {
	list, err := h.finished.List(r.Context())
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}
	out := make([]finishedResponse, 0, len(list))
	for _, e := range list {
		out = append(out, finishedResponse{
			ID:          e.ID,
			ProductID:   e.ProductID,
			ProductName: e.ProductName,
			Qty:         e.Qty,
			TotalCost:   e.TotalCost,
			CreatedAt:   e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
