package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mkazakova/fabrika/internal/domain/materials"
)

type materialResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	Qty          float64   `json:"qty"`
	PricePerUnit float64   `json:"price_per_unit"`
	ReorderLevel float64   `json:"reorder_level"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

func toMaterialResponse(m materials.Material) materialResponse {
	return materialResponse{
		ID:           m.ID,
		Name:         m.Name,
		Unit:         string(m.Unit),
		Qty:          m.Qty,
		PricePerUnit: m.PricePerUnit,
		ReorderLevel: m.ReorderLevel,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
	}
}

func (h *Handler) listMaterials(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("all") == ""
	list, err := h.mats.List(r.Context(), onlyActive)
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}
	out := make([]materialResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMaterialResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

type createMaterialRequest struct {
	Name         string  `json:"name"`
	Unit         string  `json:"unit"`
	PricePerUnit float64 `json:"price_per_unit"`
	ReorderLevel float64 `json:"reorder_level"`
}

func (h *Handler) createMaterial(w http.ResponseWriter, r *http.Request) {
	var req createMaterialRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "некорректное тело запроса")
		return
	}
	if req.Name == "" {
		writeErr(w, http.StatusBadRequest, "не указано название материала")
		return
	}
	if req.PricePerUnit < 0 || req.ReorderLevel < 0 {
		writeErr(w, http.StatusBadRequest, "цена и порог не могут быть отрицательными")
		return
	}
	unit := materials.Unit(req.Unit)
	switch unit {
	case materials.UnitPcs, materials.UnitM, materials.UnitG:
	default:
		writeErr(w, http.StatusBadRequest, "неизвестная единица измерения")
		return
	}

	m, err := h.mats.Create(r.Context(), req.Name, unit, req.PricePerUnit, req.ReorderLevel)
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMaterialResponse(*m))
}

type receiveMaterialRequest struct {
	Qty      float64 `json:"qty"`
	UnitCost float64 `json:"unit_cost"`
	Comment  string  `json:"comment"`
}

// receiveMaterial Приход материала на склад (поставка).
func (h *Handler) receiveMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeErr(w, http.StatusBadRequest, "некорректный id")
		return
	}

	var req receiveMaterialRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "некорректное тело запроса")
		return
	}
	if req.Qty <= 0 || req.UnitCost < 0 {
		writeErr(w, http.StatusBadRequest, "количество должно быть положительным, цена — неотрицательной")
		return
	}

	if err := h.mats.Receive(r.Context(), id, req.Qty, req.UnitCost, req.Comment); err != nil {
		h.writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
