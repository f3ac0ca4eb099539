package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"
)

// exportWIP выгружает незавершённое производство в Excel.
func (h *Handler) exportWIP(w http.ResponseWriter, r *http.Request) {
	list, err := h.wip.List(r.Context())
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"work_order_id",
		"order_number",
		"product_id",
		"product_name",
		"qty",
		"stage_id",
		"stage_name",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		writeErr(w, http.StatusInternalServerError, "ошибка формирования файла (заголовок)")
		return
	}

	row := 2
	for _, rec := range list {
		excelRow := []interface{}{
			rec.WorkOrderID,
			rec.OrderNumber,
			rec.ProductID,
			rec.ProductName,
			rec.Qty,
			rec.CurrentStageID,
			rec.StageName,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "ошибка формирования файла (ячейки)")
			return
		}
		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			writeErr(w, http.StatusInternalServerError, "ошибка формирования файла (строки)")
			return
		}
		row++
	}

	h.sendXLSX(w, f, fmt.Sprintf("wip_%s.xlsx", time.Now().Format("20060102_150405")))
}

// exportFinished выгружает готовую продукцию с себестоимостью в Excel.
func (h *Handler) exportFinished(w http.ResponseWriter, r *http.Request) {
	list, err := h.finished.List(r.Context())
	if err != nil {
		h.writeDomainErr(w, err)
		return
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"id",
		"product_id",
		"product_name",
		"qty",
		"total_cost",
		"created_at",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		writeErr(w, http.StatusInternalServerError, "ошибка формирования файла (заголовок)")
		return
	}

	row := 2
	for _, e := range list {
		excelRow := []interface{}{
			e.ID,
			e.ProductID,
			e.ProductName,
			e.Qty,
			e.TotalCost,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "ошибка формирования файла (ячейки)")
			return
		}
		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			writeErr(w, http.StatusInternalServerError, "ошибка формирования файла (строки)")
			return
		}
		row++
	}

	h.sendXLSX(w, f, fmt.Sprintf("finished_goods_%s.xlsx", time.Now().Format("20060102_150405")))
}

func (h *Handler) sendXLSX(w http.ResponseWriter, f *excelize.File, name string) {
	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		writeErr(w, http.StatusInternalServerError, "ошибка записи файла")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = w.Write(buf.Bytes())
}
