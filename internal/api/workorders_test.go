package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkazakova/fabrika/internal/domain/materials"
	"github.com/mkazakova/fabrika/internal/domain/recipes"
)

func doRequest(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeOrder(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAuth_RejectsWrongKey(t *testing.T) {
	db := newFakeDB()
	h := newTestHandler(db, "secret").Routes()

	rec := doRequest(t, h, http.MethodGet, "/api/work-orders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/work-orders", nil, map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateWorkOrder_Validation(t *testing.T) {
	db := newFakeDB()
	h := newTestHandler(db, "").Routes()
	st := db.addStage("Крой")

	// количество должно быть положительным
	rec := doRequest(t, h, http.MethodPost, "/api/work-orders",
		map[string]any{"product_id": 1, "qty": 0, "stage_ids": []int64{st.ID}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// список этапов обязателен
	rec = doRequest(t, h, http.MethodPost, "/api/work-orders",
		map[string]any{"product_id": 1, "qty": 5, "stage_ids": []int64{}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// нет техкарты — отказ до каких-либо списаний
	rec = doRequest(t, h, http.MethodPost, "/api/work-orders",
		map[string]any{"product_id": 99, "qty": 5, "stage_ids": []int64{st.ID}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateWorkOrder_InsufficientStockIsAtomic(t *testing.T) {
	db := newFakeDB()
	h := newTestHandler(db, "").Routes()

	m1 := db.addMaterial("Ткань", materials.UnitM, 100, 15, 0)
	m2 := db.addMaterial("Фурнитура", materials.UnitPcs, 3, 8, 0)
	st := db.addStage("Крой")
	db.addRecipe(1, "Платье", 3, 1, []recipes.Item{
		{MaterialID: m1.ID, QtyPerUnit: 2},
		{MaterialID: m2.ID, QtyPerUnit: 1},
	})

	// фурнитуры хватает только на 3 единицы, просим 10
	rec := doRequest(t, h, http.MethodPost, "/api/work-orders",
		map[string]any{"product_id": 1, "qty": 10, "stage_ids": []int64{st.ID}}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Фурнитура", resp["material"])

	// ни один материал не списан
	assert.Equal(t, 100.0, db.stock(m1.ID))
	assert.Equal(t, 3.0, db.stock(m2.ID))
}

func TestWorkOrder_EndToEnd(t *testing.T) {
	db := newFakeDB()
	h := newTestHandler(db, "").Routes()

	matA := db.addMaterial("Ткань", materials.UnitM, 100, 15, 0)
	matB := db.addMaterial("Фурнитура", materials.UnitPcs, 50, 8, 0)
	cut := db.addStage("Крой")
	sew := db.addStage("Пошив")
	db.addRecipe(1, "Платье", 3, 1, []recipes.Item{
		{MaterialID: matA.ID, QtyPerUnit: 2},
		{MaterialID: matB.ID, QtyPerUnit: 1},
	})

	// создание: резерв 20 ткани и 10 фурнитуры
	rec := doRequest(t, h, http.MethodPost, "/api/work-orders",
		map[string]any{"product_id": 1, "qty": 10, "stage_ids": []int64{cut.ID, sew.ID}}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	order := decodeOrder(t, rec)
	assert.Equal(t, "00001", order["number"])
	assert.Equal(t, "in_progress", order["status"])
	require.NotNil(t, order["current_stage"])
	assert.Equal(t, "Крой", order["current_stage"].(map[string]any)["name"])
	assert.Equal(t, 80.0, db.stock(matA.ID))
	assert.Equal(t, 40.0, db.stock(matB.ID))

	used := order["raw_materials_used"].([]any)
	require.Len(t, used, 2)

	orderID := int64(order["id"].(float64))
	mirror := db.wipByOrder(orderID)
	require.NotNil(t, mirror)
	assert.Equal(t, cut.ID, mirror.CurrentStageID)

	// первый перевод: Крой -> Пошив, зеркало следует за нарядом
	rec = doRequest(t, h, http.MethodPost, "/api/work-orders/1/advance", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	order = decodeOrder(t, rec)
	assert.Equal(t, "in_progress", order["status"])
	assert.Equal(t, "Пошив", order["current_stage"].(map[string]any)["name"])

	mirror = db.wipByOrder(orderID)
	require.NotNil(t, mirror)
	assert.Equal(t, sew.ID, mirror.CurrentStageID)

	// второй перевод: последний этап, наряд завершается
	rec = doRequest(t, h, http.MethodPost, "/api/work-orders/1/advance", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	order = decodeOrder(t, rec)
	assert.Equal(t, "completed", order["status"])
	assert.Nil(t, order["current_stage"])
	// (2×10×15 + 1×10×8) + 10×3 + 10×1 = 420
	assert.Equal(t, 420.0, order["total_cost"])

	assert.Nil(t, db.wipByOrder(orderID))

	rec = doRequest(t, h, http.MethodGet, "/api/finished-goods", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 420.0, entries[0]["total_cost"])
	assert.Equal(t, 10.0, entries[0]["qty"])

	// третий перевод по завершённому наряду — ошибка терминального состояния
	rec = doRequest(t, h, http.MethodPost, "/api/work-orders/1/advance", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdvanceStage_NotFound(t *testing.T) {
	db := newFakeDB()
	h := newTestHandler(db, "").Routes()

	rec := doRequest(t, h, http.MethodPost, "/api/work-orders/777/advance", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetWorkOrder_NotFound(t *testing.T) {
	db := newFakeDB()
	h := newTestHandler(db, "").Routes()

	rec := doRequest(t, h, http.MethodGet, "/api/work-orders/777", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateWorkOrder_NumbersAreSequential(t *testing.T) {
	db := newFakeDB()
	h := newTestHandler(db, "").Routes()

	m := db.addMaterial("Ткань", materials.UnitM, 1000, 15, 0)
	st := db.addStage("Крой")
	db.addRecipe(1, "Платье", 3, 1, []recipes.Item{{MaterialID: m.ID, QtyPerUnit: 1}})

	for i, want := range []string{"00001", "00002", "00003"} {
		rec := doRequest(t, h, http.MethodPost, "/api/work-orders",
			map[string]any{"product_id": 1, "qty": 1, "stage_ids": []int64{st.ID}}, nil)
		require.Equal(t, http.StatusCreated, rec.Code, "order %d", i+1)
		order := decodeOrder(t, rec)
		assert.Equal(t, want, order["number"])
	}
}
