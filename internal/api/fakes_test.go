package api_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mkazakova/fabrika/internal/api"
	"github.com/mkazakova/fabrika/internal/domain/finished"
	"github.com/mkazakova/fabrika/internal/domain/materials"
	"github.com/mkazakova/fabrika/internal/domain/recipes"
	"github.com/mkazakova/fabrika/internal/domain/stages"
	"github.com/mkazakova/fabrika/internal/domain/wip"
	"github.com/mkazakova/fabrika/internal/domain/workorders"
)

// fakeDB — хранилище в памяти с той же семантикой, что у SQL-репозиториев:
// резерв «всё или ничего», WIP-зеркало, финализация на последнем этапе.
type fakeDB struct {
	mu sync.Mutex

	mats      map[int64]*materials.Material
	recipeSet map[int64]*recipes.Recipe // по product_id
	stageSet  map[int64]stages.Stage
	orders    map[int64]*workorders.WorkOrder
	wipSet    map[int64]*wip.Record // по work_order_id
	done      []finished.Entry

	nextMatID   int64
	nextStageID int64
	nextOrderID int64
	nextSeq     int64
	nextWIPID   int64
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		mats:      map[int64]*materials.Material{},
		recipeSet: map[int64]*recipes.Recipe{},
		stageSet:  map[int64]stages.Stage{},
		orders:    map[int64]*workorders.WorkOrder{},
		wipSet:    map[int64]*wip.Record{},
	}
}

func newTestHandler(db *fakeDB, apiKey string) *api.Handler {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return api.New(log, api.Deps{
		Orders:   fakeOrders{db},
		Mats:     fakeMaterials{db},
		Recipes:  fakeRecipes{db},
		Stages:   fakeStages{db},
		WIP:      fakeWIP{db},
		Finished: fakeFinished{db},
		APIKey:   apiKey,
	})
}

/* фикстуры */

func (f *fakeDB) addMaterial(name string, unit materials.Unit, qty, price, reorder float64) *materials.Material {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMatID++
	m := &materials.Material{
		ID: f.nextMatID, Name: name, Unit: unit,
		Qty: qty, PricePerUnit: price, ReorderLevel: reorder,
		Active: true, CreatedAt: time.Now(),
	}
	f.mats[m.ID] = m
	return m
}

func (f *fakeDB) addStage(name string) stages.Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextStageID++
	s := stages.Stage{ID: f.nextStageID, Name: name, Active: true, CreatedAt: time.Now()}
	f.stageSet[s.ID] = s
	return s
}

func (f *fakeDB) addRecipe(productID int64, productName string, labor, overhead float64, items []recipes.Item) *recipes.Recipe {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := &recipes.Recipe{
		ID: int64(len(f.recipeSet) + 1), ProductID: productID, ProductName: productName,
		LaborPerUnit: labor, OverheadPerUnit: overhead,
		CreatedAt: time.Now(), Items: items,
	}
	f.recipeSet[productID] = rec
	return rec
}

func (f *fakeDB) stock(id int64) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mats[id].Qty
}

func (f *fakeDB) wipByOrder(id int64) *wip.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.wipSet[id]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

/* api.WorkOrderStore */

type fakeOrders struct{ db *fakeDB }

func (f fakeOrders) Create(_ context.Context, p workorders.CreateParams) (*workorders.WorkOrder, error) {
	d := f.db
	d.mu.Lock()
	defer d.mu.Unlock()

	if p.Qty <= 0 {
		return nil, workorders.ErrQtyNotPositive
	}
	if len(p.StageIDs) == 0 {
		return nil, workorders.ErrNoStages
	}
	rec, ok := d.recipeSet[p.ProductID]
	if !ok {
		return nil, workorders.ErrRecipeNotFound
	}
	for _, id := range p.StageIDs {
		if _, ok := d.stageSet[id]; !ok {
			return nil, workorders.ErrUnknownStage
		}
	}

	need := workorders.Requirements(rec, p.Qty)
	for i := range need {
		m := d.mats[need[i].MaterialID]
		if m.Qty < need[i].Qty {
			return nil, materials.ErrInsufficientStock{
				MaterialName: m.Name, Required: need[i].Qty, Available: m.Qty,
			}
		}
		need[i].MaterialName = m.Name
		need[i].UnitCost = m.PricePerUnit
	}
	for _, n := range need {
		d.mats[n.MaterialID].Qty -= n.Qty
	}

	d.nextSeq++
	d.nextOrderID++
	first := p.StageIDs[0]
	wo := &workorders.WorkOrder{
		ID:              d.nextOrderID,
		Number:          workorders.FormatNumber(d.nextSeq),
		ProductID:       rec.ProductID,
		ProductName:     rec.ProductName,
		Qty:             p.Qty,
		Status:          workorders.StatusInProgress,
		StageIDs:        append([]int64(nil), p.StageIDs...),
		CurrentStageID:  &first,
		LaborPerUnit:    rec.LaborPerUnit,
		OverheadPerUnit: rec.OverheadPerUnit,
		Materials:       need,
		CreatedAt:       time.Now(),
	}
	d.orders[wo.ID] = wo

	d.nextWIPID++
	d.wipSet[wo.ID] = &wip.Record{
		ID: d.nextWIPID, WorkOrderID: wo.ID, OrderNumber: wo.Number,
		ProductID: wo.ProductID, ProductName: wo.ProductName,
		Qty: wo.Qty, CurrentStageID: first, StageName: d.stageSet[first].Name,
	}
	return cloneOrder(wo), nil
}

func (f fakeOrders) GetByID(_ context.Context, id int64) (*workorders.WorkOrder, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	wo, ok := f.db.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(wo), nil
}

func (f fakeOrders) List(_ context.Context) ([]workorders.WorkOrder, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]workorders.WorkOrder, 0, len(f.db.orders))
	for _, wo := range f.db.orders {
		out = append(out, *cloneOrder(wo))
	}
	return out, nil
}

func (f fakeOrders) Advance(_ context.Context, id int64) (*workorders.WorkOrder, error) {
	d := f.db
	d.mu.Lock()
	defer d.mu.Unlock()

	wo, ok := d.orders[id]
	if !ok {
		return nil, workorders.ErrOrderNotFound
	}
	switch wo.Status {
	case workorders.StatusCompleted:
		return nil, workorders.ErrAlreadyCompleted
	case workorders.StatusInProgress:
	default:
		return nil, workorders.ErrNotInProgress
	}
	if wo.CurrentStageID == nil {
		return nil, workorders.ErrInconsistentState
	}

	next, done, err := workorders.NextStage(wo.StageIDs, *wo.CurrentStageID)
	if err != nil {
		return nil, err
	}

	if !done {
		wo.CurrentStageID = &next
		rec := d.wipSet[wo.ID]
		rec.CurrentStageID = next
		rec.StageName = d.stageSet[next].Name
		return cloneOrder(wo), nil
	}

	total := workorders.TotalCost(wo.Materials, wo.LaborPerUnit, wo.OverheadPerUnit, wo.Qty)
	now := time.Now()
	wo.Status = workorders.StatusCompleted
	wo.CurrentStageID = nil
	wo.TotalCost = &total
	wo.CompletedAt = &now
	delete(d.wipSet, wo.ID)
	d.done = append(d.done, finished.Entry{
		ID: int64(len(d.done) + 1), ProductID: wo.ProductID, ProductName: wo.ProductName,
		Qty: wo.Qty, TotalCost: total, CreatedAt: now,
	})
	return cloneOrder(wo), nil
}

func cloneOrder(wo *workorders.WorkOrder) *workorders.WorkOrder {
	cp := *wo
	cp.StageIDs = append([]int64(nil), wo.StageIDs...)
	cp.Materials = append([]workorders.UsedMaterial(nil), wo.Materials...)
	if wo.CurrentStageID != nil {
		v := *wo.CurrentStageID
		cp.CurrentStageID = &v
	}
	if wo.TotalCost != nil {
		v := *wo.TotalCost
		cp.TotalCost = &v
	}
	return &cp
}

/* api.MaterialStore */

type fakeMaterials struct{ db *fakeDB }

func (f fakeMaterials) Create(_ context.Context, name string, unit materials.Unit, price, reorder float64) (*materials.Material, error) {
	return f.db.addMaterial(name, unit, 0, price, reorder), nil
}

func (f fakeMaterials) List(_ context.Context, onlyActive bool) ([]materials.Material, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]materials.Material, 0, len(f.db.mats))
	for _, m := range f.db.mats {
		if onlyActive && !m.Active {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (f fakeMaterials) Receive(_ context.Context, id int64, qty, unitCost float64, _ string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	m := f.db.mats[id]
	m.Qty += qty
	m.PricePerUnit = unitCost
	return nil
}

func (f fakeMaterials) ListBelowReorder(_ context.Context, ids []int64) ([]materials.Material, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []materials.Material
	for _, id := range ids {
		m, ok := f.db.mats[id]
		if ok && m.ReorderLevel > 0 && m.Qty <= m.ReorderLevel {
			out = append(out, *m)
		}
	}
	return out, nil
}

/* api.RecipeStore */

type fakeRecipes struct{ db *fakeDB }

func (f fakeRecipes) Create(_ context.Context, productID int64, productName string, labor, overhead float64, items []recipes.Item) (*recipes.Recipe, error) {
	return f.db.addRecipe(productID, productName, labor, overhead, items), nil
}

func (f fakeRecipes) List(_ context.Context) ([]recipes.Recipe, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]recipes.Recipe, 0, len(f.db.recipeSet))
	for _, rec := range f.db.recipeSet {
		out = append(out, *rec)
	}
	return out, nil
}

/* api.StageStore */

type fakeStages struct{ db *fakeDB }

func (f fakeStages) Create(_ context.Context, name, description string, costPerUnit float64) (*stages.Stage, error) {
	s := f.db.addStage(name)
	f.db.mu.Lock()
	s.Description = description
	s.CostPerUnit = costPerUnit
	f.db.stageSet[s.ID] = s
	f.db.mu.Unlock()
	return &s, nil
}

func (f fakeStages) List(_ context.Context, _ bool) ([]stages.Stage, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]stages.Stage, 0, len(f.db.stageSet))
	for _, s := range f.db.stageSet {
		out = append(out, s)
	}
	return out, nil
}

func (f fakeStages) GetByIDs(_ context.Context, ids []int64) ([]stages.Stage, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]stages.Stage, 0, len(ids))
	for _, id := range ids {
		if s, ok := f.db.stageSet[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

/* api.WIPStore / api.FinishedStore */

type fakeWIP struct{ db *fakeDB }

func (f fakeWIP) List(_ context.Context) ([]wip.Record, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]wip.Record, 0, len(f.db.wipSet))
	for _, rec := range f.db.wipSet {
		out = append(out, *rec)
	}
	return out, nil
}

type fakeFinished struct{ db *fakeDB }

func (f fakeFinished) List(_ context.Context) ([]finished.Entry, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return append([]finished.Entry(nil), f.db.done...), nil
}
