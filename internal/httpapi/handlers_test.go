package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"roomcore/internal/core"
	"roomcore/internal/drag"
	"roomcore/internal/infra/persistence/memory"
	"roomcore/internal/inventory"
	"roomcore/internal/placement"
	"roomcore/internal/scene"
	"roomcore/pkg/domain"
)

func newTestServer(t *testing.T, opts ...core.Option) (*echo.Echo, *core.Service) {
	t.Helper()
	base := []core.Option{core.WithStoreOptions(placement.WithRandom(func() float64 { return 0.5 }))}
	svc := core.NewService(scene.Builtin(), memory.New(), inventory.StaticProvider(inventory.StarterItems()), append(base, opts...)...)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return New(svc), svc
}

func do(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func TestScenesAndZones(t *testing.T) {
	e, _ := newTestServer(t)

	scenes := decode[[]domain.Scene](t, do(t, e, http.MethodGet, "/v1/scenes", ""))
	if len(scenes) != 2 || scenes[0].ID != scene.SceneIndoor {
		t.Fatalf("unexpected scenes %+v", scenes)
	}

	zones := decode[[]domain.Zone](t, do(t, e, http.MethodGet, "/v1/scenes/outdoor/zones", ""))
	if len(zones) != 2 || zones[0].ID != scene.ZoneYard || zones[1].ID != scene.ZoneFence {
		t.Fatalf("unexpected zones %+v", zones)
	}

	if rec := do(t, e, http.MethodGet, "/v1/scenes/attic/zones", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown scene, got %d", rec.Code)
	}
}

func TestDetectZone(t *testing.T) {
	e, _ := newTestServer(t)

	hit := decode[detectResponse](t, do(t, e, http.MethodGet, "/v1/scenes/indoor/detect?x=50&y=15", ""))
	if !hit.Found || hit.ZoneID != scene.ZoneFloor {
		t.Fatalf("expected floor, got %+v", hit)
	}
	miss := decode[detectResponse](t, do(t, e, http.MethodGet, "/v1/scenes/indoor/detect?x=95&y=95", ""))
	if miss.Found || miss.ZoneID != "" {
		t.Fatalf("expected no zone, got %+v", miss)
	}
	if rec := do(t, e, http.MethodGet, "/v1/scenes/indoor/detect?x=left&y=1", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad coordinates, got %d", rec.Code)
	}
	if rec := do(t, e, http.MethodGet, "/v1/scenes/attic/detect?x=1&y=1", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown scene, got %d", rec.Code)
	}
}

func TestItemLifecycle(t *testing.T) {
	e, svc := newTestServer(t)

	rec := do(t, e, http.MethodPost, "/v1/items", `{"item_id":"basic-bed"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("place: %d %s", rec.Code, rec.Body.String())
	}
	placed := decode[itemResponse](t, rec).Item
	if placed.ZoneID != scene.ZoneFloor || placed.InstanceID == "" {
		t.Fatalf("unexpected placement %+v", placed)
	}
	path := "/v1/items/" + placed.InstanceID

	got := decode[domain.PlacedItem](t, do(t, e, http.MethodGet, path, ""))
	if got.InstanceID != placed.InstanceID {
		t.Fatalf("unexpected item %+v", got)
	}

	rec = do(t, e, http.MethodPut, path+"/position", `{"x":20,"y":60}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("position: %d %s", rec.Code, rec.Body.String())
	}
	if moved := decode[itemResponse](t, rec).Item; moved.ZoneID != scene.ZoneWall || moved.Position != (domain.Point{X: 20, Y: 60}) {
		t.Fatalf("expected wall placement, got %+v", moved)
	}

	rec = do(t, e, http.MethodPut, path+"/zone", `{"zone_id":"ground"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("zone: %d %s", rec.Code, rec.Body.String())
	}
	if moved := decode[itemResponse](t, rec).Item; moved.ZoneID != scene.ZoneFloor {
		t.Fatalf("expected alias to resolve to floor, got %+v", moved)
	}

	floor := decode[[]domain.PlacedItem](t, do(t, e, http.MethodGet, "/v1/items?zone=floor", ""))
	all := decode[[]domain.PlacedItem](t, do(t, e, http.MethodGet, "/v1/items", ""))
	if len(floor) != 1 || len(all) != 1 {
		t.Fatalf("unexpected listings floor=%d all=%d", len(floor), len(all))
	}

	if rec := do(t, e, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("remove: %d", rec.Code)
	}
	if rec := do(t, e, http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after remove, got %d", rec.Code)
	}
	if len(svc.Items()) != 0 {
		t.Fatalf("store should be empty")
	}
}

func TestPlaceItemErrors(t *testing.T) {
	e, _ := newTestServer(t)
	cases := []struct {
		name string
		body string
		code int
	}{
		{"missing item", `{}`, http.StatusBadRequest},
		{"malformed body", `{"item_id":`, http.StatusBadRequest},
		{"not owned", `{"item_id":"hot-tub"}`, http.StatusNotFound},
		{"unknown zone", `{"item_id":"pool","zone_id":"roof"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := do(t, e, http.MethodPost, "/v1/items", tc.body); rec.Code != tc.code {
				t.Fatalf("expected %d, got %d %s", tc.code, rec.Code, rec.Body.String())
			}
		})
	}
	for _, path := range []string{"/v1/items/nope/position", "/v1/items/nope/zone"} {
		body := `{"x":1,"y":1}`
		if strings.HasSuffix(path, "zone") {
			body = `{"zone_id":"floor"}`
		}
		if rec := do(t, e, http.MethodPut, path, body); rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rec.Code)
		}
	}
	if rec := do(t, e, http.MethodPut, "/v1/items/nope/zone", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty zone, got %d", rec.Code)
	}
}

func TestInvalidPositionsAreBadRequests(t *testing.T) {
	e, svc := newTestServer(t)
	placed, _, err := svc.PlaceItem(context.Background(), "basic-bed", "", nil)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	path := "/v1/items/" + placed.InstanceID + "/position"

	cases := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"place beyond the scene", http.MethodPost, "/v1/items", `{"item_id":"pool","position":{"x":150,"y":10}}`},
		{"place overflowing", http.MethodPost, "/v1/items", `{"item_id":"pool","position":{"x":1e999,"y":10}}`},
		{"position below the scene", http.MethodPut, path, `{"x":20,"y":-5}`},
		{"position overflowing", http.MethodPut, path, `{"x":20,"y":-1e400}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := do(t, e, tc.method, tc.path, tc.body); rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
			}
		})
	}

	start := `{"instance_id":"` + placed.InstanceID + `","pointer":{"x":0,"y":0}}`
	if rec := do(t, e, http.MethodPost, "/v1/drag/start", start); rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, e, http.MethodPost, "/v1/drag/end", `{"position":{"x":120,"y":20}}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for release outside the scene, got %d", rec.Code)
	}
	if _, active := svc.DragSession(); !active {
		t.Fatalf("rejected release must keep the drag")
	}

	if current, _ := svc.Item(placed.InstanceID); current.Position != placed.Position {
		t.Fatalf("rejected input moved the item: %+v", current)
	}
	if len(svc.Items()) != 1 {
		t.Fatalf("rejected placements must not add items")
	}
	if rec := do(t, e, http.MethodPost, "/v1/snapshot", ""); rec.Code >= http.StatusBadRequest {
		t.Fatalf("snapshot after rejected input: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRuleViolationsSurface(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(t, e, http.MethodPost, "/v1/items", `{"item_id":"pool","zone_id":"fence"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("warn rules must not block: %d %s", rec.Code, rec.Body.String())
	}
	body := decode[itemResponse](t, rec)
	if len(body.Violations) != 1 || body.Violations[0].Rule != "zone_placeable" || body.Violations[0].Severity != string(domain.SeverityWarn) {
		t.Fatalf("expected a placeable warning, got %+v", body.Violations)
	}

	strict := core.NewRulesEngine()
	strict.Register(core.NewZonePlaceableRule(domain.SeverityBlock))
	e, svc := newTestServer(t, core.WithRulesEngine(strict))
	rec = do(t, e, http.MethodPost, "/v1/items", `{"item_id":"pool","zone_id":"fence"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", rec.Code, rec.Body.String())
	}
	errBody := decode[errorBody](t, rec)
	if len(errBody.Violations) != 1 || errBody.Violations[0].ZoneID != scene.ZoneFence {
		t.Fatalf("unexpected violations %+v", errBody.Violations)
	}
	if len(svc.Items()) != 0 {
		t.Fatalf("blocked placement must not reach the store")
	}
}

func TestUnplacedFurniture(t *testing.T) {
	e, svc := newTestServer(t)
	if _, _, err := svc.PlaceItem(context.Background(), "pool", "", nil); err != nil {
		t.Fatalf("place: %v", err)
	}
	items := decode[[]domain.CatalogItem](t, do(t, e, http.MethodGet, "/v1/inventory/unplaced", ""))
	ids := map[string]bool{}
	for _, item := range items {
		ids[item.ID] = true
	}
	if ids["pool"] || !ids["basic-bed"] || !ids["flower-bed"] || ids["fancy-lamp"] {
		t.Fatalf("unexpected unplaced furniture %v", ids)
	}
}

func TestDragFlow(t *testing.T) {
	e, svc := newTestServer(t)
	placed, _, err := svc.PlaceItem(context.Background(), "basic-bed", "", nil)
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	state := decode[dragStateResponse](t, do(t, e, http.MethodGet, "/v1/drag", ""))
	if state.State != drag.Idle.String() || state.Session != nil {
		t.Fatalf("expected idle, got %+v", state)
	}
	if rec := do(t, e, http.MethodPost, "/v1/drag/update", `{"pointer":{"x":1,"y":1},"viewport":{"left":0,"top":0,"width":10,"height":10}}`); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 without drag, got %d", rec.Code)
	}

	start := `{"instance_id":"` + placed.InstanceID + `","pointer":{"x":200,"y":100}}`
	if rec := do(t, e, http.MethodPost, "/v1/drag/start", start); rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, e, http.MethodPost, "/v1/drag/start", start); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for second drag, got %d", rec.Code)
	}
	state = decode[dragStateResponse](t, do(t, e, http.MethodGet, "/v1/drag", ""))
	if state.State != drag.Dragging.String() || state.Session == nil || state.Session.InstanceID != placed.InstanceID {
		t.Fatalf("expected dragging, got %+v", state)
	}

	rec := do(t, e, http.MethodPost, "/v1/drag/update", `{"pointer":{"x":300,"y":150},"viewport":{"left":100,"top":50,"width":400,"height":200}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	if pos := decode[positionResponse](t, rec).Position; pos != (domain.Point{X: 50, Y: 50}) {
		t.Fatalf("unexpected scene position %+v", pos)
	}
	if rec := do(t, e, http.MethodPost, "/v1/drag/update", `{"pointer":{"x":1,"y":1},"viewport":{"width":0,"height":0}}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty viewport, got %d", rec.Code)
	}

	rec = do(t, e, http.MethodPost, "/v1/drag/end", `{"position":{"x":30,"y":20}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("end: %d %s", rec.Code, rec.Body.String())
	}
	if item := decode[itemResponse](t, rec).Item; item.Position != (domain.Point{X: 30, Y: 20}) || item.ZoneID != scene.ZoneFloor {
		t.Fatalf("unexpected committed item %+v", item)
	}
	if _, active := svc.DragSession(); active {
		t.Fatalf("drag should be finished")
	}
}

func TestDragReleasedOutsideRollsBack(t *testing.T) {
	e, svc := newTestServer(t)
	placed, _, err := svc.PlaceItem(context.Background(), "fancy-lamp", "", nil)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	start := `{"instance_id":"` + placed.InstanceID + `","pointer":{"x":0,"y":0}}`
	if rec := do(t, e, http.MethodPost, "/v1/drag/start", start); rec.Code != http.StatusOK {
		t.Fatalf("start: %d", rec.Code)
	}

	rec := do(t, e, http.MethodPost, "/v1/drag/end", `{"position":{"x":90,"y":90},"inside":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("end outside: %d %s", rec.Code, rec.Body.String())
	}
	body := decode[positionResponse](t, rec)
	if !body.Cancelled || body.Position != placed.Position {
		t.Fatalf("expected rollback to %+v, got %+v", placed.Position, body)
	}
	if got, _ := svc.Item(placed.InstanceID); got.Position != placed.Position {
		t.Fatalf("item must stay put, got %+v", got.Position)
	}
	if rec := do(t, e, http.MethodPost, "/v1/drag/cancel", ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 when idle, got %d", rec.Code)
	}
}

func TestSaveSnapshot(t *testing.T) {
	gw := memory.New()
	svc := core.NewService(scene.Builtin(), gw, inventory.StaticProvider(inventory.StarterItems()))
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	e := New(svc)

	if _, _, err := svc.PlaceItem(context.Background(), "pool", "", nil); err != nil {
		t.Fatalf("place: %v", err)
	}
	if rec := do(t, e, http.MethodPost, "/v1/snapshot", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("save: %d", rec.Code)
	}
	state, ok, err := gw.Load(context.Background(), core.DefaultSnapshotKey)
	if err != nil || !ok || len(state.Items) != 1 {
		t.Fatalf("expected persisted snapshot, got %+v %v %v", state, ok, err)
	}
}

func TestMetricsAndExpvarRoutes(t *testing.T) {
	svc := core.NewService(scene.Builtin(), memory.New(), inventory.StaticProvider(nil))
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) })
	vars := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("{}")) })
	e := New(svc, WithMetricsHandler(metrics), WithExpvarHandler(vars))

	if rec := do(t, e, http.MethodGet, "/metrics", ""); rec.Body.String() != "# metrics" {
		t.Fatalf("unexpected metrics body %q", rec.Body.String())
	}
	if rec := do(t, e, http.MethodGet, "/debug/vars", ""); rec.Body.String() != "{}" {
		t.Fatalf("unexpected expvar body %q", rec.Body.String())
	}
	if rec := do(t, New(svc), http.MethodGet, "/metrics", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("metrics must be opt-in, got %d", rec.Code)
	}
}

type recordingLogger struct {
	infos, errors int
}

func (l *recordingLogger) Info(string, ...any)  { l.infos++ }
func (l *recordingLogger) Error(string, ...any) { l.errors++ }

func TestRequestLogger(t *testing.T) {
	svc := core.NewService(scene.Builtin(), memory.New(), inventory.StaticProvider(nil))
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	log := &recordingLogger{}
	e := New(svc, WithLogger(log))
	do(t, e, http.MethodGet, "/healthz", "")
	do(t, e, http.MethodGet, "/v1/items/missing", "")
	if log.infos != 2 || log.errors != 0 {
		t.Fatalf("unexpected log counts %+v", log)
	}
}
