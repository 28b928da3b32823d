package scene

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"roomcore/pkg/domain"
)

func TestBuiltinListsScenesInOrder(t *testing.T) {
	reg := Builtin()
	scenes := reg.ListScenes()
	if len(scenes) != 2 || scenes[0].ID != SceneIndoor || scenes[1].ID != SceneOutdoor {
		t.Fatalf("unexpected scenes %+v", scenes)
	}
	zones, err := reg.ListZones(SceneIndoor)
	if err != nil {
		t.Fatalf("list zones: %v", err)
	}
	if len(zones) != 2 || zones[0].ID != ZoneFloor || zones[1].ID != ZoneWall {
		t.Fatalf("unexpected zones %+v", zones)
	}
}

func TestListZonesUnknownScene(t *testing.T) {
	_, err := Builtin().ListZones("attic")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListScenesReturnsCopies(t *testing.T) {
	reg := Builtin()
	scenes := reg.ListScenes()
	scenes[0].Zones[0].Bounds.X = 99
	scenes[0].Zones[0].DefaultItems[0] = "mutated"
	z, err := reg.ZoneByID(ZoneFloor)
	if err != nil {
		t.Fatalf("zone: %v", err)
	}
	if z.Bounds.X != 10 || z.DefaultItems[0] != "basic-bed" {
		t.Fatalf("registry mutated through returned copy: %+v", z)
	}
}

func TestZoneLookupsAndAliases(t *testing.T) {
	reg := Builtin()
	cases := []struct {
		zone      string
		wantZone  string
		wantScene string
	}{
		{ZoneFloor, ZoneFloor, SceneIndoor},
		{ZoneWall, ZoneWall, SceneIndoor},
		{ZoneYard, ZoneYard, SceneOutdoor},
		{"ground", ZoneFloor, SceneIndoor},
		{"outdoor", ZoneYard, SceneOutdoor},
	}
	for _, c := range cases {
		z, err := reg.ZoneByID(c.zone)
		if err != nil {
			t.Fatalf("ZoneByID(%s): %v", c.zone, err)
		}
		if z.ID != c.wantZone {
			t.Fatalf("ZoneByID(%s)=%s want %s", c.zone, z.ID, c.wantZone)
		}
		sc, err := reg.SceneIDForZone(c.zone)
		if err != nil || sc != c.wantScene {
			t.Fatalf("SceneIDForZone(%s)=%s,%v want %s", c.zone, sc, err, c.wantScene)
		}
		if !reg.HasZone(c.zone) {
			t.Fatalf("HasZone(%s) false", c.zone)
		}
	}
	if _, err := reg.SceneIDForZone("attic"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for attic, got %v", err)
	}
	if _, err := reg.ZoneByID("attic"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for attic zone")
	}
	if reg.HasZone("attic") {
		t.Fatalf("attic should not exist")
	}
	if reg.ResolveAlias("wall") != "wall" {
		t.Fatalf("non-alias should resolve to itself")
	}
	aliases := reg.Aliases()
	aliases["ground"] = "wall"
	if reg.ResolveAlias("ground") != ZoneFloor {
		t.Fatalf("alias table mutated through copy")
	}
}

func TestDefaultZoneForItem(t *testing.T) {
	reg := Builtin()
	cases := map[string]string{
		"basic-bed":    ZoneFloor,
		"pool":         ZoneFloor,
		"fancy-lamp":   ZoneWall,
		"garden-fence": ZoneYard,
		"mystery-box":  ZoneFloor,
	}
	for item, want := range cases {
		got, err := reg.DefaultZoneForItem(item)
		if err != nil {
			t.Fatalf("DefaultZoneForItem(%s): %v", item, err)
		}
		if got != want {
			t.Fatalf("DefaultZoneForItem(%s)=%s want %s", item, got, want)
		}
	}
}

func TestDefaultZoneForItemMissingFallback(t *testing.T) {
	reg := MustRegistry(BuiltinScenes(), WithFallbackZone("attic"))
	if _, err := reg.DefaultZoneForItem("mystery-box"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unregistered fallback, got %v", err)
	}
	if z, err := reg.DefaultZoneForItem("fancy-lamp"); err != nil || z != ZoneWall {
		t.Fatalf("claimed items should not need the fallback: %s %v", z, err)
	}
}

func TestNewRegistryValidation(t *testing.T) {
	zone := func(id string, b domain.Bounds) domain.Zone { return domain.Zone{ID: id, Bounds: b} }
	ok := domain.Bounds{X: 0, Y: 0, Width: 10, Height: 10}
	cases := []struct {
		name   string
		scenes []domain.Scene
		opts   []Option
		errSub string
	}{
		{"empty scene id", []domain.Scene{{Zones: []domain.Zone{zone("a", ok)}}}, nil, "empty id"},
		{"duplicate scene", []domain.Scene{{ID: "s"}, {ID: "s"}}, nil, "declared twice"},
		{"empty zone id", []domain.Scene{{ID: "s", Zones: []domain.Zone{zone("", ok)}}}, nil, "empty id"},
		{"duplicate zone", []domain.Scene{{ID: "s", Zones: []domain.Zone{zone("a", ok)}}, {ID: "t", Zones: []domain.Zone{zone("a", ok)}}}, nil, "declared in scenes"},
		{"bounds out of range", []domain.Scene{{ID: "s", Zones: []domain.Zone{zone("a", domain.Bounds{X: 50, Y: 50, Width: 60, Height: 10})}}}, nil, "outside"},
		{"dangling alias", []domain.Scene{{ID: "s", Zones: []domain.Zone{zone("a", ok)}}}, []Option{WithAliases(map[string]string{"old": "missing"})}, "unknown zone"},
	}
	for _, c := range cases {
		_, err := NewRegistry(c.scenes, c.opts...)
		if err == nil || !strings.Contains(err.Error(), c.errSub) {
			t.Fatalf("%s: expected error containing %q, got %v", c.name, c.errSub, err)
		}
	}
}

func TestMustRegistryPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	MustRegistry([]domain.Scene{{ID: "s"}, {ID: "s"}})
}

func TestWidthMultiplierDefaultsToOne(t *testing.T) {
	reg := MustRegistry([]domain.Scene{{ID: "s"}})
	sc, err := reg.Scene("s")
	if err != nil {
		t.Fatalf("scene: %v", err)
	}
	if sc.WidthMultiplier != 1 {
		t.Fatalf("expected width multiplier 1, got %v", sc.WidthMultiplier)
	}
}

func TestDetectZoneScenarios(t *testing.T) {
	reg := Builtin()
	if z, ok := reg.DetectZone(SceneIndoor, 50, 15); !ok || z != ZoneFloor {
		t.Fatalf("expected floor, got %q %v", z, ok)
	}
	if z, ok := reg.DetectZone(SceneIndoor, 95, 90); ok {
		t.Fatalf("expected no zone, got %q", z)
	}
	if _, ok := reg.DetectZone("attic", 50, 15); ok {
		t.Fatalf("unknown scene must not resolve")
	}
	if z, ok := reg.DetectZone(SceneOutdoor, 50, 15); !ok || z != ZoneYard {
		t.Fatalf("expected yard in outdoor scene, got %q %v", z, ok)
	}
}

func TestDetectZoneContainsEveryInteriorAndEdgePoint(t *testing.T) {
	reg := Builtin()
	rng := rand.New(rand.NewSource(7))
	for _, sc := range reg.ListScenes() {
		for zi, z := range sc.Zones {
			b := z.Bounds
			corners := []domain.Point{
				{X: b.X, Y: b.Y}, {X: b.X + b.Width, Y: b.Y},
				{X: b.X, Y: b.Y + b.Height}, {X: b.X + b.Width, Y: b.Y + b.Height},
			}
			for i := 0; i < 200; i++ {
				corners = append(corners, domain.Point{X: b.X + rng.Float64()*b.Width, Y: b.Y + rng.Float64()*b.Height})
			}
			for _, p := range corners {
				got, ok := reg.DetectZone(sc.ID, p.X, p.Y)
				if !ok {
					t.Fatalf("%s: point %v not detected", z.ID, p)
				}
				if got != z.ID && !earlierZoneContains(sc.Zones[:zi], p) {
					t.Fatalf("%s: point %v resolved to %s", z.ID, p, got)
				}
			}
		}
	}
}

func TestDetectZoneOutsideEveryZone(t *testing.T) {
	reg := Builtin()
	rng := rand.New(rand.NewSource(11))
	for _, sc := range reg.ListScenes() {
		for i := 0; i < 500; i++ {
			p := domain.Point{X: rng.Float64() * 100, Y: rng.Float64() * 100}
			if earlierZoneContains(sc.Zones, p) {
				continue
			}
			if z, ok := reg.DetectZone(sc.ID, p.X, p.Y); ok {
				t.Fatalf("point %v in dead space resolved to %s", p, z)
			}
		}
	}
}

func TestDetectZoneFirstMatchWinsOnOverlap(t *testing.T) {
	reg := MustRegistry([]domain.Scene{{
		ID: "s",
		Zones: []domain.Zone{
			{ID: "first", Bounds: domain.Bounds{X: 0, Y: 0, Width: 50, Height: 50}},
			{ID: "second", Bounds: domain.Bounds{X: 25, Y: 25, Width: 50, Height: 50}},
		},
	}})
	for i := 0; i < 5; i++ {
		if z, _ := reg.DetectZone("s", 30, 30); z != "first" {
			t.Fatalf("expected first, got %s", z)
		}
	}
	if z, _ := reg.DetectZone("s", 60, 60); z != "second" {
		t.Fatalf("expected second, got %s", z)
	}
}

func earlierZoneContains(zones []domain.Zone, p domain.Point) bool {
	for _, z := range zones {
		if z.Bounds.Contains(p) {
			return true
		}
	}
	return false
}

const sceneYAML = `
fallback_zone: rug
aliases:
  carpet: rug
scenes:
  - id: den
    name: Den
    type: room
    zones:
      - id: rug
        name: Rug
        bounds: {x: 10, y: 10, width: 30, height: 20}
        default_position: {x: 25, y: 20}
        placeable_types: [furniture]
        default_items: [beanbag]
      - id: shelf
        name: Shelf
        bounds: {x: 50, y: 60, width: 40, height: 10}
        default_position: {x: 70, y: 65}
`

func TestLoadYAML(t *testing.T) {
	reg, err := Load(strings.NewReader(sceneYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if z, ok := reg.DetectZone("den", 70, 65); !ok || z != "shelf" {
		t.Fatalf("expected shelf, got %s %v", z, ok)
	}
	if z, err := reg.DefaultZoneForItem("lamp"); err != nil || z != "rug" {
		t.Fatalf("expected rug fallback, got %s %v", z, err)
	}
	if sc, err := reg.SceneIDForZone("carpet"); err != nil || sc != "den" {
		t.Fatalf("expected alias to resolve, got %s %v", sc, err)
	}
	sc, _ := reg.Scene("den")
	if sc.Zones[0].DefaultPosition != (domain.Point{X: 25, Y: 20}) {
		t.Fatalf("default position not decoded: %+v", sc.Zones[0])
	}
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"unknown field": "scenes:\n  - id: a\n    colour: red\n",
		"no scenes":     "fallback_zone: x\n",
		"bad bounds":    "scenes:\n  - id: a\n    zones:\n      - id: z\n        bounds: {x: 90, y: 0, width: 20, height: 5}\n",
		"bad yaml":      "scenes: [",
	}
	for name, src := range cases {
		if _, err := Load(strings.NewReader(src)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadFileAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenes.yaml")
	if err := os.WriteFile(path, []byte(sceneYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	reg, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := reg.Scene("den"); err != nil {
		t.Fatalf("scene: %v", err)
	}
	builtin, err := Open("")
	if err != nil {
		t.Fatalf("open builtin: %v", err)
	}
	if _, err := builtin.Scene(SceneIndoor); err != nil {
		t.Fatalf("builtin scene: %v", err)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}
