package scene

import "roomcore/pkg/domain"

// Scene ids of the stock house.
const (
	SceneIndoor  = "indoor"
	SceneOutdoor = "outdoor"
)

// Zone ids of the stock house.
const (
	ZoneFloor = "floor"
	ZoneWall  = "wall"
	ZoneYard  = "yard"
	ZoneFence = "fence"
)

// LegacyAliases maps the flat zone ids of the single-scene layout onto the
// scene/zone hierarchy.
var LegacyAliases = map[string]string{
	"ground":  ZoneFloor,
	"outdoor": ZoneYard,
}

// BuiltinScenes returns the stock house definition.
func BuiltinScenes() []domain.Scene {
	return []domain.Scene{
		{
			ID:              SceneIndoor,
			Name:            "Indoor",
			Type:            "room",
			WidthMultiplier: 1,
			Zones: []domain.Zone{
				{
					ID:              ZoneFloor,
					Name:            "Floor",
					Icon:            "🌿",
					Description:     "Floor furniture",
					Bounds:          domain.Bounds{X: 10, Y: 5, Width: 80, Height: 25},
					DefaultPosition: domain.Point{X: 50, Y: 15},
					PlaceableTypes:  []string{"furniture"},
					DefaultItems:    []string{"basic-bed", "flower-bed", "pool"},
				},
				{
					ID:              ZoneWall,
					Name:            "Wall",
					Icon:            "🖼️",
					Description:     "Hanging decorations",
					Bounds:          domain.Bounds{X: 5, Y: 35, Width: 40, Height: 50},
					DefaultPosition: domain.Point{X: 20, Y: 60},
					PlaceableTypes:  []string{"furniture", "decoration"},
					DefaultItems:    []string{"fancy-lamp"},
				},
			},
		},
		{
			ID:              SceneOutdoor,
			Name:            "Outdoor",
			Type:            "garden",
			WidthMultiplier: 1.5,
			Zones: []domain.Zone{
				{
					ID:              ZoneYard,
					Name:            "Yard",
					Icon:            "🏡",
					Description:     "Garden decorations",
					Bounds:          domain.Bounds{X: 5, Y: 5, Width: 90, Height: 40},
					DefaultPosition: domain.Point{X: 50, Y: 20},
					PlaceableTypes:  []string{"furniture", "decoration"},
					DefaultItems:    []string{"garden-fence"},
				},
				{
					ID:              ZoneFence,
					Name:            "Fence",
					Description:     "Things hung on the fence",
					Bounds:          domain.Bounds{X: 0, Y: 50, Width: 100, Height: 30},
					DefaultPosition: domain.Point{X: 50, Y: 65},
					PlaceableTypes:  []string{"decoration"},
				},
			},
		},
	}
}

// Builtin returns a registry over the stock house with the legacy aliases
// and the floor as fallback zone.
func Builtin() *Registry {
	return MustRegistry(BuiltinScenes(), WithAliases(LegacyAliases), WithFallbackZone(ZoneFloor))
}
