// Package scene holds the static scene/zone table and the zone resolver.
// A Registry is built once and never mutated, so it is safe to share.
package scene

import (
	"fmt"

	"roomcore/pkg/domain"
)

// Registry is a read-only table of scenes and their zones.
type Registry struct {
	scenes      []domain.Scene
	sceneIndex  map[string]int
	zoneIndex   map[string]zoneRef
	aliases     map[string]string
	fallbackZID string
}

type zoneRef struct {
	scene int
	zone  int
}

// Option customises registry construction.
type Option func(*Registry)

// WithAliases maps legacy zone ids onto current ones so that older
// persisted data keeps resolving.
func WithAliases(aliases map[string]string) Option {
	return func(r *Registry) {
		for legacy, current := range aliases {
			r.aliases[legacy] = current
		}
	}
}

// WithFallbackZone sets the zone used when no zone claims an item by default.
func WithFallbackZone(zoneID string) Option {
	return func(r *Registry) { r.fallbackZID = zoneID }
}

// NewRegistry validates and indexes scenes. Zone ids must be unique across
// all scenes and every zone's bounds must lie within [0,100]x[0,100].
func NewRegistry(scenes []domain.Scene, opts ...Option) (*Registry, error) {
	r := &Registry{
		sceneIndex: make(map[string]int, len(scenes)),
		zoneIndex:  make(map[string]zoneRef),
		aliases:    make(map[string]string),
	}
	for si, sc := range scenes {
		if sc.ID == "" {
			return nil, fmt.Errorf("scene %d: empty id", si)
		}
		if _, dup := r.sceneIndex[sc.ID]; dup {
			return nil, fmt.Errorf("scene %s declared twice", sc.ID)
		}
		cp := cloneScene(sc)
		if cp.WidthMultiplier <= 0 {
			cp.WidthMultiplier = 1
		}
		for zi, z := range cp.Zones {
			if z.ID == "" {
				return nil, fmt.Errorf("scene %s zone %d: empty id", sc.ID, zi)
			}
			if prev, dup := r.zoneIndex[z.ID]; dup {
				return nil, fmt.Errorf("zone %s declared in scenes %s and %s", z.ID, scenes[prev.scene].ID, sc.ID)
			}
			if !z.Bounds.Valid() {
				return nil, fmt.Errorf("zone %s: bounds %+v outside [0,100]", z.ID, z.Bounds)
			}
			r.zoneIndex[z.ID] = zoneRef{scene: si, zone: zi}
		}
		r.sceneIndex[sc.ID] = si
		r.scenes = append(r.scenes, cp)
	}
	for _, opt := range opts {
		opt(r)
	}
	for legacy, current := range r.aliases {
		if _, ok := r.zoneIndex[current]; !ok {
			return nil, fmt.Errorf("alias %s points at unknown zone %s", legacy, current)
		}
	}
	return r, nil
}

// MustRegistry is NewRegistry that panics on error. Intended for static tables.
func MustRegistry(scenes []domain.Scene, opts ...Option) *Registry {
	r, err := NewRegistry(scenes, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// ListScenes returns scenes in registration order.
func (r *Registry) ListScenes() []domain.Scene {
	out := make([]domain.Scene, len(r.scenes))
	for i, sc := range r.scenes {
		out[i] = cloneScene(sc)
	}
	return out
}

// Scene returns a scene by id.
func (r *Registry) Scene(sceneID string) (domain.Scene, error) {
	idx, ok := r.sceneIndex[sceneID]
	if !ok {
		return domain.Scene{}, domain.NotFoundError{Kind: domain.KindScene, ID: sceneID}
	}
	return cloneScene(r.scenes[idx]), nil
}

// ListZones returns the zones of a scene in registration order.
func (r *Registry) ListZones(sceneID string) ([]domain.Zone, error) {
	sc, err := r.Scene(sceneID)
	if err != nil {
		return nil, err
	}
	return sc.Zones, nil
}

// ResolveAlias maps a legacy zone id to its current id. Unknown and
// current ids are returned unchanged.
func (r *Registry) ResolveAlias(zoneID string) string {
	if current, ok := r.aliases[zoneID]; ok {
		return current
	}
	return zoneID
}

// HasZone reports whether zoneID (or the zone it aliases) is registered.
func (r *Registry) HasZone(zoneID string) bool {
	_, ok := r.zoneIndex[r.ResolveAlias(zoneID)]
	return ok
}

// ZoneByID returns the zone declaring zoneID in any scene.
func (r *Registry) ZoneByID(zoneID string) (domain.Zone, error) {
	ref, ok := r.zoneIndex[r.ResolveAlias(zoneID)]
	if !ok {
		return domain.Zone{}, domain.NotFoundError{Kind: domain.KindZone, ID: zoneID}
	}
	return cloneZone(r.scenes[ref.scene].Zones[ref.zone]), nil
}

// SceneIDForZone returns the id of the scene owning zoneID.
func (r *Registry) SceneIDForZone(zoneID string) (string, error) {
	ref, ok := r.zoneIndex[r.ResolveAlias(zoneID)]
	if !ok {
		return "", domain.NotFoundError{Kind: domain.KindZone, ID: zoneID}
	}
	return r.scenes[ref.scene].ID, nil
}

// DefaultZoneForItem returns the first zone listing itemID among its
// default items, or the fallback zone. An unregistered fallback is a
// configuration defect and reported as NotFound.
func (r *Registry) DefaultZoneForItem(itemID string) (string, error) {
	for _, sc := range r.scenes {
		for _, z := range sc.Zones {
			for _, id := range z.DefaultItems {
				if id == itemID {
					return z.ID, nil
				}
			}
		}
	}
	fallback := r.ResolveAlias(r.fallbackZID)
	if _, ok := r.zoneIndex[fallback]; !ok {
		return "", fmt.Errorf("default zone for %s: %w", itemID, domain.NotFoundError{Kind: domain.KindZone, ID: r.fallbackZID})
	}
	return fallback, nil
}

// Aliases returns a copy of the legacy zone alias table.
func (r *Registry) Aliases() map[string]string {
	out := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}

func cloneScene(sc domain.Scene) domain.Scene {
	cp := sc
	cp.Zones = make([]domain.Zone, len(sc.Zones))
	for i, z := range sc.Zones {
		cp.Zones[i] = cloneZone(z)
	}
	return cp
}

func cloneZone(z domain.Zone) domain.Zone {
	cp := z
	cp.PlaceableTypes = append([]string(nil), z.PlaceableTypes...)
	cp.DefaultItems = append([]string(nil), z.DefaultItems...)
	return cp
}
