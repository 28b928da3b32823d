// Package placement owns the mutable collection of placed items.
//
// Mutations never fail for unknown instance or zone ids: they are UI driven
// and may race with removals, so they quietly do nothing instead. Every
// effective mutation marks the store dirty and schedules an asynchronous
// snapshot flush.
package placement

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	randv2 "math/rand"
	"sync"
	"time"

	"roomcore/internal/scene"
	"roomcore/pkg/domain"
)

// MaxOffset bounds the cosmetic jitter applied to default positions on
// each axis.
const MaxOffset = 5.0

// Scheduler receives a signal after every effective mutation.
type Scheduler interface {
	Schedule()
}

type noopScheduler struct{}

func (noopScheduler) Schedule() {}

// Store is the placed-item collection. Order is insertion order.
type Store struct {
	mu       sync.RWMutex
	reg      *scene.Registry
	items    []domain.PlacedItem
	issued   map[string]struct{}
	revision uint64
	saved    uint64
	nowFn    func() time.Time
	randFn   func() float64
	newID    func() string
	sched    Scheduler
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the placement timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.nowFn = now }
}

// WithRandom overrides the source of the default-position jitter. fn must
// return values in [0,1).
func WithRandom(fn func() float64) Option {
	return func(s *Store) { s.randFn = fn }
}

// WithIDGenerator overrides instance id generation. Ids that collide with an
// already issued id are discarded and regenerated.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithScheduler sets the flush scheduler.
func WithScheduler(sched Scheduler) Option {
	return func(s *Store) { s.sched = sched }
}

// New constructs an empty store over reg.
func New(reg *scene.Registry, opts ...Option) *Store {
	s := &Store{
		reg:    reg,
		issued: make(map[string]struct{}),
		nowFn:  func() time.Time { return time.Now().UTC() },
		randFn: randv2.Float64,
		newID:  newInstanceID,
		sched:  noopScheduler{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetScheduler replaces the flush scheduler. Used to break the
// store/flusher construction cycle.
func (s *Store) SetScheduler(sched Scheduler) {
	if sched == nil {
		sched = noopScheduler{}
	}
	s.mu.Lock()
	s.sched = sched
	s.mu.Unlock()
}

// Registry returns the scene registry the store resolves zones against.
func (s *Store) Registry() *scene.Registry { return s.reg }

func newInstanceID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

func (s *Store) freshIDLocked() string {
	for {
		id := s.newID()
		if id == "" {
			continue
		}
		if _, used := s.issued[id]; used {
			continue
		}
		s.issued[id] = struct{}{}
		return id
	}
}

func (s *Store) jitteredLocked(p domain.Point) domain.Point {
	dx := (s.randFn() - 0.5) * 2 * MaxOffset
	dy := (s.randFn() - 0.5) * 2 * MaxOffset
	return domain.Point{X: p.X + dx, Y: p.Y + dy}.Clamp()
}

func (s *Store) indexLocked(instanceID string) int {
	for i := range s.items {
		if s.items[i].InstanceID == instanceID {
			return i
		}
	}
	return -1
}

// touchLocked marks the state dirty and returns the scheduler to notify
// once the lock is released.
func (s *Store) touchLocked() Scheduler {
	s.revision++
	return s.sched
}

// PlaceItem creates a new instance of item. The zone is zoneID when given,
// otherwise the item's default zone; the position is pos when given,
// otherwise the zone default with jitter. An unregistered zone is a
// configuration defect and reported as NotFound.
func (s *Store) PlaceItem(item domain.CatalogItem, zoneID string, pos *domain.Point) (domain.PlacedItem, error) {
	if pos != nil && !pos.Finite() {
		return domain.PlacedItem{}, fmt.Errorf("place %s: %w", item.ID, domain.ErrInvalidPosition)
	}
	target := zoneID
	if target == "" {
		def, err := s.reg.DefaultZoneForItem(item.ID)
		if err != nil {
			return domain.PlacedItem{}, fmt.Errorf("place %s: %w", item.ID, err)
		}
		target = def
	}
	zone, err := s.reg.ZoneByID(target)
	if err != nil {
		return domain.PlacedItem{}, fmt.Errorf("place %s: %w", item.ID, err)
	}

	s.mu.Lock()
	position := s.jitteredLocked(zone.DefaultPosition)
	if pos != nil {
		position = *pos
	}
	placed := domain.PlacedItem{
		InstanceID: s.freshIDLocked(),
		ItemID:     item.ID,
		ZoneID:     zone.ID,
		Position:   position,
		PlacedAt:   s.nowFn(),
		Snapshot:   domain.SnapshotOf(item),
	}
	s.items = append(s.items, placed)
	sched := s.touchLocked()
	s.mu.Unlock()

	sched.Schedule()
	return placed.Clone(), nil
}

// UpdateItemPosition sets the instance's position to p, then re-detects its
// zone within the scene of its current zone. The zone changes only when a
// different zone contains p; dead space keeps the last valid zone.
// Unknown ids and non-finite points are ignored.
func (s *Store) UpdateItemPosition(instanceID string, p domain.Point) bool {
	if !p.Finite() {
		return false
	}
	s.mu.Lock()
	idx := s.indexLocked(instanceID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	item := &s.items[idx]
	item.Position = p
	if sceneID, err := s.reg.SceneIDForZone(item.ZoneID); err == nil {
		if zoneID, ok := s.reg.DetectZone(sceneID, p.X, p.Y); ok && zoneID != item.ZoneID {
			item.ZoneID = zoneID
		}
	}
	sched := s.touchLocked()
	s.mu.Unlock()

	sched.Schedule()
	return true
}

// MoveItemToZone reassigns the instance to zoneID and resets its position
// to the zone default with jitter. Unknown instances or zones are ignored.
func (s *Store) MoveItemToZone(instanceID, zoneID string) bool {
	zone, err := s.reg.ZoneByID(zoneID)
	if err != nil {
		return false
	}
	s.mu.Lock()
	idx := s.indexLocked(instanceID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.items[idx].ZoneID = zone.ID
	s.items[idx].Position = s.jitteredLocked(zone.DefaultPosition)
	sched := s.touchLocked()
	s.mu.Unlock()

	sched.Schedule()
	return true
}

// RemoveItem deletes the instance, preserving the order of the rest.
// Unknown ids are ignored. Removed ids are never issued again.
func (s *Store) RemoveItem(instanceID string) bool {
	s.mu.Lock()
	idx := s.indexLocked(instanceID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	sched := s.touchLocked()
	s.mu.Unlock()

	sched.Schedule()
	return true
}

// Item returns a copy of one instance.
func (s *Store) Item(instanceID string) (domain.PlacedItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(instanceID)
	if idx < 0 {
		return domain.PlacedItem{}, false
	}
	return s.items[idx].Clone(), true
}

// AllItems returns copies of every instance in insertion order.
func (s *Store) AllItems() []domain.PlacedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := domain.CloneItems(s.items)
	if out == nil {
		out = []domain.PlacedItem{}
	}
	return out
}

// ItemsByZone returns copies of the instances in zoneID. Legacy zone ids
// are resolved through the registry alias table.
func (s *Store) ItemsByZone(zoneID string) []domain.PlacedItem {
	zoneID = s.reg.ResolveAlias(zoneID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.PlacedItem{}
	for _, it := range s.items {
		if it.ZoneID == zoneID {
			out = append(out, it.Clone())
		}
	}
	return out
}

// Len returns the number of placed instances.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
