package placement

import "roomcore/pkg/domain"

// Snapshot returns the persistable aggregate of the current collection.
func (s *Store) Snapshot() domain.RoomState {
	state, _ := s.Capture()
	return state
}

// Capture returns the current aggregate together with the revision it
// reflects.
func (s *Store) Capture() (domain.RoomState, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := domain.CloneItems(s.items)
	if items == nil {
		items = []domain.PlacedItem{}
	}
	return domain.RoomState{
		Version: domain.StateVersion,
		SavedAt: s.nowFn(),
		Items:   items,
	}, s.revision
}

// MarkSaved records that revision has been persisted. Later revisions keep
// the store dirty.
func (s *Store) MarkSaved(revision uint64) {
	s.mu.Lock()
	if revision > s.saved {
		s.saved = revision
	}
	s.mu.Unlock()
}

// Dirty reports whether mutations exist that have not been persisted.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision > s.saved
}

// Restore replaces the collection with state, upgrading older records:
// missing instance ids are generated, duplicated ids are reissued, records
// without a zone get the item's default zone and legacy zone ids are mapped
// onto their current zones. Ids issued before the restore stay reserved.
// It returns the number of records changed. A migrated collection is marked
// dirty and a flush is scheduled; an untouched one is considered already
// persisted.
func (s *Store) Restore(state domain.RoomState) int {
	items := domain.CloneItems(state.Items)

	s.mu.Lock()
	for _, it := range items {
		if it.InstanceID != "" {
			s.issued[it.InstanceID] = struct{}{}
		}
	}
	seen := make(map[string]struct{}, len(items))
	migrated := 0
	for i := range items {
		changed := false
		if _, dup := seen[items[i].InstanceID]; dup || items[i].InstanceID == "" {
			items[i].InstanceID = s.freshIDLocked()
			changed = true
		}
		seen[items[i].InstanceID] = struct{}{}
		if items[i].ZoneID == "" {
			if def, err := s.reg.DefaultZoneForItem(items[i].ItemID); err == nil {
				items[i].ZoneID = def
				changed = true
			}
		}
		if canonical := s.reg.ResolveAlias(items[i].ZoneID); canonical != items[i].ZoneID {
			items[i].ZoneID = canonical
			changed = true
		}
		if changed {
			migrated++
		}
	}
	if items == nil {
		items = []domain.PlacedItem{}
	}
	s.items = items
	s.revision++
	sched := s.sched
	if migrated == 0 && state.Version >= domain.StateVersion {
		s.saved = s.revision
	}
	dirty := s.revision > s.saved
	s.mu.Unlock()

	if dirty {
		sched.Schedule()
	}
	return migrated
}
