package scene

import "roomcore/pkg/domain"

// DetectZone returns the first zone of sceneID, in registration order, whose
// bounds contain (x, y) with all edges inclusive. Overlapping zones resolve
// deterministically to the earliest declared one. An unknown scene or a
// point in dead space yields ok=false.
func (r *Registry) DetectZone(sceneID string, x, y float64) (zoneID string, ok bool) {
	idx, known := r.sceneIndex[sceneID]
	if !known {
		return "", false
	}
	p := domain.Point{X: x, Y: y}
	for _, z := range r.scenes[idx].Zones {
		if z.Bounds.Contains(p) {
			return z.ID, true
		}
	}
	return "", false
}
