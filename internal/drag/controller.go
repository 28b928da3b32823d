// Package drag turns pointer gestures into placement position updates.
//
// A session starts when a placed item is grabbed, follows the pointer
// without persisting anything and commits exactly one position update on
// release. Cancelling restores the item's original position locally and
// persists nothing.
package drag

import (
	"sync"

	"roomcore/pkg/domain"
)

// State is the controller state.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// ScreenPoint is a pointer position in screen pixels, origin top-left.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is the on-screen rectangle of the scene surface.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ToScene converts a screen point to normalized scene coordinates with the
// origin at the bottom-left, clamped to [0,100]. A viewport without area
// or a pointer that maps to no finite point cannot be mapped.
func ToScene(p ScreenPoint, viewport Rect) (domain.Point, bool) {
	if viewport.Width <= 0 || viewport.Height <= 0 {
		return domain.Point{}, false
	}
	x := (p.X - viewport.Left) / viewport.Width * 100
	y := 100 - (p.Y-viewport.Top)/viewport.Height*100
	mapped := domain.Point{X: x, Y: y}
	if !mapped.Finite() {
		return domain.Point{}, false
	}
	return mapped.Clamp(), true
}

// Session describes an in-flight drag.
type Session struct {
	InstanceID string       `json:"instance_id"`
	Origin     domain.Point `json:"origin"`
	Pointer    ScreenPoint  `json:"pointer"`
	Current    domain.Point `json:"current"`
}

// Committer persists the final position of a drag.
type Committer interface {
	UpdateItemPosition(instanceID string, p domain.Point) bool
}

// Controller holds at most one drag session.
type Controller struct {
	mu        sync.Mutex
	committer Committer
	session   *Session
}

// New returns an idle controller committing through c.
func New(c Committer) *Controller {
	return &Controller{committer: c}
}

// Start begins dragging item from the pointer position origin. It returns
// false when a drag is already in progress.
func (c *Controller) Start(item domain.PlacedItem, origin ScreenPoint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return false
	}
	c.session = &Session{
		InstanceID: item.InstanceID,
		Origin:     item.Position,
		Pointer:    origin,
		Current:    item.Position,
	}
	return true
}

// Update maps the pointer into scene coordinates and records it as the
// session's current position. Nothing is persisted.
func (c *Controller) Update(p ScreenPoint, viewport Rect) (domain.Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return domain.Point{}, false
	}
	pos, ok := ToScene(p, viewport)
	if !ok {
		return domain.Point{}, false
	}
	c.session.Pointer = p
	c.session.Current = pos
	return pos, true
}

// End commits final through the committer and returns to Idle. It returns
// false when no drag is active or the item no longer exists.
func (c *Controller) End(final domain.Point) bool {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()
	if s == nil {
		return false
	}
	return c.committer.UpdateItemPosition(s.InstanceID, final)
}

// Cancel abandons the drag and returns the position the item had when the
// drag started.
func (c *Controller) Cancel() (domain.Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return domain.Point{}, false
	}
	origin := c.session.Origin
	c.session = nil
	return origin, true
}

// EndOrCancel finishes a drag released at final. Releases inside the scene
// surface commit; releases outside roll back to the origin.
func (c *Controller) EndOrCancel(final domain.Point, inside bool) (domain.Point, bool) {
	if inside {
		return final, c.End(final)
	}
	return c.Cancel()
}

// Active returns a copy of the current session.
func (c *Controller) Active() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// State reports whether a drag is in progress.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Idle
	}
	return Dragging
}
