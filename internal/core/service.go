package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"roomcore/internal/drag"
	"roomcore/internal/inventory"
	"roomcore/internal/placement"
	"roomcore/internal/scene"
	"roomcore/pkg/domain"
)

// DefaultSnapshotKey names the persisted room when no key is configured.
const DefaultSnapshotKey = "room"

var (
	// ErrNoActiveDrag is returned by drag operations issued while Idle.
	ErrNoActiveDrag = errors.New("no drag in progress")
	// ErrDragInProgress is returned when a second drag is started.
	ErrDragInProgress = errors.New("drag already in progress")
	// ErrInvalidViewport is returned for viewports without area.
	ErrInvalidViewport = errors.New("viewport has no area")
)

// Service is the placement facade: it checks ownership and rules, then
// delegates to the placement store while recording audit, metrics and
// traces for every operation.
type Service struct {
	registry  *scene.Registry
	store     *placement.Store
	flusher   *placement.Flusher
	gateway   domain.PersistenceGateway
	inventory *inventory.Bridge
	drag      *drag.Controller
	engine    *RulesEngine
	key       string

	clock   Clock
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer

	closeOnce sync.Once
	closeErr  error
}

type serviceOptions struct {
	clock        Clock
	logger       Logger
	audit        AuditRecorder
	metrics      MetricsRecorder
	tracer       Tracer
	engine       *RulesEngine
	key          string
	storeOpts    []placement.Option
	flushTimeout time.Duration
}

// Option customises a Service.
type Option func(*serviceOptions)

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:   systemClock{},
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		engine:  NewDefaultRulesEngine(),
		key:     DefaultSnapshotKey,
	}
}

// WithClock overrides the time source used for placements and audit entries.
func WithClock(clock Clock) Option {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger Logger) Option {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAuditRecorder receives one entry per mutating operation.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.audit = recorder
		}
	}
}

// WithMetricsRecorder observes every operation.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer wraps every operation in a span.
func WithTracer(tracer Tracer) Option {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithRulesEngine replaces the default rules. A nil engine disables rules.
func WithRulesEngine(engine *RulesEngine) Option {
	return func(o *serviceOptions) {
		o.engine = engine
	}
}

// WithSnapshotKey sets the key the room is persisted under.
func WithSnapshotKey(key string) Option {
	return func(o *serviceOptions) {
		if key != "" {
			o.key = key
		}
	}
}

// WithStoreOptions forwards options to the placement store.
func WithStoreOptions(opts ...placement.Option) Option {
	return func(o *serviceOptions) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

// WithFlushTimeout bounds each background snapshot write.
func WithFlushTimeout(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.flushTimeout = d
	}
}

// NewService wires the registry, a placement store flushed to gateway, the
// inventory bridge over provider and a drag controller.
func NewService(reg *scene.Registry, gateway domain.PersistenceGateway, provider domain.InventoryProvider, opts ...Option) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}

	storeOpts := append([]placement.Option{placement.WithClock(o.clock.Now)}, o.storeOpts...)
	store := placement.New(reg, storeOpts...)
	flushOpts := []placement.FlusherOption{placement.WithFlushLogger(o.logger)}
	if o.flushTimeout > 0 {
		flushOpts = append(flushOpts, placement.WithFlushTimeout(o.flushTimeout))
	}
	flusher := placement.NewFlusher(store, gateway, o.key, flushOpts...)
	store.SetScheduler(flusher)

	return &Service{
		registry:  reg,
		store:     store,
		flusher:   flusher,
		gateway:   gateway,
		inventory: inventory.NewBridge(provider, store),
		drag:      drag.New(store),
		engine:    o.engine,
		key:       o.key,
		clock:     o.clock,
		logger:    o.logger,
		audit:     o.audit,
		metrics:   o.metrics,
		tracer:    o.tracer,
	}
}

// Registry returns the scene registry.
func (s *Service) Registry() *scene.Registry { return s.registry }

// Store returns the underlying placement store.
func (s *Service) Store() *placement.Store { return s.store }

// SnapshotKey returns the key the room is persisted under.
func (s *Service) SnapshotKey() string { return s.key }

// FlushStats reports background snapshot write counters.
func (s *Service) FlushStats() placement.FlushStats { return s.flusher.Stats() }

type auditSubject struct {
	action     domain.Action
	instanceID string
	itemID     string
	zoneID     string
}

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) (auditSubject, error)) error {
	ctx, span := s.tracer.Start(ctx, op)
	started := time.Now()
	subject, err := fn(ctx)
	elapsed := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, elapsed)

	var violation domain.RuleViolationError
	switch {
	case err == nil:
		s.logger.Debug("service operation completed", "operation", op, "duration", elapsed)
	case errors.As(err, &violation):
		s.logger.Warn("service operation blocked", "operation", op, "violations", len(violation.Result.Violations))
	case errors.Is(err, domain.ErrInvalidPosition):
		s.logger.Warn("service operation rejected", "operation", op, "error", err)
	default:
		s.logger.Error("service operation failed", "operation", op, "error", err)
	}

	if subject.action != "" {
		entry := AuditEntry{
			Operation:  op,
			Action:     subject.action,
			InstanceID: subject.instanceID,
			ItemID:     subject.itemID,
			ZoneID:     subject.zoneID,
			Status:     AuditStatusSuccess,
			Duration:   elapsed,
			Timestamp:  s.clock.Now(),
		}
		if err != nil {
			entry.Status = AuditStatusError
			entry.Error = err.Error()
		}
		s.audit.Record(ctx, entry)
	}
	return err
}

type storeView struct {
	reg   *scene.Registry
	store *placement.Store
}

func (v storeView) Zone(zoneID string) (domain.Zone, error) { return v.reg.ZoneByID(zoneID) }

func (v storeView) ItemsInZone(zoneID string) []domain.PlacedItem { return v.store.ItemsByZone(zoneID) }

func (s *Service) evaluate(ctx context.Context, change domain.Change) (domain.Result, error) {
	res, err := s.engine.Evaluate(ctx, storeView{reg: s.registry, store: s.store}, change)
	if err != nil {
		return domain.Result{}, fmt.Errorf("evaluate rules: %w", err)
	}
	if res.HasBlocking() {
		return res, domain.RuleViolationError{Result: res}
	}
	for _, v := range res.Violations {
		switch v.Severity {
		case domain.SeverityWarn:
			s.logger.Warn("placement rule warning", "rule", v.Rule, "zone", v.ZoneID, "item", v.ItemID, "message", v.Message)
		default:
			s.logger.Info("placement rule note", "rule", v.Rule, "zone", v.ZoneID, "item", v.ItemID, "message", v.Message)
		}
	}
	return res, nil
}

func (s *Service) existing(instanceID string) (domain.PlacedItem, error) {
	item, ok := s.store.Item(instanceID)
	if !ok {
		return domain.PlacedItem{}, domain.NotFoundError{Kind: domain.KindItem, ID: instanceID}
	}
	return item, nil
}

// PlaceItem places an owned catalog item. An empty zoneID selects the
// item's default zone and a nil pos the zone default with jitter. A pos
// outside [0,100] fails with domain.ErrInvalidPosition.
func (s *Service) PlaceItem(ctx context.Context, itemID, zoneID string, pos *domain.Point) (domain.PlacedItem, domain.Result, error) {
	var (
		placed domain.PlacedItem
		res    domain.Result
	)
	err := s.run(ctx, "place_item", func(ctx context.Context) (auditSubject, error) {
		subject := auditSubject{action: domain.ActionPlace, itemID: itemID, zoneID: zoneID}
		if pos != nil && !pos.InRange() {
			return subject, fmt.Errorf("place %s at %v: %w", itemID, *pos, domain.ErrInvalidPosition)
		}
		item, err := s.inventory.Lookup(ctx, itemID)
		if err != nil {
			return subject, err
		}
		target := zoneID
		if target == "" {
			if target, err = s.registry.DefaultZoneForItem(itemID); err != nil {
				return subject, err
			}
		}
		target = s.registry.ResolveAlias(target)
		subject.zoneID = target
		res, err = s.evaluate(ctx, domain.Change{
			Action: domain.ActionPlace,
			Item:   domain.SnapshotOf(item),
			ZoneID: target,
			After:  &domain.PlacedItem{ItemID: item.ID, ZoneID: target},
		})
		if err != nil {
			return subject, err
		}
		placed, err = s.store.PlaceItem(item, target, pos)
		subject.instanceID = placed.InstanceID
		return subject, err
	})
	return placed, res, err
}

// UpdateItemPosition moves an instance to p, re-detecting its zone. Points
// that are not finite or lie outside [0,100] are rejected.
func (s *Service) UpdateItemPosition(ctx context.Context, instanceID string, p domain.Point) (domain.PlacedItem, domain.Result, error) {
	var (
		updated domain.PlacedItem
		res     domain.Result
	)
	err := s.run(ctx, "update_item_position", func(ctx context.Context) (auditSubject, error) {
		subject := auditSubject{action: domain.ActionMove, instanceID: instanceID}
		if !p.InRange() {
			return subject, fmt.Errorf("move %s to %v: %w", instanceID, p, domain.ErrInvalidPosition)
		}
		before, err := s.existing(instanceID)
		if err != nil {
			return subject, err
		}
		subject.itemID = before.ItemID
		subject.zoneID = s.predictZone(before, p)
		if res, err = s.evaluate(ctx, domain.Change{
			Action: domain.ActionMove,
			Item:   before.Snapshot,
			ZoneID: subject.zoneID,
			Before: &before,
		}); err != nil {
			return subject, err
		}
		if !s.store.UpdateItemPosition(instanceID, p) {
			return subject, domain.NotFoundError{Kind: domain.KindItem, ID: instanceID}
		}
		updated, _ = s.store.Item(instanceID)
		subject.zoneID = updated.ZoneID
		return subject, nil
	})
	return updated, res, err
}

func (s *Service) predictZone(item domain.PlacedItem, p domain.Point) string {
	sceneID, err := s.registry.SceneIDForZone(item.ZoneID)
	if err != nil {
		return item.ZoneID
	}
	if zoneID, ok := s.registry.DetectZone(sceneID, p.X, p.Y); ok {
		return zoneID
	}
	return item.ZoneID
}

// MoveItemToZone reassigns an instance to zoneID at the zone default.
func (s *Service) MoveItemToZone(ctx context.Context, instanceID, zoneID string) (domain.PlacedItem, domain.Result, error) {
	var (
		moved domain.PlacedItem
		res   domain.Result
	)
	err := s.run(ctx, "move_item_to_zone", func(ctx context.Context) (auditSubject, error) {
		subject := auditSubject{action: domain.ActionZone, instanceID: instanceID, zoneID: zoneID}
		before, err := s.existing(instanceID)
		if err != nil {
			return subject, err
		}
		subject.itemID = before.ItemID
		zone, err := s.registry.ZoneByID(zoneID)
		if err != nil {
			return subject, err
		}
		subject.zoneID = zone.ID
		if res, err = s.evaluate(ctx, domain.Change{
			Action: domain.ActionZone,
			Item:   before.Snapshot,
			ZoneID: zone.ID,
			Before: &before,
		}); err != nil {
			return subject, err
		}
		if !s.store.MoveItemToZone(instanceID, zone.ID) {
			return subject, domain.NotFoundError{Kind: domain.KindItem, ID: instanceID}
		}
		moved, _ = s.store.Item(instanceID)
		return subject, nil
	})
	return moved, res, err
}

// RemoveItem deletes an instance and returns it.
func (s *Service) RemoveItem(ctx context.Context, instanceID string) (domain.PlacedItem, error) {
	var removed domain.PlacedItem
	err := s.run(ctx, "remove_item", func(ctx context.Context) (auditSubject, error) {
		subject := auditSubject{action: domain.ActionRemove, instanceID: instanceID}
		before, err := s.existing(instanceID)
		if err != nil {
			return subject, err
		}
		subject.itemID = before.ItemID
		subject.zoneID = before.ZoneID
		if _, err := s.evaluate(ctx, domain.Change{Action: domain.ActionRemove, Item: before.Snapshot, Before: &before}); err != nil {
			return subject, err
		}
		if active, ok := s.drag.Active(); ok && active.InstanceID == instanceID {
			s.drag.Cancel()
		}
		if !s.store.RemoveItem(instanceID) {
			return subject, domain.NotFoundError{Kind: domain.KindItem, ID: instanceID}
		}
		removed = before
		return subject, nil
	})
	return removed, err
}

// Items returns every placed instance in insertion order.
func (s *Service) Items() []domain.PlacedItem { return s.store.AllItems() }

// ItemsByZone returns the instances in zoneID; legacy ids are accepted.
func (s *Service) ItemsByZone(zoneID string) []domain.PlacedItem { return s.store.ItemsByZone(zoneID) }

// Item returns one instance.
func (s *Service) Item(instanceID string) (domain.PlacedItem, error) { return s.existing(instanceID) }

// UnplacedFurniture lists owned furniture with no placed instance.
func (s *Service) UnplacedFurniture(ctx context.Context) ([]domain.CatalogItem, error) {
	var out []domain.CatalogItem
	err := s.run(ctx, "unplaced_furniture", func(ctx context.Context) (auditSubject, error) {
		var err error
		out, err = s.inventory.UnplacedFurniture(ctx)
		return auditSubject{}, err
	})
	return out, err
}

// StartDrag begins dragging an instance from the pointer position origin.
func (s *Service) StartDrag(ctx context.Context, instanceID string, origin drag.ScreenPoint) (drag.Session, error) {
	var session drag.Session
	err := s.run(ctx, "start_drag", func(context.Context) (auditSubject, error) {
		item, err := s.existing(instanceID)
		if err != nil {
			return auditSubject{}, err
		}
		if !s.drag.Start(item, origin) {
			return auditSubject{}, ErrDragInProgress
		}
		session, _ = s.drag.Active()
		return auditSubject{}, nil
	})
	return session, err
}

// UpdateDrag maps the pointer into scene coordinates. Nothing is persisted.
func (s *Service) UpdateDrag(ctx context.Context, p drag.ScreenPoint, viewport drag.Rect) (domain.Point, error) {
	var pos domain.Point
	err := s.run(ctx, "update_drag", func(context.Context) (auditSubject, error) {
		if s.drag.State() != drag.Dragging {
			return auditSubject{}, ErrNoActiveDrag
		}
		var ok bool
		if pos, ok = s.drag.Update(p, viewport); !ok {
			if s.drag.State() != drag.Dragging {
				return auditSubject{}, ErrNoActiveDrag
			}
			if viewport.Width <= 0 || viewport.Height <= 0 {
				return auditSubject{}, ErrInvalidViewport
			}
			return auditSubject{}, fmt.Errorf("pointer %v: %w", p, domain.ErrInvalidPosition)
		}
		return auditSubject{}, nil
	})
	return pos, err
}

// EndDrag commits final as the dragged instance's position. A blocked
// commit abandons the drag and leaves the instance where it was. An invalid
// final position is rejected and the drag stays active.
func (s *Service) EndDrag(ctx context.Context, final domain.Point) (domain.PlacedItem, domain.Result, error) {
	var (
		updated domain.PlacedItem
		res     domain.Result
	)
	err := s.run(ctx, "end_drag", func(ctx context.Context) (auditSubject, error) {
		session, ok := s.drag.Active()
		if !ok {
			return auditSubject{}, ErrNoActiveDrag
		}
		subject := auditSubject{action: domain.ActionMove, instanceID: session.InstanceID}
		if !final.InRange() {
			return subject, fmt.Errorf("release %s at %v: %w", session.InstanceID, final, domain.ErrInvalidPosition)
		}
		before, err := s.existing(session.InstanceID)
		if err != nil {
			s.drag.Cancel()
			return subject, err
		}
		subject.itemID = before.ItemID
		subject.zoneID = s.predictZone(before, final)
		if res, err = s.evaluate(ctx, domain.Change{
			Action: domain.ActionMove,
			Item:   before.Snapshot,
			ZoneID: subject.zoneID,
			Before: &before,
		}); err != nil {
			s.drag.Cancel()
			return subject, err
		}
		if !s.drag.End(final) {
			return subject, domain.NotFoundError{Kind: domain.KindItem, ID: session.InstanceID}
		}
		updated, _ = s.store.Item(session.InstanceID)
		subject.zoneID = updated.ZoneID
		return subject, nil
	})
	return updated, res, err
}

// CancelDrag abandons the drag and returns the instance's unchanged
// position.
func (s *Service) CancelDrag(ctx context.Context) (domain.Point, error) {
	var origin domain.Point
	err := s.run(ctx, "cancel_drag", func(context.Context) (auditSubject, error) {
		var ok bool
		if origin, ok = s.drag.Cancel(); !ok {
			return auditSubject{}, ErrNoActiveDrag
		}
		return auditSubject{}, nil
	})
	return origin, err
}

// DragSession returns the in-flight drag, if any.
func (s *Service) DragSession() (drag.Session, bool) { return s.drag.Active() }

// Load hydrates the store from the gateway and returns the number of
// migrated records. A missing snapshot leaves the room empty.
func (s *Service) Load(ctx context.Context) (int, error) {
	var migrated int
	err := s.run(ctx, "load_snapshot", func(ctx context.Context) (auditSubject, error) {
		state, ok, err := s.gateway.Load(ctx, s.key)
		if err != nil {
			return auditSubject{}, fmt.Errorf("load snapshot %s: %w", s.key, err)
		}
		if !ok {
			s.logger.Info("no snapshot found", "key", s.key)
			return auditSubject{}, nil
		}
		migrated = s.store.Restore(state)
		s.logger.Info("snapshot loaded", "key", s.key, "items", s.store.Len(), "version", state.Version, "migrated", migrated)
		return auditSubject{}, nil
	})
	return migrated, err
}

// Save writes the current state synchronously.
func (s *Service) Save(ctx context.Context) error {
	return s.run(ctx, "save_snapshot", func(ctx context.Context) (auditSubject, error) {
		return auditSubject{}, s.flusher.Flush(ctx)
	})
}

type snapshotDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Reset empties the room and drops the persisted snapshot. Gateways that
// cannot delete keep an empty snapshot.
func (s *Service) Reset(ctx context.Context) error {
	return s.run(ctx, "reset", func(ctx context.Context) (auditSubject, error) {
		s.drag.Cancel()
		s.store.Restore(domain.RoomState{Version: domain.StateVersion})
		// Flush waits for any in-flight write, so the delete is last.
		if err := s.flusher.Flush(ctx); err != nil {
			return auditSubject{}, err
		}
		if d, ok := s.gateway.(snapshotDeleter); ok {
			if err := d.Delete(ctx, s.key); err != nil {
				return auditSubject{}, fmt.Errorf("delete snapshot %s: %w", s.key, err)
			}
		}
		return auditSubject{}, nil
	})
}

// Close flushes pending state, stops the flusher and releases the gateway.
// Subsequent calls return the first result.
func (s *Service) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		var errs []error
		if err := s.flusher.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close flusher: %w", err))
		}
		if c, ok := s.gateway.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close gateway: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
