package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/MarcoPoloResearchLab/basket/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	querySubtree    = "path = ? OR (path >= ? AND path < ?)"
	queryPathIn     = "path IN ?"
	orderPathAsc    = "path ASC"
	insertBatchSize = 200
)

var (
	errMissingDatabase = errors.New("gateway: database handle is required")
	// ErrConditionFailed indicates that a guarded multi-path write found an unexpected state.
	ErrConditionFailed = errors.New("gateway: write condition failed")
)

// Config describes the dependencies of a Gateway.
type Config struct {
	Database *gorm.DB
	Logger   *zap.Logger
	Metrics  *metrics.Registry
}

// Gateway is a path-addressed tree store with live subscriptions. Values are flattened into
// one row per scalar leaf; every committed write re-delivers the current value to each
// overlapping subscription on the gateway's Loop.
type Gateway struct {
	db         *gorm.DB
	loop       *Loop
	dispatcher *dispatcher
	logger     *zap.Logger
	metrics    *metrics.Registry
}

// New constructs a Gateway over an already migrated database.
func New(cfg Config) (*Gateway, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sqlDB, err := cfg.Database.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return &Gateway{
		db:         cfg.Database,
		loop:       NewLoop(logger),
		dispatcher: newDispatcher(),
		logger:     logger,
		metrics:    cfg.Metrics,
	}, nil
}

// Loop returns the delivery loop that runs every subscription callback.
func (g *Gateway) Loop() *Loop {
	return g.loop
}

// Close stops deliveries. Pending deliveries are drained first.
func (g *Gateway) Close() {
	g.loop.Close()
}

// Create stores value at path, replacing any existing subtree.
func (g *Gateway) Create(ctx context.Context, path Path, value any) error {
	return g.UpdateMultiple(ctx, map[Path]Update{path: Set(value)})
}

// Update merges the top-level fields of value into path. Fields that encode to null are removed.
// Non-object values replace the node.
func (g *Gateway) Update(ctx context.Context, path Path, value any) error {
	generic, err := normalize(value)
	if err != nil {
		return err
	}
	object, ok := generic.(map[string]any)
	if !ok {
		return g.UpdateMultiple(ctx, map[Path]Update{path: Set(generic)})
	}
	updates := make(map[Path]Update, len(object))
	for key, child := range object {
		if err := validateSegment(key); err != nil {
			return fmt.Errorf("%w: key %q", ErrNotEncodable, key)
		}
		if child == nil {
			updates[path.Child(key)] = Delete()
			continue
		}
		updates[path.Child(key)] = Set(child)
	}
	if len(updates) == 0 {
		return nil
	}
	return g.UpdateMultiple(ctx, updates)
}

// Delete removes path and its subtree.
func (g *Gateway) Delete(ctx context.Context, path Path) error {
	return g.UpdateMultiple(ctx, map[Path]Update{path: Delete()})
}

// UpdateMultiple applies every update atomically. Shallower paths are applied first so an
// update below another update's path lands on top of it. Conditions are evaluated inside
// the same transaction; when one fails nothing is written and ErrConditionFailed is returned.
func (g *Gateway) UpdateMultiple(ctx context.Context, updates map[Path]Update, conditions ...Condition) error {
	if len(updates) == 0 {
		return nil
	}
	paths := make([]Path, 0, len(updates))
	leavesByPath := make(map[Path]map[Path]string, len(updates))
	for path, update := range updates {
		if err := path.Validate(); err != nil {
			return err
		}
		paths = append(paths, path)
		if update.IsDelete() {
			continue
		}
		generic, err := normalize(update.Value())
		if err != nil {
			return err
		}
		leaves := make(map[Path]string)
		if err := flatten(path, generic, leaves); err != nil {
			return err
		}
		leavesByPath[path] = leaves
	}
	for _, condition := range conditions {
		if err := condition.path.Validate(); err != nil {
			return err
		}
	}
	sort.Slice(paths, func(i, j int) bool {
		left, right := len(paths[i].Segments()), len(paths[j].Segments())
		if left != right {
			return left < right
		}
		return paths[i] < paths[j]
	})

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, condition := range conditions {
			present, err := subtreePresent(tx, condition.path)
			if err != nil {
				return err
			}
			if present != condition.exists {
				return &ConditionError{Path: condition.path, Exists: condition.exists}
			}
		}
		for _, path := range paths {
			if err := replaceSubtree(tx, path, leavesByPath[path]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConditionFailed) {
			g.logger.Debug("gateway write rejected", zap.Error(err))
		} else {
			g.logger.Error("gateway write failed", zap.Int("paths", len(paths)), zap.Error(err))
		}
		return err
	}

	g.metrics.ObserveWrite()
	for _, subscription := range g.dispatcher.affected(paths) {
		g.schedule(subscription)
	}
	return nil
}

// Get reads the current value at path in its generic JSON shape; nil when absent.
func (g *Gateway) Get(ctx context.Context, path Path) (any, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	return g.read(ctx, path)
}

// Subscribe delivers the generic value at path now and after every overlapping write.
// Deliveries are coalesced: a subscription waiting on the loop is not queued twice and reads
// the value current at delivery time.
func (g *Gateway) Subscribe(path Path, deliver func(raw any)) *Subscription {
	subscription := &Subscription{path: path, deliver: deliver}
	if err := path.Validate(); err != nil {
		g.logger.Warn("gateway subscription rejected", zap.String("path", path.String()), zap.Error(err))
		subscription.released.Store(true)
		g.loop.Post(func() { deliver(nil) })
		return subscription
	}
	subscription.onRelease = g.unsubscribe
	g.dispatcher.register(subscription)
	g.metrics.SubscriptionOpened()
	g.schedule(subscription)
	return subscription
}

// ActiveSubscriptions returns the number of unreleased subscriptions.
func (g *Gateway) ActiveSubscriptions() int {
	return g.dispatcher.count()
}

func (g *Gateway) unsubscribe(subscription *Subscription) {
	g.dispatcher.unregister(subscription)
	g.metrics.SubscriptionClosed()
}

func (g *Gateway) schedule(subscription *Subscription) {
	if subscription.Released() {
		return
	}
	if !subscription.scheduled.CompareAndSwap(false, true) {
		return
	}
	g.loop.Post(func() {
		subscription.scheduled.Store(false)
		if subscription.Released() {
			return
		}
		raw, err := g.read(context.Background(), subscription.path)
		if err != nil {
			g.logger.Warn("gateway delivery read failed", zap.String("path", subscription.path.String()), zap.Error(err))
			return
		}
		if subscription.Released() {
			return
		}
		g.metrics.ObserveDelivery()
		subscription.deliver(raw)
	})
}

func (g *Gateway) read(ctx context.Context, path Path) (any, error) {
	lower, upper := path.subtreeBounds()
	var nodes []Node
	if err := g.db.WithContext(ctx).
		Where(querySubtree, path.String(), lower, upper).
		Order(orderPathAsc).
		Find(&nodes).Error; err != nil {
		return nil, err
	}
	return assemble(path, nodes)
}

func subtreePresent(tx *gorm.DB, path Path) (bool, error) {
	lower, upper := path.subtreeBounds()
	var count int64
	if err := tx.Model(&Node{}).Where(querySubtree, path.String(), lower, upper).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func replaceSubtree(tx *gorm.DB, path Path, leaves map[Path]string) error {
	if ancestors := path.ancestors(); len(ancestors) > 0 {
		names := make([]string, 0, len(ancestors))
		for _, ancestor := range ancestors {
			names = append(names, ancestor.String())
		}
		if err := tx.Where(queryPathIn, names).Delete(&Node{}).Error; err != nil {
			return err
		}
	}
	lower, upper := path.subtreeBounds()
	if err := tx.Where(querySubtree, path.String(), lower, upper).Delete(&Node{}).Error; err != nil {
		return err
	}
	if len(leaves) == 0 {
		return nil
	}
	nodes := make([]Node, 0, len(leaves))
	for leafPath, value := range leaves {
		nodes = append(nodes, Node{Path: leafPath.String(), Value: value})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Path < nodes[j].Path })
	return tx.CreateInBatches(nodes, insertBatchSize).Error
}
