package roomsync

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"studyroom/internal/availability"
	"studyroom/internal/domain"
	"studyroom/internal/events"
	"studyroom/internal/logger"
	"studyroom/internal/metrics"
)

const DefaultInterval = 10 * time.Second

// Source is the part of the store the controller polls.
type Source interface {
	ListActive(ctx context.Context, roomID int) ([]domain.Reservation, error)
	ListRooms(ctx context.Context) ([]domain.Room, error)
}

type Options struct {
	Location *time.Location
	Interval time.Duration
	Clock    func() time.Time
	// OnApply runs after every swap of the current snapshot, on the goroutine
	// that made it.
	OnApply func(*availability.Snapshot)
}

// Controller keeps the client's availability snapshot fresh. Every refresh
// takes a sequence number when it is issued; a response is applied only if
// nothing newer has been applied, so a slow reply can never overwrite a fresher
// view.
type Controller struct {
	src      Source
	loc      *time.Location
	interval time.Duration
	clock    func() time.Time
	onApply  func(*availability.Snapshot)

	current atomic.Pointer[availability.Snapshot]
	issued  atomic.Uint64
	trigger chan struct{}
}

func New(src Source, opts Options) *Controller {
	c := &Controller{
		src:      src,
		loc:      opts.Location,
		interval: opts.Interval,
		clock:    opts.Clock,
		onApply:  opts.OnApply,
		trigger:  make(chan struct{}, 1),
	}
	if c.loc == nil {
		c.loc = time.UTC
	}
	if c.interval <= 0 {
		c.interval = DefaultInterval
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	c.current.Store(availability.NewSnapshot(nil, nil, c.loc))
	return c
}

// Snapshot never returns nil. Before the first refresh it is empty and every
// room reads as under maintenance.
func (c *Controller) Snapshot() *availability.Snapshot {
	return c.current.Load()
}

// Refresh fetches the full active list and room statuses and rebuilds the
// index from scratch. On failure the last good snapshot stays in place.
func (c *Controller) Refresh(ctx context.Context) error {
	seq := c.issued.Add(1)

	active, err := c.src.ListActive(ctx, 0)
	if err != nil {
		metrics.RecordRefresh("failed")
		return fmt.Errorf("fetch active reservations: %w", err)
	}
	rooms, err := c.src.ListRooms(ctx)
	if err != nil {
		metrics.RecordRefresh("failed")
		return fmt.Errorf("fetch rooms: %w", err)
	}

	next := availability.NewSnapshot(active, rooms, c.loc)
	next.Seq = seq
	next.SyncedAt = c.clock()

	if !c.apply(next) {
		metrics.RecordRefresh("superseded")
		logger.Debug("discarding superseded refresh", "seq", seq, "current", c.current.Load().Seq)
		return nil
	}

	metrics.RecordRefresh("applied")
	metrics.RecordIndex(next.SlotCount(), len(next.Collisions()))
	for _, col := range next.Collisions() {
		logger.Warn("slot claimed by two reservations",
			"room_id", col.RoomID,
			"slot", col.SlotStart.In(c.loc).Format(time.RFC3339),
			"first", col.First,
			"second", col.Second,
		)
	}
	c.notify(next)
	return nil
}

func (c *Controller) apply(next *availability.Snapshot) bool {
	for {
		cur := c.current.Load()
		if cur.Seq >= next.Seq {
			return false
		}
		if c.current.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// Speculate swaps in fn(current) at once, ahead of the store confirming the
// change. The returned rollback restores the previous snapshot and reports
// true, unless another snapshot has replaced the speculative one in between.
func (c *Controller) Speculate(fn func(*availability.Snapshot) *availability.Snapshot) (rollback func() bool) {
	var prev, next *availability.Snapshot
	for {
		prev = c.current.Load()
		next = fn(prev)
		if c.current.CompareAndSwap(prev, next) {
			break
		}
	}
	c.notify(next)

	return func() bool {
		if !c.current.CompareAndSwap(next, prev) {
			return false
		}
		c.notify(prev)
		return true
	}
}

// Trigger asks Run for an immediate refresh. Requests made while one is already
// pending are merged.
func (c *Controller) Trigger() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes once, then on every tick and every trigger until ctx ends.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refresh(ctx)
		case <-c.trigger:
			c.refresh(ctx)
		}
	}
}

// Start runs the controller in the background. stop cancels it and waits for
// the loop to exit.
func (c *Controller) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// ListenHints turns change events from the broker into refresh triggers. The
// event body is never applied directly.
func (c *Controller) ListenHints(ctx context.Context, msgs <-chan amqp.Delivery) error {
	return events.Listen(ctx, msgs, func(ev events.Event) error {
		logger.Debug("refresh hint", "type", ev.Type, "room_id", ev.RoomID)
		c.Trigger()
		return nil
	})
}

func (c *Controller) refresh(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
		logger.Warn("refresh failed, keeping last snapshot", "error", err)
	}
}

func (c *Controller) notify(s *availability.Snapshot) {
	if c.onApply != nil {
		c.onApply(s)
	}
}
