package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studyroom/internal/availability"
	"studyroom/internal/booking"
	"studyroom/internal/domain"
	"studyroom/internal/logger"
	"studyroom/internal/metrics"
	"studyroom/internal/slot"
)

// Store is the authoritative reservation store as seen from the client.
type Store interface {
	RoomStatus(ctx context.Context, roomID int) (domain.RoomStatus, error)
	Create(ctx context.Context, c booking.Candidate) (*domain.Reservation, error)
	Cancel(ctx context.Context, req domain.CancelRequest, id int64) (*domain.Reservation, error)
	SetRoomStatus(ctx context.Context, roomID int, status domain.RoomStatus) (*domain.Room, error)
}

type Syncer interface {
	Snapshot() *availability.Snapshot
	Trigger()
	Speculate(fn func(*availability.Snapshot) *availability.Snapshot) (rollback func() bool)
}

// History keeps bookings the store confirmed.
type History interface {
	Record(ctx context.Context, r domain.Reservation, bookedAt time.Time) error
	MarkCancelled(ctx context.Context, reservationID int64, at time.Time) (bool, error)
}

type Options struct {
	Location *time.Location
	DailyCap time.Duration
	History  History
	Clock    func() time.Time
}

// Manager drives create and cancel from the client. Local checks run against
// the current snapshot before anything goes over the wire; the store decides.
// Nothing is inserted into the snapshot optimistically: after every write the
// syncer is asked for a fresh one.
type Manager struct {
	store     Store
	sync      Syncer
	history   History
	validator booking.Validator
	loc       *time.Location
	clock     func() time.Time
}

func NewManager(store Store, sync Syncer, opts Options) *Manager {
	m := &Manager{
		store:   store,
		sync:    sync,
		history: opts.History,
		loc:     opts.Location,
		clock:   opts.Clock,
	}
	if m.loc == nil {
		m.loc = time.UTC
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	m.validator = booking.NewValidator(m.loc, opts.DailyCap)
	return m
}

// SlotStates resolves every slot of day for a room against the current
// snapshot. An empty day means today.
func (m *Manager) SlotStates(roomID int, day string) ([]slot.SlotState, error) {
	now := m.clock()
	grid := slot.NewGrid(now, m.loc)
	if day != "" {
		g, err := slot.ParseDay(day, m.loc)
		if err != nil {
			return nil, err
		}
		grid = g
	}
	return slot.ResolveDay(grid, now, m.sync.Snapshot().Room(roomID), true), nil
}

func (m *Manager) ValidateCandidate(c booking.Candidate) error {
	err := m.validator.Validate(c, m.sync.Snapshot(), m.clock())
	if reason, ok := domain.ReasonOf(err); ok {
		metrics.RecordRejection(string(reason), "local")
	}
	return err
}

func (m *Manager) StartOptions(roomID int, day string) ([]time.Time, error) {
	now := m.clock()
	grid := slot.NewGrid(now, m.loc)
	if day != "" {
		g, err := slot.ParseDay(day, m.loc)
		if err != nil {
			return nil, err
		}
		grid = g
	}
	return m.validator.StartOptions(m.sync.Snapshot(), roomID, grid, now), nil
}

func (m *Manager) EndOptions(roomID int, start time.Time) []time.Time {
	return m.validator.EndOptions(m.sync.Snapshot(), roomID, start)
}

// SubmitBooking validates c locally and, if that passes, asks the store to
// create it. A refusal from the store keeps the reason the store gave and is
// flagged Authoritative.
func (m *Manager) SubmitBooking(ctx context.Context, c booking.Candidate) (*domain.Reservation, error) {
	if err := m.ValidateCandidate(c); err != nil {
		return nil, err
	}
	if err := m.checkRoomStatus(ctx, c.RoomID); err != nil {
		return nil, err
	}

	res, err := m.store.Create(ctx, c)
	if err != nil {
		var re *domain.RejectionError
		if errors.As(err, &re) {
			metrics.RecordRejection(string(re.Reason), "store")
			if re.Reason != domain.ReasonNetworkFailure {
				m.sync.Trigger()
			}
			return nil, err
		}
		return nil, fmt.Errorf("submit booking: %w", err)
	}

	m.sync.Trigger()
	logger.Info("booking confirmed",
		"reservation_id", res.ID,
		"room_id", res.RoomID,
		"start", res.StartTime.In(m.loc).Format(time.RFC3339),
	)

	if m.history != nil {
		if err := m.history.Record(ctx, *res, m.clock()); err != nil {
			logger.Warn("failed to record booking history", "reservation_id", res.ID, "error", err)
		}
	}
	return res, nil
}

// checkRoomStatus asks the store for the room's status just before a create,
// since the snapshot can be a poll behind an admin change. A failed lookup
// other than a network failure is left for the create to settle.
func (m *Manager) checkRoomStatus(ctx context.Context, roomID int) error {
	status, err := m.store.RoomStatus(ctx, roomID)
	if err != nil {
		if reason, ok := domain.ReasonOf(err); ok && reason == domain.ReasonNetworkFailure {
			metrics.RecordRejection(string(reason), "store")
			return err
		}
		logger.Warn("room status check failed", "room_id", roomID, "error", err)
		return nil
	}
	if status.Bookable() {
		return nil
	}

	metrics.RecordRejection(string(domain.ReasonRoomUnavailable), "store")
	m.sync.Trigger()
	rej := domain.Reject(domain.ReasonRoomUnavailable, "room %d is %s", roomID, status)
	rej.Authoritative = true
	return rej
}

// CancelBooking checks req against the snapshot when the reservation is in it,
// then asks the store. Reservations the snapshot does not hold are left for the
// store to judge.
func (m *Manager) CancelBooking(ctx context.Context, req domain.CancelRequest, reservationID int64) (*domain.Reservation, error) {
	if r, ok := m.sync.Snapshot().Reservation(reservationID); ok {
		if err := booking.AuthorizeCancel(req, r, m.clock()); err != nil {
			if reason, ok := domain.ReasonOf(err); ok {
				metrics.RecordRejection(string(reason), "local")
			}
			return nil, err
		}
	}

	res, err := m.store.Cancel(ctx, req, reservationID)
	if err != nil {
		if reason, ok := domain.ReasonOf(err); ok {
			metrics.RecordRejection(string(reason), "store")
			if reason != domain.ReasonNetworkFailure {
				m.sync.Trigger()
			}
			return nil, err
		}
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	m.sync.Trigger()
	logger.Info("booking cancelled",
		"reservation_id", res.ID,
		"authority", req.Authority(),
	)

	if m.history != nil {
		if _, err := m.history.MarkCancelled(ctx, res.ID, m.clock()); err != nil {
			logger.Warn("failed to mark booking cancelled in history", "reservation_id", res.ID, "error", err)
		}
	}
	return res, nil
}

// SetRoomStatus shows the new status at once and puts the previous one back if
// the store refuses. A rollback is skipped when a newer snapshot already
// replaced the speculative one.
func (m *Manager) SetRoomStatus(ctx context.Context, roomID int, status domain.RoomStatus) (*domain.Room, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown room status %q", status)
	}

	rollback := m.sync.Speculate(func(cur *availability.Snapshot) *availability.Snapshot {
		return cur.WithRoomStatus(roomID, status)
	})

	rm, err := m.store.SetRoomStatus(ctx, roomID, status)
	if err != nil {
		if !rollback() {
			logger.Debug("room status rollback skipped, snapshot already replaced", "room_id", roomID)
		}
		return nil, fmt.Errorf("set room %d status: %w", roomID, err)
	}

	m.sync.Trigger()
	return rm, nil
}
