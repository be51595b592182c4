package reservation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"studyroom/internal/availability"
	"studyroom/internal/booking"
	"studyroom/internal/domain"
	"studyroom/internal/events"
	"studyroom/internal/logger"
	"studyroom/internal/metrics"
	"studyroom/internal/room"
	"studyroom/internal/slot"
)

var (
	ErrInvalidGroupBy = errors.New("group_by must be 'day' or 'room'")
	ErrInvalidDate    = errors.New("date must be YYYY-MM-DD")
)

// Cache holds recently listed active reservations. SetActive takes the
// generation read before the list was queried; Invalidate advances it.
type Cache interface {
	Generation(ctx context.Context) (int64, error)
	GetActive(ctx context.Context, roomID int) ([]domain.Reservation, bool, error)
	SetActive(ctx context.Context, roomID int, gen int64, rs []domain.Reservation) error
	Invalidate(ctx context.Context, roomID int) error
}

type Service interface {
	ListActive(ctx context.Context, roomID int) ([]domain.Reservation, error)
	ListMine(ctx context.Context, userID int) ([]domain.Reservation, error)
	Validate(ctx context.Context, c booking.Candidate) error
	Create(ctx context.Context, c booking.Candidate) (*domain.Reservation, error)
	Cancel(ctx context.Context, req domain.CancelRequest, id int64) (*domain.Reservation, error)
	SlotStates(ctx context.Context, roomID int, day string) (*SlotStatesResponse, error)
	Stats(ctx context.Context, groupBy string, from, to time.Time) (interface{}, error)
}

type Options struct {
	Location  *time.Location
	DailyCap  time.Duration
	Cache     Cache
	Publisher events.Publisher
	Clock     func() time.Time
}

type service struct {
	repo      Repository
	rooms     room.Repository
	cache     Cache
	publisher events.Publisher
	validator booking.Validator
	loc       *time.Location
	clock     func() time.Time
	tracer    trace.Tracer
}

func NewService(repo Repository, rooms room.Repository, opts Options) Service {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	s := &service{
		repo:      repo,
		rooms:     rooms,
		cache:     opts.Cache,
		publisher: opts.Publisher,
		validator: booking.NewValidator(loc, opts.DailyCap),
		loc:       loc,
		clock:     opts.Clock,
		tracer:    otel.Tracer("studyroom/reservation"),
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// since is the start of the current local day. Rows that ended earlier today
// still count toward the daily cap and still render as past slots.
func (s *service) since() time.Time {
	return slot.NewGrid(s.clock(), s.loc).Start()
}

func (s *service) ListActive(ctx context.Context, roomID int) ([]domain.Reservation, error) {
	fill := false
	var gen int64
	if s.cache != nil {
		if rs, ok, err := s.cache.GetActive(ctx, roomID); err != nil {
			logger.Warn("active reservation cache unavailable", "error", err)
		} else if ok {
			return rs, nil
		}
		g, err := s.cache.Generation(ctx)
		if err != nil {
			logger.Warn("active reservation cache generation unavailable", "error", err)
		} else {
			fill, gen = true, g
		}
	}

	rs, err := s.repo.ListActive(ctx, roomID, s.since())
	if err != nil {
		return nil, fmt.Errorf("list active reservations: %w", err)
	}

	if fill {
		if err := s.cache.SetActive(ctx, roomID, gen, rs); err != nil {
			logger.Warn("failed to cache active reservations", "room_id", roomID, "error", err)
		}
	}
	return rs, nil
}

func (s *service) ListMine(ctx context.Context, userID int) ([]domain.Reservation, error) {
	return s.repo.ListByUser(ctx, userID, s.clock())
}

func (s *service) snapshot(ctx context.Context) (*availability.Snapshot, error) {
	active, err := s.ListActive(ctx, 0)
	if err != nil {
		return nil, err
	}
	rooms, err := s.rooms.GetAllRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return availability.NewSnapshot(active, rooms, s.loc), nil
}

func (s *service) Validate(ctx context.Context, c booking.Candidate) error {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	return s.validator.Validate(c, snap, s.clock())
}

func (s *service) Create(ctx context.Context, c booking.Candidate) (*domain.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Create", trace.WithAttributes(
		attribute.Int("room.id", c.RoomID),
		attribute.Int("user.id", c.UserID),
		attribute.String("start", c.Start.Format(time.RFC3339)),
	))
	defer span.End()

	if err := s.Validate(ctx, c); err != nil && !dependsOnRows(err) {
		s.reject(span, err)
		return nil, err
	}

	now := s.clock()
	guard := func(existing []domain.Reservation, rm domain.Room) error {
		view := availability.NewSnapshot(existing, []domain.Room{rm}, s.loc)
		return s.validator.Validate(c, view, now)
	}

	res, err := s.repo.Create(ctx, c, s.window(c), guard)
	if err != nil {
		var re *domain.RejectionError
		if errors.As(err, &re) {
			re.Authoritative = true
			s.reject(span, re)
			return nil, re
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	span.SetAttributes(attribute.Int64("reservation.id", res.ID))
	metrics.RecordReservation(strconv.Itoa(res.RoomID), strconv.Itoa(int(res.Duration().Minutes())))
	logger.Info("reservation created",
		"reservation_id", res.ID,
		"room_id", res.RoomID,
		"user_id", res.UserID,
		"start", res.StartTime.In(s.loc).Format(time.RFC3339),
		"end", res.EndTime.In(s.loc).Format(time.RFC3339),
	)

	s.changed(ctx, events.RKReservationCreated, res)
	return res, nil
}

// dependsOnRows reports whether err is a slot-conflict or daily-cap rejection. The
// pre-check may read a cached list that lags a cancel, so those are left to
// the locked guard inside the create transaction.
func dependsOnRows(err error) bool {
	reason, ok := domain.ReasonOf(err)
	if !ok {
		return false
	}
	return reason == domain.ReasonSlotConflict || reason == domain.ReasonDailyCapExceeded
}

// window is the range the create transaction must see: the candidate's local
// day for the cap, stretched to cover the candidate itself.
func (s *service) window(c booking.Candidate) [2]time.Time {
	g := slot.NewGrid(c.Start, s.loc)
	from, to := g.Start(), g.End()
	if c.End.After(to) {
		to = c.End
	}
	return [2]time.Time{from, to}
}

func (s *service) Cancel(ctx context.Context, req domain.CancelRequest, id int64) (*domain.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Cancel", trace.WithAttributes(
		attribute.Int64("reservation.id", id),
		attribute.String("authority", string(req.Authority())),
		attribute.Int("actor.id", req.ActorID()),
	))
	defer span.End()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			rej := domain.Reject(domain.ReasonNotFound, "reservation %d does not exist", id)
			s.reject(span, rej)
			return nil, rej
		}
		return nil, fmt.Errorf("load reservation: %w", err)
	}

	if err := booking.AuthorizeCancel(req, *current, s.clock()); err != nil {
		s.reject(span, err)
		return nil, err
	}

	res, err := s.repo.Cancel(ctx, id, req)
	if err != nil {
		if errors.Is(err, ErrReservationNotFoundOrAlreadyCancelled) {
			rej := domain.Reject(domain.ReasonAlreadyCancelled, "reservation %d is already cancelled", id)
			s.reject(span, rej)
			return nil, rej
		}
		return nil, fmt.Errorf("cancel reservation: %w", err)
	}

	metrics.RecordCancellation(string(req.Authority()))
	logger.Info("reservation cancelled",
		"reservation_id", res.ID,
		"room_id", res.RoomID,
		"authority", req.Authority(),
		"actor_id", req.ActorID(),
	)

	s.changed(ctx, events.RKReservationCancelled, res)
	return res, nil
}

func (s *service) SlotStates(ctx context.Context, roomID int, day string) (*SlotStatesResponse, error) {
	now := s.clock()
	grid := slot.NewGrid(now, s.loc)
	if day != "" {
		g, err := slot.ParseDay(day, s.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, day)
		}
		grid = g
	}

	rm, err := s.rooms.GetRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return nil, domain.Reject(domain.ReasonNotFound, "room %d does not exist", roomID)
		}
		return nil, err
	}

	active, err := s.ListActive(ctx, roomID)
	if err != nil {
		return nil, err
	}
	ix := availability.Build(active, s.loc)

	return &SlotStatesResponse{
		RoomID:     roomID,
		Date:       grid.Date(),
		RoomStatus: rm.Status,
		Slots:      slot.ResolveDay(grid, now, ix.Room(roomID), true),
	}, nil
}

func (s *service) Stats(ctx context.Context, groupBy string, from, to time.Time) (interface{}, error) {
	switch groupBy {
	case "day":
		return s.repo.GetStatsByDay(ctx, from, to)
	case "room":
		return s.repo.GetStatsByRoom(ctx, from, to)
	default:
		return nil, ErrInvalidGroupBy
	}
}

func (s *service) reject(span trace.Span, err error) {
	reason, ok := domain.ReasonOf(err)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("rejection.reason", string(reason)))
	metrics.RecordRejection(string(reason), "store")
}

// changed drops cached lists for the room and tells listeners to refetch. Both
// are best effort: the write already committed.
func (s *service) changed(ctx context.Context, typ string, res *domain.Reservation) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, res.RoomID); err != nil {
			logger.Warn("failed to invalidate active reservation cache", "room_id", res.RoomID, "error", err)
		}
	}

	ev := events.New(typ, res.RoomID)
	ev.ReservationID = res.ID
	ev.UserID = res.UserID
	ev.Status = string(res.Status)
	ev.Start = res.StartTime.Unix()
	ev.End = res.EndTime.Unix()
	if err := events.Publish(ctx, s.publisher, ev); err != nil {
		logger.Warn("failed to publish reservation event", "type", typ, "reservation_id", res.ID, "error", err)
	}
}
