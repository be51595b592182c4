package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"studyroom/internal/booking"
	"studyroom/internal/domain"
	"studyroom/internal/events"
	"studyroom/internal/room"
	"studyroom/internal/slot"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListActive(ctx context.Context, roomID int, since time.Time) ([]domain.Reservation, error) {
	args := m.Called(ctx, roomID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

func (m *MockRepository) ListByUser(ctx context.Context, userID int, since time.Time) ([]domain.Reservation, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, c booking.Candidate, window [2]time.Time, guard Guard) (*domain.Reservation, error) {
	args := m.Called(ctx, c, window, guard)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockRepository) Cancel(ctx context.Context, id int64, req domain.CancelRequest) (*domain.Reservation, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockRepository) GetStatsByDay(ctx context.Context, from, to time.Time) ([]StatsByDay, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]StatsByDay), args.Error(1)
}

func (m *MockRepository) GetStatsByRoom(ctx context.Context, from, to time.Time) ([]StatsByRoom, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]StatsByRoom), args.Error(1)
}

type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) GetAllRooms(ctx context.Context) ([]domain.Room, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Room), args.Error(1)
}

func (m *MockRoomRepository) GetRoomByID(ctx context.Context, id int) (*domain.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}

func (m *MockRoomRepository) UpdateStatus(ctx context.Context, id int, status domain.RoomStatus) (*domain.Room, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetActive(ctx context.Context, roomID int) ([]domain.Reservation, bool, error) {
	args := m.Called(ctx, roomID)
	var rs []domain.Reservation
	if v := args.Get(0); v != nil {
		rs = v.([]domain.Reservation)
	}
	return rs, args.Bool(1), args.Error(2)
}

func (m *MockCache) Generation(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCache) SetActive(ctx context.Context, roomID int, gen int64, rs []domain.Reservation) error {
	return m.Called(ctx, roomID, gen, rs).Error(0)
}

func (m *MockCache) Invalidate(ctx context.Context, roomID int) error {
	return m.Called(ctx, roomID).Error(0)
}

// memCache mirrors the generation rules of the Redis cache in memory.
type memCache struct {
	mu      sync.Mutex
	gen     int64
	entries map[int]memEntry
}

type memEntry struct {
	gen int64
	rs  []domain.Reservation
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[int]memEntry)}
}

func (c *memCache) Generation(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *memCache) GetActive(ctx context.Context, roomID int) ([]domain.Reservation, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[roomID]
	if !ok || e.gen != c.gen {
		return nil, false, nil
	}
	return e.rs, true, nil
}

func (c *memCache) SetActive(ctx context.Context, roomID int, gen int64, rs []domain.Reservation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[roomID] = memEntry{gen: gen, rs: rs}
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, roomID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	delete(c.entries, 0)
	delete(c.entries, roomID)
	return nil
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	return m.Called(ctx, key, v).Error(0)
}

// now is 08:03 on 2026-10-20 in KST for every service test.
var now = at(8, 3)

type fixture struct {
	repo  *MockRepository
	rooms *MockRoomRepository
	cache *MockCache
	pub   *MockPublisher
	svc   Service
}

func newFixture(withCache bool) *fixture {
	f := &fixture{
		repo:  new(MockRepository),
		rooms: new(MockRoomRepository),
		cache: new(MockCache),
		pub:   new(MockPublisher),
	}
	opts := Options{
		Location:  kst,
		DailyCap:  booking.DefaultDailyCap,
		Publisher: f.pub,
		Clock:     func() time.Time { return now },
	}
	if withCache {
		opts.Cache = f.cache
	}
	f.svc = NewService(f.repo, f.rooms, opts)
	return f
}

func (f *fixture) assertAll(t *testing.T) {
	f.repo.AssertExpectations(t)
	f.rooms.AssertExpectations(t)
	f.cache.AssertExpectations(t)
	f.pub.AssertExpectations(t)
}

func startOfDay(tm time.Time) bool {
	return tm.Equal(at(0, 0))
}

func TestService_ListActive_CacheHit(t *testing.T) {
	f := newFixture(true)
	cached := []domain.Reservation{{ID: 1, RoomID: 3, Status: domain.StatusReserved}}

	f.cache.On("GetActive", mock.Anything, 3).Return(cached, true, nil)

	rs, err := f.svc.ListActive(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, cached, rs)
	f.repo.AssertNotCalled(t, "ListActive", mock.Anything, mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestService_ListActive_MissFillsCache(t *testing.T) {
	f := newFixture(true)
	rows := []domain.Reservation{{ID: 1, RoomID: 3, Status: domain.StatusReserved}}

	f.cache.On("GetActive", mock.Anything, 0).Return(nil, false, nil)
	f.cache.On("Generation", mock.Anything).Return(int64(4), nil)
	f.repo.On("ListActive", mock.Anything, 0, mock.MatchedBy(startOfDay)).Return(rows, nil)
	f.cache.On("SetActive", mock.Anything, 0, int64(4), rows).Return(nil)

	rs, err := f.svc.ListActive(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, rows, rs)
	f.assertAll(t)
}

func TestService_ListActive_CacheErrorFallsThrough(t *testing.T) {
	f := newFixture(true)

	f.cache.On("GetActive", mock.Anything, 0).Return(nil, false, errors.New("connection refused"))
	f.cache.On("Generation", mock.Anything).Return(int64(0), errors.New("connection refused"))
	f.repo.On("ListActive", mock.Anything, 0, mock.Anything).Return([]domain.Reservation{}, nil)

	rs, err := f.svc.ListActive(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, rs)
	f.cache.AssertNotCalled(t, "SetActive", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertAll(t)
}

// A list read that started before a cancel committed must not keep serving
// the cancelled reservation once the cancel has returned.
func TestService_ListActive_ReadRacingCancelIsNotCached(t *testing.T) {
	cache := newMemCache()
	repo := new(MockRepository)
	rooms := new(MockRoomRepository)
	pub := new(MockPublisher)
	svc := NewService(repo, rooms, Options{
		Location:  kst,
		DailyCap:  booking.DefaultDailyCap,
		Cache:     cache,
		Publisher: pub,
		Clock:     func() time.Time { return now },
	})

	held := domain.Reservation{ID: 1, RoomID: 3, UserID: 7, StartTime: at(10, 0), EndTime: at(11, 0), Status: domain.StatusReserved}
	cancelled := held
	cancelled.Status = domain.StatusCancelled

	started := make(chan struct{})
	release := make(chan struct{})
	repo.On("ListActive", mock.Anything, 0, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]domain.Reservation{held}, nil).Once()
	repo.On("ListActive", mock.Anything, 0, mock.Anything).Return([]domain.Reservation{}, nil)
	repo.On("GetByID", mock.Anything, int64(1)).Return(&held, nil)
	repo.On("Cancel", mock.Anything, int64(1), domain.BySelf{UserID: 7}).Return(&cancelled, nil)
	rooms.On("GetAllRooms", mock.Anything).Return([]domain.Room{{ID: 3, Status: domain.RoomIdle}}, nil)
	pub.On("PublishJSON", mock.Anything, events.RKReservationCancelled, mock.Anything).Return(nil)

	ctx := context.Background()
	done := make(chan []domain.Reservation, 1)
	go func() {
		rs, err := svc.ListActive(ctx, 0)
		assert.NoError(t, err)
		done <- rs
	}()

	<-started
	_, err := svc.Cancel(ctx, domain.BySelf{UserID: 7}, 1)
	require.NoError(t, err)
	close(release)
	assert.Len(t, <-done, 1)

	rs, err := svc.ListActive(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, rs)

	freed := booking.Candidate{UserID: 9, RoomID: 3, Start: at(10, 0), End: at(11, 0)}
	assert.NoError(t, svc.Validate(ctx, freed))
	repo.AssertExpectations(t)
}

func TestService_ListMine(t *testing.T) {
	f := newFixture(false)
	f.repo.On("ListByUser", mock.Anything, 7, now).Return([]domain.Reservation{{ID: 2, UserID: 7}}, nil)

	rs, err := f.svc.ListMine(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, rs, 1)
	f.assertAll(t)
}

func TestService_Create_Success(t *testing.T) {
	f := newFixture(true)
	c := booking.Candidate{UserID: 7, RoomID: 3, Start: at(10, 0), End: at(11, 0)}
	created := &domain.Reservation{ID: 10, RoomID: 3, UserID: 7, StartTime: c.Start, EndTime: c.End, Status: domain.StatusReserved}

	f.cache.On("GetActive", mock.Anything, 0).Return([]domain.Reservation{}, true, nil)
	f.rooms.On("GetAllRooms", mock.Anything).Return([]domain.Room{{ID: 3, Status: domain.RoomIdle}}, nil)
	f.repo.On("Create", mock.Anything, c, mock.MatchedBy(func(w [2]time.Time) bool {
		return w[0].Equal(at(0, 0)) && w[1].Equal(at(0, 0).Add(24*time.Hour))
	}), mock.Anything).
		Run(func(args mock.Arguments) {
			guard := args.Get(3).(Guard)
			assert.NoError(t, guard(nil, domain.Room{ID: 3, Status: domain.RoomIdle}))
			taken := []domain.Reservation{{ID: 4, RoomID: 3, UserID: 9, StartTime: at(10, 30), EndTime: at(11, 30), Status: domain.StatusReserved}}
			assert.ErrorIs(t, guard(taken, domain.Room{ID: 3, Status: domain.RoomIdle}), domain.ErrSlotConflict)
			assert.ErrorIs(t, guard(nil, domain.Room{ID: 3, Status: domain.RoomMaintenance}), domain.ErrRoomUnavailable)
		}).
		Return(created, nil)
	f.cache.On("Invalidate", mock.Anything, 3).Return(nil)
	f.pub.On("PublishJSON", mock.Anything, events.RKReservationCreated, mock.MatchedBy(func(ev events.Event) bool {
		return ev.ReservationID == 10 && ev.RoomID == 3 && ev.Start == c.Start.Unix()
	})).Return(nil)

	res, err := f.svc.Create(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.ID)
	f.assertAll(t)
}

func TestService_Create_CachedConflictDefersToGuard(t *testing.T) {
	f := newFixture(true)
	c := booking.Candidate{UserID: 9, RoomID: 3, Start: at(10, 0), End: at(11, 0)}
	created := &domain.Reservation{ID: 11, RoomID: 3, UserID: 9, StartTime: c.Start, EndTime: c.End, Status: domain.StatusReserved}

	// The cached list still holds a reservation that has since been cancelled.
	f.cache.On("GetActive", mock.Anything, 0).Return([]domain.Reservation{
		{ID: 1, RoomID: 3, UserID: 7, StartTime: at(10, 0), EndTime: at(11, 0), Status: domain.StatusReserved},
	}, true, nil)
	f.rooms.On("GetAllRooms", mock.Anything).Return([]domain.Room{{ID: 3, Status: domain.RoomIdle}}, nil)
	f.repo.On("Create", mock.Anything, c, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			guard := args.Get(3).(Guard)
			assert.NoError(t, guard(nil, domain.Room{ID: 3, Status: domain.RoomIdle}))
		}).
		Return(created, nil)
	f.cache.On("Invalidate", mock.Anything, 3).Return(nil)
	f.pub.On("PublishJSON", mock.Anything, events.RKReservationCreated, mock.Anything).Return(nil)

	res, err := f.svc.Create(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, int64(11), res.ID)
	f.assertAll(t)
}

func TestService_Create_ShapeRejectionSkipsStore(t *testing.T) {
	f := newFixture(false)
	c := booking.Candidate{UserID: 7, RoomID: 3, Start: at(10, 5), End: at(11, 5)}

	f.repo.On("ListActive", mock.Anything, 0, mock.Anything).Return([]domain.Reservation{}, nil)
	f.rooms.On("GetAllRooms", mock.Anything).Return([]domain.Room{{ID: 3, Status: domain.RoomIdle}}, nil)

	_, err := f.svc.Create(context.Background(), c)

	var re *domain.RejectionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, domain.ReasonMisalignedBoundary, re.Reason)
	assert.False(t, re.Authoritative)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestService_Create_InvalidDuration(t *testing.T) {
	f := newFixture(false)
	c := booking.Candidate{UserID: 7, RoomID: 3, Start: at(13, 0), End: at(14, 30)}

	f.repo.On("ListActive", mock.Anything, 0, mock.Anything).Return([]domain.Reservation{}, nil)
	f.rooms.On("GetAllRooms", mock.Anything).Return([]domain.Room{{ID: 3, Status: domain.RoomIdle}}, nil)

	_, err := f.svc.Create(context.Background(), c)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Create_StoreRejectionIsAuthoritative(t *testing.T) {
	f := newFixture(false)
	c := booking.Candidate{UserID: 7, RoomID: 3, Start: at(10, 0), End: at(11, 0)}

	f.repo.On("ListActive", mock.Anything, 0, mock.Anything).Return([]domain.Reservation{}, nil)
	f.rooms.On("GetAllRooms", mock.Anything).Return([]domain.Room{{ID: 3, Status: domain.RoomIdle}}, nil)
	f.repo.On("Create", mock.Anything, c, mock.Anything, mock.Anything).
		Return(nil, domain.Reject(domain.ReasonSlotConflict, "room 3 already has a reservation"))

	_, err := f.svc.Create(context.Background(), c)

	var re *domain.RejectionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, domain.ReasonSlotConflict, re.Reason)
	assert.True(t, re.Authoritative)
	f.pub.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestService_Create_StoreFailure(t *testing.T) {
	f := newFixture(false)
	c := booking.Candidate{UserID: 7, RoomID: 3, Start: at(10, 0), End: at(11, 0)}

	f.repo.On("ListActive", mock.Anything, 0, mock.Anything).Return([]domain.Reservation{}, nil)
	f.rooms.On("GetAllRooms", mock.Anything).Return([]domain.Room{{ID: 3, Status: domain.RoomIdle}}, nil)
	f.repo.On("Create", mock.Anything, c, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	_, err := f.svc.Create(context.Background(), c)
	require.Error(t, err)
	_, isRejection := domain.ReasonOf(err)
	assert.False(t, isRejection)
}

func TestService_Cancel(t *testing.T) {
	owned := &domain.Reservation{ID: 5, RoomID: 3, UserID: 7, StartTime: at(10, 0), EndTime: at(11, 0), Status: domain.StatusReserved}
	ended := &domain.Reservation{ID: 6, RoomID: 3, UserID: 7, StartTime: at(6, 0), EndTime: at(7, 0), Status: domain.StatusReserved}

	tests := []struct {
		name  string
		id    int64
		req   domain.CancelRequest
		setup func(f *fixture)
		want  domain.Reason
	}{
		{
			name: "owner cancels",
			id:   5,
			req:  domain.BySelf{UserID: 7},
			setup: func(f *fixture) {
				f.repo.On("GetByID", mock.Anything, int64(5)).Return(owned, nil)
				cancelled := *owned
				cancelled.Status = domain.StatusCancelled
				f.repo.On("Cancel", mock.Anything, int64(5), domain.BySelf{UserID: 7}).Return(&cancelled, nil)
				f.pub.On("PublishJSON", mock.Anything, events.RKReservationCancelled, mock.Anything).Return(nil)
			},
		},
		{
			name: "someone else",
			id:   5,
			req:  domain.BySelf{UserID: 8},
			setup: func(f *fixture) {
				f.repo.On("GetByID", mock.Anything, int64(5)).Return(owned, nil)
			},
			want: domain.ReasonNotOwner,
		},
		{
			name: "owner after the window",
			id:   6,
			req:  domain.BySelf{UserID: 7},
			setup: func(f *fixture) {
				f.repo.On("GetByID", mock.Anything, int64(6)).Return(ended, nil)
			},
			want: domain.ReasonCancelWindowElapsed,
		},
		{
			name: "admin after the window",
			id:   6,
			req:  domain.ByAdmin{AdminID: 1},
			setup: func(f *fixture) {
				f.repo.On("GetByID", mock.Anything, int64(6)).Return(ended, nil)
				f.repo.On("Cancel", mock.Anything, int64(6), domain.ByAdmin{AdminID: 1}).Return(ended, nil)
				f.pub.On("PublishJSON", mock.Anything, events.RKReservationCancelled, mock.Anything).Return(nil)
			},
		},
		{
			name: "lost the race to another cancel",
			id:   5,
			req:  domain.BySelf{UserID: 7},
			setup: func(f *fixture) {
				f.repo.On("GetByID", mock.Anything, int64(5)).Return(owned, nil)
				f.repo.On("Cancel", mock.Anything, int64(5), domain.BySelf{UserID: 7}).Return(nil, ErrReservationNotFoundOrAlreadyCancelled)
			},
			want: domain.ReasonAlreadyCancelled,
		},
		{
			name: "unknown reservation",
			id:   99,
			req:  domain.ByAdmin{AdminID: 1},
			setup: func(f *fixture) {
				f.repo.On("GetByID", mock.Anything, int64(99)).Return(nil, ErrReservationNotFound)
			},
			want: domain.ReasonNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(false)
			tt.setup(f)

			res, err := f.svc.Cancel(context.Background(), tt.req, tt.id)
			if tt.want == "" {
				require.NoError(t, err)
				assert.NotNil(t, res)
			} else {
				reason, ok := domain.ReasonOf(err)
				require.True(t, ok, "expected a rejection, got %v", err)
				assert.Equal(t, tt.want, reason)
				f.pub.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything, mock.Anything)
			}
			f.assertAll(t)
		})
	}
}

func TestService_SlotStates(t *testing.T) {
	f := newFixture(false)

	f.rooms.On("GetRoomByID", mock.Anything, 3).Return(&domain.Room{ID: 3, Status: domain.RoomOccupied}, nil)
	f.repo.On("ListActive", mock.Anything, 3, mock.Anything).Return([]domain.Reservation{
		{ID: 1, RoomID: 3, UserID: 2, StartTime: at(10, 0), EndTime: at(11, 0), Status: domain.StatusReserved},
	}, nil)

	resp, err := f.svc.SlotStates(context.Background(), 3, "")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-20", resp.Date)
	assert.Equal(t, domain.RoomOccupied, resp.RoomStatus)
	require.Len(t, resp.Slots, slot.PerDay+1)

	// 08:00-08:10 has not ended at 08:03.
	assert.Equal(t, slot.StatePast, resp.Slots[47].State)
	assert.Equal(t, slot.StateAvailable, resp.Slots[48].State)
	assert.Equal(t, slot.StateReserved, resp.Slots[60].State)
	assert.Equal(t, slot.StateAvailable, resp.Slots[66].State)
	f.assertAll(t)
}

func TestService_SlotStates_Errors(t *testing.T) {
	f := newFixture(false)
	f.rooms.On("GetRoomByID", mock.Anything, 99).Return(nil, room.ErrRoomNotFound)

	_, err := f.svc.SlotStates(context.Background(), 3, "20-10-2026")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = f.svc.SlotStates(context.Background(), 99, "2026-10-21")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_Stats(t *testing.T) {
	f := newFixture(false)
	from, to := at(0, 0), at(23, 0)
	f.repo.On("GetStatsByRoom", mock.Anything, from, to).Return([]StatsByRoom{{RoomID: 1, Created: 4}}, nil)

	data, err := f.svc.Stats(context.Background(), "room", from, to)
	require.NoError(t, err)
	assert.Equal(t, []StatsByRoom{{RoomID: 1, Created: 4}}, data)

	_, err = f.svc.Stats(context.Background(), "week", from, to)
	assert.ErrorIs(t, err, ErrInvalidGroupBy)
}
