package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketboss/reservation-api/internal/model"
	"github.com/ticketboss/reservation-api/internal/repository"
)

const testEventID = "node-meetup-2025"

// fakeEventStore implements EventStore with the same compare-and-set
// semantics as the MySQL store: the decrement applies only while the
// stored version matches and enough seats remain, all under one lock.
type fakeEventStore struct {
	mu    sync.Mutex
	event *model.Event
	// error injection
	failIncrement error
}

func newFakeEventStore(total, available int, version int64) *fakeEventStore {
	return &fakeEventStore{
		event: &model.Event{
			EventID:        testEventID,
			Name:           "Node.js Meet-up",
			TotalSeats:     total,
			AvailableSeats: available,
			Version:        version,
		},
	}
}

func (s *fakeEventStore) FetchEvent(_ context.Context, eventID string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.event == nil || s.event.EventID != eventID {
		return nil, repository.ErrEventNotFound
	}
	ev := *s.event
	return &ev, nil
}

func (s *fakeEventStore) ConditionalDecrement(_ context.Context, eventID string, expectedVersion int64, amount int) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.event == nil || s.event.EventID != eventID {
		return nil, repository.ErrEventNotFound
	}
	if s.event.Version != expectedVersion || s.event.AvailableSeats < amount {
		return nil, repository.ErrVersionMismatch
	}
	s.event.AvailableSeats -= amount
	s.event.Version++
	ev := *s.event
	return &ev, nil
}

func (s *fakeEventStore) ConditionalIncrement(_ context.Context, eventID string, amount int) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIncrement != nil {
		return nil, s.failIncrement
	}
	if s.event == nil || s.event.EventID != eventID {
		return nil, repository.ErrEventNotFound
	}
	if s.event.AvailableSeats+amount > s.event.TotalSeats {
		return nil, repository.ErrCapacityExceeded
	}
	s.event.AvailableSeats += amount
	s.event.Version++
	ev := *s.event
	return &ev, nil
}

func (s *fakeEventStore) snapshot() model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.event
}

// fakeLedger implements ReservationLedger on a map.
type fakeLedger struct {
	mu           sync.Mutex
	reservations map[string]*model.Reservation
	failCreate   error
	failDelete   error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{reservations: make(map[string]*model.Reservation)}
}

func (l *fakeLedger) Create(_ context.Context, res *model.Reservation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failCreate != nil {
		return l.failCreate
	}
	cp := *res
	l.reservations[res.ReservationID] = &cp
	return nil
}

func (l *fakeLedger) GetByID(_ context.Context, id string) (*model.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, ok := l.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	cp := *res
	return &cp, nil
}

func (l *fakeLedger) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failDelete != nil {
		return l.failDelete
	}
	if _, ok := l.reservations[id]; !ok {
		return repository.ErrReservationNotFound
	}
	delete(l.reservations, id)
	return nil
}

func (l *fakeLedger) CountByEvent(_ context.Context, eventID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, res := range l.reservations {
		if res.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (l *fakeLedger) seatSum() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	sum := 0
	for _, res := range l.reservations {
		sum += res.Seats
	}
	return sum
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestService(store *fakeEventStore, ledger *fakeLedger) *ReservationService {
	return NewReservationService(testEventID, store, ledger, nil, quietLogger())
}

func TestCreateReservation(t *testing.T) {
	t.Parallel()

	t.Run("allocates seats and records the booking", func(t *testing.T) {
		store := newFakeEventStore(10, 10, 0)
		ledger := newFakeLedger()
		svc := newTestService(store, ledger)

		res, err := svc.CreateReservation(context.Background(), "p1", 4)
		require.NoError(t, err)
		require.NotEmpty(t, res.ReservationID)
		assert.Equal(t, 4, res.Seats)
		assert.Equal(t, model.StatusConfirmed, res.Status)
		assert.Equal(t, "p1", res.PartnerID)

		ev := store.snapshot()
		assert.Equal(t, 6, ev.AvailableSeats)
		assert.Equal(t, int64(1), ev.Version)
		assert.Equal(t, 4, ledger.seatSum())
	})

	t.Run("rejects invalid seat counts and empty partner", func(t *testing.T) {
		store := newFakeEventStore(10, 10, 0)
		svc := newTestService(store, newFakeLedger())

		for _, seats := range []int{0, -3, 11} {
			_, err := svc.CreateReservation(context.Background(), "p1", seats)
			assert.ErrorIs(t, err, ErrInvalidRequest, "seats=%d", seats)
		}
		_, err := svc.CreateReservation(context.Background(), "", 2)
		assert.ErrorIs(t, err, ErrInvalidRequest)

		// No mutation happened on any rejection.
		assert.Equal(t, int64(0), store.snapshot().Version)
	})

	t.Run("rejects when the pool is short", func(t *testing.T) {
		store := newFakeEventStore(10, 6, 1)
		svc := newTestService(store, newFakeLedger())

		_, err := svc.CreateReservation(context.Background(), "p2", 7)
		assert.ErrorIs(t, err, ErrInsufficientSeats)
		ev := store.snapshot()
		assert.Equal(t, 6, ev.AvailableSeats)
		assert.Equal(t, int64(1), ev.Version)
	})

	t.Run("reports a missing event row", func(t *testing.T) {
		store := newFakeEventStore(10, 10, 0)
		store.event.EventID = "some-other-event"
		svc := newTestService(store, newFakeLedger())

		_, err := svc.CreateReservation(context.Background(), "p1", 1)
		assert.ErrorIs(t, err, repository.ErrEventNotFound)
	})

	t.Run("maps a lost CAS race to a concurrency conflict", func(t *testing.T) {
		// racingStore commits a competing write between the engine's
		// read and its conditional decrement, so the CAS always loses.
		store := newFakeEventStore(10, 10, 0)
		ledger := newFakeLedger()
		svc := newTestService2(&racingStore{fakeEventStore: store}, ledger)

		_, err := svc.CreateReservation(context.Background(), "p1", 1)
		assert.ErrorIs(t, err, ErrConcurrencyConflict)
		assert.Equal(t, 0, ledger.seatSum())
	})

	t.Run("compensates a failed ledger insert", func(t *testing.T) {
		store := newFakeEventStore(10, 10, 0)
		ledger := newFakeLedger()
		ledger.failCreate = errors.New("ledger down")
		svc := newTestService(store, ledger)

		_, err := svc.CreateReservation(context.Background(), "p1", 3)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPartialFailure)

		// Seats restored, two mutations recorded.
		ev := store.snapshot()
		assert.Equal(t, 10, ev.AvailableSeats)
		assert.Equal(t, int64(2), ev.Version)
	})

	t.Run("surfaces partial failure when compensation also fails", func(t *testing.T) {
		store := newFakeEventStore(10, 10, 0)
		store.failIncrement = errors.New("store unreachable")
		ledger := newFakeLedger()
		ledger.failCreate = errors.New("ledger down")
		svc := newTestService(store, ledger)

		_, err := svc.CreateReservation(context.Background(), "p1", 3)
		assert.ErrorIs(t, err, ErrPartialFailure)
	})
}

// racingStore makes every ConditionalDecrement lose by committing a
// competing one-seat write first, as if another instance always beat us.
type racingStore struct {
	*fakeEventStore
}

func (s *racingStore) ConditionalDecrement(ctx context.Context, eventID string, expectedVersion int64, amount int) (*model.Event, error) {
	_, _ = s.fakeEventStore.ConditionalDecrement(ctx, eventID, expectedVersion, 1)
	return s.fakeEventStore.ConditionalDecrement(ctx, eventID, expectedVersion, amount)
}

func newTestService2(store EventStore, ledger ReservationLedger) *ReservationService {
	return NewReservationService(testEventID, store, ledger, nil, quietLogger())
}

func TestCancelReservation(t *testing.T) {
	t.Parallel()

	t.Run("restores seats and removes the booking", func(t *testing.T) {
		store := newFakeEventStore(10, 10, 0)
		ledger := newFakeLedger()
		svc := newTestService(store, ledger)

		res, err := svc.CreateReservation(context.Background(), "p1", 3)
		require.NoError(t, err)
		before := store.snapshot()

		require.NoError(t, svc.CancelReservation(context.Background(), res.ReservationID))

		ev := store.snapshot()
		assert.Equal(t, 10, ev.AvailableSeats)
		assert.Equal(t, before.Version+1, ev.Version)
		assert.Equal(t, 0, ledger.seatSum())
	})

	t.Run("is idempotent: second cancel yields not found", func(t *testing.T) {
		store := newFakeEventStore(10, 10, 0)
		ledger := newFakeLedger()
		svc := newTestService(store, ledger)

		res, err := svc.CreateReservation(context.Background(), "p1", 2)
		require.NoError(t, err)

		require.NoError(t, svc.CancelReservation(context.Background(), res.ReservationID))
		err = svc.CancelReservation(context.Background(), res.ReservationID)
		assert.ErrorIs(t, err, repository.ErrReservationNotFound)

		// No seats were double-restored.
		assert.Equal(t, 10, store.snapshot().AvailableSeats)
	})

	t.Run("unknown id yields not found", func(t *testing.T) {
		svc := newTestService(newFakeEventStore(10, 10, 0), newFakeLedger())
		err := svc.CancelReservation(context.Background(), "no-such-id")
		assert.ErrorIs(t, err, repository.ErrReservationNotFound)
	})

	t.Run("surfaces partial failure when the delete fails after restore", func(t *testing.T) {
		store := newFakeEventStore(10, 10, 0)
		ledger := newFakeLedger()
		svc := newTestService(store, ledger)

		res, err := svc.CreateReservation(context.Background(), "p1", 2)
		require.NoError(t, err)

		ledger.failDelete = errors.New("ledger down")
		err = svc.CancelReservation(context.Background(), res.ReservationID)
		assert.ErrorIs(t, err, ErrPartialFailure)
	})
}

func TestGetEventSummary(t *testing.T) {
	t.Parallel()

	t.Run("combines the event with its live count", func(t *testing.T) {
		store := newFakeEventStore(500, 500, 0)
		ledger := newFakeLedger()
		svc := newTestService(store, ledger)

		_, err := svc.CreateReservation(context.Background(), "p1", 5)
		require.NoError(t, err)
		_, err = svc.CreateReservation(context.Background(), "p2", 10)
		require.NoError(t, err)

		summary, err := svc.GetEventSummary(context.Background())
		require.NoError(t, err)
		assert.Equal(t, testEventID, summary.EventID)
		assert.Equal(t, 500, summary.TotalSeats)
		assert.Equal(t, 485, summary.AvailableSeats)
		assert.Equal(t, 2, summary.ReservationCount)
		assert.Equal(t, int64(2), summary.Version)
	})

	t.Run("missing event yields not found", func(t *testing.T) {
		store := newFakeEventStore(10, 10, 0)
		store.event.EventID = "some-other-event"
		svc := newTestService(store, newFakeLedger())

		_, err := svc.GetEventSummary(context.Background())
		assert.ErrorIs(t, err, repository.ErrEventNotFound)
	})
}

// TestScenario runs the end-to-end sequence: create 4 of 10, reject 7,
// cancel back to a full pool.
func TestScenario(t *testing.T) {
	t.Parallel()

	store := newFakeEventStore(10, 10, 0)
	ledger := newFakeLedger()
	svc := newTestService(store, ledger)
	ctx := context.Background()

	res, err := svc.CreateReservation(ctx, "p1", 4)
	require.NoError(t, err)
	ev := store.snapshot()
	require.Equal(t, 6, ev.AvailableSeats)
	require.Equal(t, int64(1), ev.Version)

	_, err = svc.CreateReservation(ctx, "p2", 7)
	require.ErrorIs(t, err, ErrInsufficientSeats)
	require.Equal(t, ev, store.snapshot(), "state unchanged after rejection")

	require.NoError(t, svc.CancelReservation(ctx, res.ReservationID))
	ev = store.snapshot()
	require.Equal(t, 10, ev.AvailableSeats)
	require.Equal(t, int64(2), ev.Version)
	require.Equal(t, 0, ledger.seatSum())
}

// TestNoOversell hammers the engine with concurrent creates against a
// pool that can satisfy all but one of them.  Callers retry on
// concurrency conflicts, as the engine requires; exactly one request
// must end with an insufficient-seats rejection and the invariant
// sum(live seats) == total - available must hold throughout.
func TestNoOversell(t *testing.T) {
	t.Parallel()

	const (
		workers = 8
		seats   = 3
	)
	pool := seats*(workers-1) + seats - 1 // one worker must lose
	store := newFakeEventStore(pool, pool, 0)
	ledger := newFakeLedger()
	svc := newTestService(store, ledger)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		successes    int
		insufficient int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, err := svc.CreateReservation(context.Background(), "partner", seats)
				switch {
				case err == nil:
					mu.Lock()
					successes++
					mu.Unlock()
					return
				case errors.Is(err, ErrConcurrencyConflict):
					continue // retry from a fresh read, as a real caller would
				case errors.Is(err, ErrInsufficientSeats):
					mu.Lock()
					insufficient++
					mu.Unlock()
					return
				default:
					t.Errorf("unexpected error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers-1, successes)
	assert.Equal(t, 1, insufficient)

	ev := store.snapshot()
	assert.GreaterOrEqual(t, ev.AvailableSeats, 0)
	assert.LessOrEqual(t, ev.AvailableSeats, ev.TotalSeats)
	assert.Equal(t, ev.TotalSeats-ev.AvailableSeats, ledger.seatSum())
	assert.Equal(t, int64(workers-1), ev.Version, "one version bump per committed write")
}

// TestTwoRacers reproduces the contended write directly at the store level:
// two writers read the same version and both try to decrement; exactly
// one CAS commits.
func TestTwoRacers(t *testing.T) {
	t.Parallel()

	store := newFakeEventStore(10, 5, 1)
	ctx := context.Background()

	_, err1 := store.ConditionalDecrement(ctx, testEventID, 1, 3)
	_, err2 := store.ConditionalDecrement(ctx, testEventID, 1, 3)

	require.True(t, (err1 == nil) != (err2 == nil), "exactly one writer must win")
	loser := err1
	if err1 == nil {
		loser = err2
	}
	assert.ErrorIs(t, loser, repository.ErrVersionMismatch)

	ev := store.snapshot()
	assert.Equal(t, int64(2), ev.Version)
	assert.Equal(t, 2, ev.AvailableSeats)
}
