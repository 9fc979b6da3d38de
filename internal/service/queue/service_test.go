package queue_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/internal/repository"
	"github.com/jwalitptl/hms-core/internal/service/queue"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
	"github.com/jwalitptl/hms-core/pkg/logger"
	"github.com/jwalitptl/hms-core/pkg/metrics"
)

type MockQueueRepository struct {
	mock.Mock
}

func (m *MockQueueRepository) entry(args mock.Arguments) (*model.QueueEntry, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QueueEntry), args.Error(1)
}

func (m *MockQueueRepository) CheckIn(ctx context.Context, caller model.Caller, appointmentID uuid.UUID, queueDate, now time.Time) (*model.QueueEntry, error) {
	return m.entry(m.Called(ctx, caller, appointmentID, queueDate, now))
}

func (m *MockQueueRepository) CallNext(ctx context.Context, caller model.Caller, doctorID uuid.UUID, queueDate, now time.Time) (*model.QueueEntry, error) {
	return m.entry(m.Called(ctx, caller, doctorID, queueDate, now))
}

func (m *MockQueueRepository) Complete(ctx context.Context, caller model.Caller, entryID uuid.UUID, now time.Time) (*model.QueueEntry, error) {
	return m.entry(m.Called(ctx, caller, entryID, now))
}

func (m *MockQueueRepository) Skip(ctx context.Context, caller model.Caller, entryID uuid.UUID, reason string, now time.Time) (*model.QueueEntry, error) {
	return m.entry(m.Called(ctx, caller, entryID, reason, now))
}

func (m *MockQueueRepository) Get(ctx context.Context, hospitalID, id uuid.UUID) (*model.QueueEntry, error) {
	return m.entry(m.Called(ctx, hospitalID, id))
}

func (m *MockQueueRepository) ListByDoctorDate(ctx context.Context, hospitalID, doctorID uuid.UUID, queueDate time.Time) ([]*model.QueueEntry, error) {
	args := m.Called(ctx, hospitalID, doctorID, queueDate)
	return args.Get(0).([]*model.QueueEntry), args.Error(1)
}

// memoryQueue mirrors the queue rules for one doctor: dense WAITING
// positions and a single consultation at a time.
type memoryQueue struct {
	mu      sync.Mutex
	entries []*model.QueueEntry
}

func (q *memoryQueue) waiting() []*model.QueueEntry {
	var out []*model.QueueEntry
	for _, e := range q.entries {
		if e.Status == model.QueueStatusWaiting {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (q *memoryQueue) closeGap(pos int) {
	for _, e := range q.waiting() {
		if e.Position > pos {
			e.Position--
		}
	}
}

func (q *memoryQueue) CheckIn(_ context.Context, caller model.Caller, appointmentID uuid.UUID, queueDate, now time.Time) (*model.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := &model.QueueEntry{AppointmentID: appointmentID, QueueDate: queueDate, Status: model.QueueStatusWaiting, Position: len(q.waiting()) + 1, CheckInTime: now}
	e.Stamp(caller, now)
	q.entries = append(q.entries, e)
	cp := *e
	return &cp, nil
}

func (q *memoryQueue) CallNext(_ context.Context, _ model.Caller, _ uuid.UUID, _, now time.Time) (*model.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.Status == model.QueueStatusInConsultation {
			return nil, apperrors.PatientInConsultation()
		}
	}
	w := q.waiting()
	if len(w) == 0 {
		return nil, apperrors.NoWaitingPatients()
	}
	head := w[0]
	head.Status = model.QueueStatusInConsultation
	head.CallTime = &now
	q.closeGap(head.Position)
	cp := *head
	return &cp, nil
}

func (q *memoryQueue) find(id uuid.UUID) *model.QueueEntry {
	for _, e := range q.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (q *memoryQueue) Complete(_ context.Context, _ model.Caller, entryID uuid.UUID, now time.Time) (*model.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.find(entryID)
	if e == nil {
		return nil, apperrors.NotFound("queue entry", nil)
	}
	if e.Status != model.QueueStatusInConsultation {
		return nil, apperrors.InvalidStatus("queue entry", string(e.Status))
	}
	e.Status = model.QueueStatusCompleted
	e.EndTime = &now
	cp := *e
	return &cp, nil
}

func (q *memoryQueue) Skip(_ context.Context, _ model.Caller, entryID uuid.UUID, reason string, _ time.Time) (*model.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.find(entryID)
	if e == nil {
		return nil, apperrors.NotFound("queue entry", nil)
	}
	if e.Status != model.QueueStatusWaiting {
		return nil, apperrors.InvalidStatus("queue entry", string(e.Status))
	}
	e.Status = model.QueueStatusSkipped
	e.SkipReason = &reason
	q.closeGap(e.Position)
	cp := *e
	return &cp, nil
}

func (q *memoryQueue) Get(context.Context, uuid.UUID, uuid.UUID) (*model.QueueEntry, error) {
	return nil, apperrors.NotFound("queue entry", nil)
}

func (q *memoryQueue) ListByDoctorDate(context.Context, uuid.UUID, uuid.UUID, time.Time) ([]*model.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*model.QueueEntry, len(q.entries))
	copy(out, q.entries)
	return out, nil
}

var clock = time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)

func newService(repo repository.QueueRepository) *queue.Service {
	return queue.NewService(repo, logger.Nop(), metrics.New("test"),
		queue.WithClock(func() time.Time { return clock }))
}

func callerCtx() context.Context {
	return model.WithCaller(context.Background(), model.Caller{HospitalID: uuid.New(), UserID: uuid.New()})
}

func TestCallNextGuard(t *testing.T) {
	svc := newService(&memoryQueue{})
	ctx := callerCtx()
	doctor := uuid.New()

	_, err := svc.CheckIn(ctx, uuid.New())
	require.NoError(t, err)

	current, err := svc.CallNext(ctx, doctor)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusInConsultation, current.Status)

	_, err = svc.CallNext(ctx, doctor)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPatientInConsultation))

	_, err = svc.Complete(ctx, current.ID)
	require.NoError(t, err)

	_, err = svc.CallNext(ctx, doctor)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNoWaitingPatients))
}

func TestQueueStaysDenseAndFIFO(t *testing.T) {
	repo := &memoryQueue{}
	svc := newService(repo)
	ctx := callerCtx()
	doctor := uuid.New()

	var entries []*model.QueueEntry
	for i := 0; i < 4; i++ {
		e, err := svc.CheckIn(ctx, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, i+1, e.Position)
		entries = append(entries, e)
	}

	_, err := svc.Skip(ctx, entries[1].ID, "not present")
	require.NoError(t, err)

	first, err := svc.CallNext(ctx, doctor)
	require.NoError(t, err)
	assert.Equal(t, entries[0].ID, first.ID)

	board, err := svc.Board(ctx, doctor, "")
	require.NoError(t, err)
	require.NotNil(t, board.Current)
	assert.Equal(t, entries[0].ID, board.Current.ID)
	require.Len(t, board.Waiting, 2)
	assert.Equal(t, 1, board.Waiting[0].Position)
	assert.Equal(t, 2, board.Waiting[1].Position)
	assert.Len(t, board.Done, 1)
	assert.Equal(t, "2025-06-10", board.Date)
}

func TestCompleteRequiresConsultation(t *testing.T) {
	svc := newService(&memoryQueue{})
	ctx := callerCtx()

	e, err := svc.CheckIn(ctx, uuid.New())
	require.NoError(t, err)

	_, err = svc.Complete(ctx, e.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidStatus))
}

func TestCallNextUsesTodayInConfiguredZone(t *testing.T) {
	repo := new(MockQueueRepository)
	ctx := callerCtx()
	doctor := uuid.New()

	// 20:00 UTC on the 10th is already the 11th in Kolkata.
	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2025, 6, 10, 20, 0, 0, 0, time.UTC)

	repo.On("CallNext", ctx, mock.Anything, doctor, mock.MatchedBy(func(d time.Time) bool {
		return d.Format(model.DateLayout) == "2025-06-11"
	}), now).Return(&model.QueueEntry{Status: model.QueueStatusInConsultation}, nil)

	svc := queue.NewService(repo, logger.Nop(), metrics.New("test"),
		queue.WithClock(func() time.Time { return now }), queue.WithLocation(ist))

	_, err := svc.CallNext(ctx, doctor)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCheckInUsesTodayInConfiguredZone(t *testing.T) {
	repo := new(MockQueueRepository)
	ctx := callerCtx()
	appointment := uuid.New()

	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2025, 6, 10, 20, 0, 0, 0, time.UTC)

	repo.On("CheckIn", ctx, mock.Anything, appointment, mock.MatchedBy(func(d time.Time) bool {
		return d.Format(model.DateLayout) == "2025-06-11"
	}), now).Return(&model.QueueEntry{Status: model.QueueStatusWaiting, Position: 1}, nil)

	svc := queue.NewService(repo, logger.Nop(), metrics.New("test"),
		queue.WithClock(func() time.Time { return now }), queue.WithLocation(ist))

	_, err := svc.CheckIn(ctx, appointment)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestSkipRequiresReason(t *testing.T) {
	repo := new(MockQueueRepository)
	svc := newService(repo)

	_, err := svc.Skip(callerCtx(), uuid.New(), "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	repo.AssertNotCalled(t, "Skip", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBoardRejectsBadDate(t *testing.T) {
	svc := newService(new(MockQueueRepository))
	_, err := svc.Board(callerCtx(), uuid.New(), "June 10")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestTransitionsRequireCaller(t *testing.T) {
	svc := newService(new(MockQueueRepository))

	_, err := svc.CallNext(context.Background(), uuid.New())
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
}
