package slot_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/internal/service/slot"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
	"github.com/jwalitptl/hms-core/pkg/logger"
	"github.com/jwalitptl/hms-core/pkg/metrics"
)

type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) Create(ctx context.Context, b *model.ScheduleBlock) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockScheduleRepository) Get(ctx context.Context, hospitalID, id uuid.UUID) (*model.ScheduleBlock, error) {
	args := m.Called(ctx, hospitalID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScheduleBlock), args.Error(1)
}

func (m *MockScheduleRepository) Deactivate(ctx context.Context, caller model.Caller, id uuid.UUID, now time.Time) (*model.ScheduleBlock, error) {
	args := m.Called(ctx, caller, id, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScheduleBlock), args.Error(1)
}

func (m *MockScheduleRepository) ListByDoctor(ctx context.Context, hospitalID, doctorID uuid.UUID) ([]*model.ScheduleBlock, error) {
	args := m.Called(ctx, hospitalID, doctorID)
	return args.Get(0).([]*model.ScheduleBlock), args.Error(1)
}

func (m *MockScheduleRepository) ListActiveForDay(ctx context.Context, hospitalID, doctorID uuid.UUID, dayOfWeek int) ([]*model.ScheduleBlock, error) {
	args := m.Called(ctx, hospitalID, doctorID, dayOfWeek)
	return args.Get(0).([]*model.ScheduleBlock), args.Error(1)
}

type MockBookedSlots struct {
	mock.Mock
}

func (m *MockBookedSlots) BookedSlotTimes(ctx context.Context, hospitalID, doctorID uuid.UUID, date time.Time) ([]string, error) {
	args := m.Called(ctx, hospitalID, doctorID, date)
	return args.Get(0).([]string), args.Error(1)
}

type MockDoctorChecker struct {
	mock.Mock
}

func (m *MockDoctorChecker) CheckDoctor(ctx context.Context, hospitalID, doctorID uuid.UUID) error {
	args := m.Called(ctx, hospitalID, doctorID)
	return args.Error(0)
}

func (m *MockDoctorChecker) KnownDoctor(ctx context.Context, hospitalID, doctorID uuid.UUID) error {
	args := m.Called(ctx, hospitalID, doctorID)
	return args.Error(0)
}

func TestAvailability(t *testing.T) {
	repo := new(MockScheduleRepository)
	booked := new(MockBookedSlots)
	caller := model.Caller{HospitalID: uuid.New(), UserID: uuid.New()}
	doctor := uuid.New()
	ctx := model.WithCaller(context.Background(), caller)

	// 2025-06-10 is a Tuesday
	repo.On("ListActiveForDay", ctx, caller.HospitalID, doctor, 2).
		Return([]*model.ScheduleBlock{block("09:00", "10:00", 15, 5)}, nil)
	booked.On("BookedSlotTimes", ctx, caller.HospitalID, doctor, mock.AnythingOfType("time.Time")).
		Return([]string{"09:20"}, nil)
	doctors := new(MockDoctorChecker)
	doctors.On("KnownDoctor", ctx, caller.HospitalID, doctor).Return(nil)

	svc := slot.NewService(repo, booked, doctors, logger.Nop(), metrics.New("test"))
	got, err := svc.Availability(ctx, doctor, "2025-06-10")
	require.NoError(t, err)

	assert.Equal(t, "2025-06-10", got.Date)
	assert.Equal(t, []model.Slot{
		{Time: "09:00", Available: true},
		{Time: "09:20", Available: false},
		{Time: "09:40", Available: true},
	}, got.Slots)
	repo.AssertExpectations(t)
}

func TestAvailabilityRejectsBadDate(t *testing.T) {
	ctx := model.WithCaller(context.Background(), model.Caller{HospitalID: uuid.New()})
	svc := slot.NewService(new(MockScheduleRepository), new(MockBookedSlots), new(MockDoctorChecker), logger.Nop(), metrics.New("test"))

	_, err := svc.Availability(ctx, uuid.New(), "10/06/2025")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestAvailabilityUnknownDoctor(t *testing.T) {
	repo := new(MockScheduleRepository)
	doctors := new(MockDoctorChecker)
	doctors.On("KnownDoctor", mock.Anything, mock.Anything, mock.Anything).Return(apperrors.DoctorNotFound(nil))
	ctx := model.WithCaller(context.Background(), model.Caller{HospitalID: uuid.New()})
	svc := slot.NewService(repo, new(MockBookedSlots), doctors, logger.Nop(), metrics.New("test"))

	_, err := svc.Availability(ctx, uuid.New(), "2025-06-10")
	assert.True(t, apperrors.IsKind(err, apperrors.KindDoctorNotFound))
	repo.AssertNotCalled(t, "ListActiveForDay", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBlockRejectsWindowShorterThanSlot(t *testing.T) {
	repo := new(MockScheduleRepository)
	ctx := model.WithCaller(context.Background(), model.Caller{HospitalID: uuid.New(), UserID: uuid.New()})
	svc := slot.NewService(repo, new(MockBookedSlots), new(MockDoctorChecker), logger.Nop(), metrics.New("test"))

	day := 1
	_, err := svc.CreateBlock(ctx, &model.CreateScheduleBlockRequest{
		DoctorID:            uuid.New(),
		DayOfWeek:           &day,
		StartTime:           "09:00",
		EndTime:             "09:10",
		SlotDurationMinutes: 15,
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateBlock(t *testing.T) {
	repo := new(MockScheduleRepository)
	doctors := new(MockDoctorChecker)
	caller := model.Caller{HospitalID: uuid.New(), UserID: uuid.New()}
	ctx := model.WithCaller(context.Background(), caller)
	doctor := uuid.New()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	doctors.On("CheckDoctor", ctx, caller.HospitalID, doctor).Return(nil)
	repo.On("Create", ctx, mock.MatchedBy(func(b *model.ScheduleBlock) bool {
		return b.HospitalID == caller.HospitalID && b.CreatedBy == caller.UserID && b.IsActive
	})).Return(nil)

	svc := slot.NewService(repo, new(MockBookedSlots), doctors, logger.Nop(), metrics.New("test"),
		slot.WithClock(func() time.Time { return now }))

	day := 3
	got, err := svc.CreateBlock(ctx, &model.CreateScheduleBlockRequest{
		DoctorID:            doctor,
		DayOfWeek:           &day,
		StartTime:           "17:00",
		EndTime:             "20:00",
		SlotDurationMinutes: 10,
		BufferMinutes:       5,
	})
	require.NoError(t, err)
	assert.Equal(t, now, got.CreatedAt)
	repo.AssertExpectations(t)
}

func TestCreateBlockUnknownDoctor(t *testing.T) {
	repo := new(MockScheduleRepository)
	doctors := new(MockDoctorChecker)
	ctx := model.WithCaller(context.Background(), model.Caller{HospitalID: uuid.New()})
	doctors.On("CheckDoctor", mock.Anything, mock.Anything, mock.Anything).Return(apperrors.DoctorNotFound(nil))

	svc := slot.NewService(repo, new(MockBookedSlots), doctors, logger.Nop(), metrics.New("test"))

	day := 1
	_, err := svc.CreateBlock(ctx, &model.CreateScheduleBlockRequest{
		DoctorID:            uuid.New(),
		DayOfWeek:           &day,
		StartTime:           "09:00",
		EndTime:             "12:00",
		SlotDurationMinutes: 15,
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindDoctorNotFound))
}
