package ward_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/internal/service/ward"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
	"github.com/jwalitptl/hms-core/pkg/logger"
)

type MockWardRepository struct {
	mock.Mock
}

func (m *MockWardRepository) CreateWard(ctx context.Context, w *model.Ward) error {
	return m.Called(ctx, w).Error(0)
}

func (m *MockWardRepository) GetWard(ctx context.Context, hospitalID, id uuid.UUID) (*model.Ward, error) {
	args := m.Called(ctx, hospitalID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ward), args.Error(1)
}

func (m *MockWardRepository) CreateBed(ctx context.Context, b *model.Bed) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockWardRepository) GetBed(ctx context.Context, hospitalID, id uuid.UUID) (*model.Bed, error) {
	args := m.Called(ctx, hospitalID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bed), args.Error(1)
}

func (m *MockWardRepository) SetBedStatus(ctx context.Context, caller model.Caller, bedID uuid.UUID, status model.BedStatus, now time.Time) (*model.Bed, error) {
	args := m.Called(ctx, caller, bedID, status, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bed), args.Error(1)
}

func (m *MockWardRepository) Occupancy(ctx context.Context, hospitalID uuid.UUID) ([]*model.WardOccupancy, error) {
	args := m.Called(ctx, hospitalID)
	return args.Get(0).([]*model.WardOccupancy), args.Error(1)
}

func callerCtx() (context.Context, model.Caller) {
	c := model.Caller{HospitalID: uuid.New(), UserID: uuid.New()}
	return model.WithCaller(context.Background(), c), c
}

func TestOccupancy(t *testing.T) {
	repo := new(MockWardRepository)
	ctx, caller := callerCtx()
	repo.On("Occupancy", ctx, caller.HospitalID).Return([]*model.WardOccupancy{
		{WardName: "General", TotalBeds: 4, Occupied: 3, Available: 1},
		{WardName: "Isolation", TotalBeds: 0},
	}, nil)

	report, err := ward.NewService(repo, logger.Nop()).Occupancy(ctx)
	require.NoError(t, err)
	require.Len(t, report.Wards, 2)
	assert.InDelta(t, 0.75, report.Wards[0].OccupancyRate, 1e-9)
	assert.Zero(t, report.Wards[1].OccupancyRate)
	assert.Equal(t, caller.HospitalID, report.HospitalID)
}

func TestCreateBedInheritsWardRate(t *testing.T) {
	repo := new(MockWardRepository)
	ctx, caller := callerCtx()
	w := &model.Ward{Name: "ICU", DailyRate: 5000, IsActive: true}
	w.ID = uuid.New()

	repo.On("GetWard", ctx, caller.HospitalID, w.ID).Return(w, nil)
	repo.On("CreateBed", ctx, mock.Anything).Return(nil)

	bed, err := ward.NewService(repo, logger.Nop()).CreateBed(ctx, w.ID, &model.CreateBedRequest{BedNumber: "ICU-01"})
	require.NoError(t, err)
	assert.Equal(t, 5000.0, bed.DailyRate)
	assert.Equal(t, model.BedStatusAvailable, bed.Status)
	assert.Equal(t, caller.HospitalID, bed.HospitalID)
}

func TestCreateBedInactiveWard(t *testing.T) {
	repo := new(MockWardRepository)
	ctx, _ := callerCtx()
	w := &model.Ward{IsActive: false}
	repo.On("GetWard", mock.Anything, mock.Anything, mock.Anything).Return(w, nil)

	_, err := ward.NewService(repo, logger.Nop()).CreateBed(ctx, uuid.New(), &model.CreateBedRequest{BedNumber: "1"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidStatus))
	repo.AssertNotCalled(t, "CreateBed", mock.Anything, mock.Anything)
}

func TestSetBedStatusRejectsOccupied(t *testing.T) {
	repo := new(MockWardRepository)
	ctx, _ := callerCtx()

	_, err := ward.NewService(repo, logger.Nop()).SetBedStatus(ctx, uuid.New(), model.BedStatusOccupied)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	repo.AssertNotCalled(t, "SetBedStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateWardNormalisesCode(t *testing.T) {
	repo := new(MockWardRepository)
	ctx, _ := callerCtx()
	repo.On("CreateWard", ctx, mock.MatchedBy(func(w *model.Ward) bool { return w.Code == "GEN-A" })).Return(nil)

	_, err := ward.NewService(repo, logger.Nop()).CreateWard(ctx, &model.CreateWardRequest{
		Name: "General A", Code: " gen-a ", Type: model.WardTypeGeneral,
	})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
