package appointment_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/internal/service/appointment"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
	"github.com/jwalitptl/hms-core/pkg/logger"
	"github.com/jwalitptl/hms-core/pkg/metrics"
)

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) CheckPatient(ctx context.Context, hospitalID, patientID uuid.UUID) error {
	return m.Called(ctx, hospitalID, patientID).Error(0)
}

func (m *MockDirectory) CheckDoctor(ctx context.Context, hospitalID, doctorID uuid.UUID) error {
	return m.Called(ctx, hospitalID, doctorID).Error(0)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) NextToken(ctx context.Context, hospitalID, doctorID uuid.UUID, date time.Time) (string, error) {
	args := m.Called(ctx, hospitalID, doctorID, date)
	if fn, ok := args.Get(0).(func(context.Context, uuid.UUID, uuid.UUID, time.Time) string); ok {
		return fn(ctx, hospitalID, doctorID, date), args.Error(1)
	}
	return args.String(0), args.Error(1)
}

type MockEmitter struct {
	mock.Mock
}

func (m *MockEmitter) Emit(ctx context.Context, hospitalID uuid.UUID, eventType string, payload interface{}) error {
	return m.Called(ctx, hospitalID, eventType, payload).Error(0)
}

// memoryRepository keeps appointments in a map and enforces one live
// appointment per (doctor, date, slot), like the store's unique index.
type memoryRepository struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Appointment
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{items: map[uuid.UUID]*model.Appointment{}}
}

func (r *memoryRepository) Create(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.items {
		if other.DoctorID == a.DoctorID && other.AppointmentDate.Equal(a.AppointmentDate) &&
			other.SlotTime == a.SlotTime && other.Status != model.AppointmentStatusCancelled &&
			other.Status != model.AppointmentStatusNoShow {
			return apperrors.SlotUnavailable(nil)
		}
	}
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *memoryRepository) Get(_ context.Context, hospitalID, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.HospitalID != hospitalID {
		return nil, apperrors.NotFound("appointment", nil)
	}
	cp := *a
	return &cp, nil
}

func (r *memoryRepository) List(context.Context, *model.AppointmentFilter) ([]*model.Appointment, error) {
	return nil, errors.New("not used")
}

func (r *memoryRepository) BookedSlotTimes(context.Context, uuid.UUID, uuid.UUID, time.Time) ([]string, error) {
	return nil, errors.New("not used")
}

func (r *memoryRepository) Confirm(_ context.Context, caller model.Caller, id uuid.UUID, now time.Time) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.HospitalID != caller.HospitalID {
		return nil, apperrors.NotFound("appointment", nil)
	}
	if a.Status != model.AppointmentStatusScheduled {
		return nil, apperrors.InvalidStatus("appointment", string(a.Status))
	}
	a.Status = model.AppointmentStatusConfirmed
	a.UpdatedAt = now
	cp := *a
	return &cp, nil
}

func (r *memoryRepository) Cancel(_ context.Context, caller model.Caller, id uuid.UUID, reason string, now time.Time) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.HospitalID != caller.HospitalID {
		return nil, apperrors.NotFound("appointment", nil)
	}
	if !a.Status.CanCancel() {
		return nil, apperrors.InvalidStatus("appointment", string(a.Status))
	}
	a.Status = model.AppointmentStatusCancelled
	a.CancelledAt = &now
	a.CancellationReason = &reason
	cp := *a
	return &cp, nil
}

type fixture struct {
	svc       *appointment.Service
	repo      *memoryRepository
	directory *MockDirectory
	tokens    *MockTokenIssuer
	events    *MockEmitter
	caller    model.Caller
	ctx       context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:      newMemoryRepository(),
		directory: new(MockDirectory),
		tokens:    new(MockTokenIssuer),
		events:    new(MockEmitter),
		caller:    model.Caller{HospitalID: uuid.New(), UserID: uuid.New()},
	}
	f.ctx = model.WithCaller(context.Background(), f.caller)
	f.svc = appointment.NewService(f.repo, f.directory, f.tokens, f.events, logger.Nop(), metrics.New("test"),
		appointment.WithClock(func() time.Time { return time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC) }))
	return f
}

func (f *fixture) allowAll() {
	f.directory.On("CheckPatient", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.directory.On("CheckDoctor", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	n := 0
	f.tokens.On("NextToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(func(context.Context, uuid.UUID, uuid.UUID, time.Time) string {
			n++
			return fmt.Sprintf("A-%03d", n)
		}, nil)
	f.events.On("Emit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func bookRequest(patient, doctor uuid.UUID, date, slotTime string) *model.BookAppointmentRequest {
	return &model.BookAppointmentRequest{
		PatientID:        patient,
		DoctorID:         doctor,
		Date:             date,
		SlotTime:         slotTime,
		ConsultationType: model.ConsultationTypeNew,
	}
}

func TestBook(t *testing.T) {
	f := newFixture(t)
	f.allowAll()

	apt, err := f.svc.Book(f.ctx, bookRequest(uuid.New(), uuid.New(), "2025-06-10", "09:00"))
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusScheduled, apt.Status)
	assert.Equal(t, "A-001", apt.TokenNumber)
	assert.Equal(t, f.caller.HospitalID, apt.HospitalID)
	assert.Equal(t, f.caller.UserID, apt.CreatedBy)
	assert.Equal(t, "2025-06-10", apt.AppointmentDate.Format(model.DateLayout))
	f.events.AssertCalled(t, "Emit", mock.Anything, f.caller.HospitalID, model.EventAppointmentBooked, mock.Anything)
}

func TestBookCancelFreesSlot(t *testing.T) {
	f := newFixture(t)
	f.allowAll()
	doctor := uuid.New()

	first, err := f.svc.Book(f.ctx, bookRequest(uuid.New(), doctor, "2025-06-10", "09:00"))
	require.NoError(t, err)

	_, err = f.svc.Book(f.ctx, bookRequest(uuid.New(), doctor, "2025-06-10", "09:00"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindSlotUnavailable))

	cancelled, err := f.svc.Cancel(f.ctx, first.ID, "patient request")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)

	again, err := f.svc.Book(f.ctx, bookRequest(uuid.New(), doctor, "2025-06-10", "09:00"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, again.ID)
}

func TestConcurrentBookingOfOneSlot(t *testing.T) {
	const callers = 8
	f := newFixture(t)
	f.directory.On("CheckPatient", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.directory.On("CheckDoctor", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	var issued int64
	f.tokens.On("NextToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(func(context.Context, uuid.UUID, uuid.UUID, time.Time) string {
			return fmt.Sprintf("A-%03d", atomic.AddInt64(&issued, 1))
		}, nil)
	f.events.On("Emit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	doctor := uuid.New()

	start := make(chan struct{})
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Book(f.ctx, bookRequest(uuid.New(), doctor, "2025-06-10", "09:00"))
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var booked, rejected int
	for err := range errs {
		switch {
		case err == nil:
			booked++
		case apperrors.IsKind(err, apperrors.KindSlotUnavailable):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, booked)
	assert.Equal(t, callers-1, rejected)
	assert.Len(t, f.repo.items, 1)
	// Losers still consumed a token; gaps are allowed.
	assert.Equal(t, int64(callers), atomic.LoadInt64(&issued))
}

func TestBookPatientNotFound(t *testing.T) {
	f := newFixture(t)
	f.directory.On("CheckPatient", mock.Anything, mock.Anything, mock.Anything).Return(apperrors.PatientNotFound(nil))

	_, err := f.svc.Book(f.ctx, bookRequest(uuid.New(), uuid.New(), "2025-06-10", "09:00"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindPatientNotFound))
	f.tokens.AssertNotCalled(t, "NextToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookDoctorNotFound(t *testing.T) {
	f := newFixture(t)
	f.directory.On("CheckPatient", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.directory.On("CheckDoctor", mock.Anything, mock.Anything, mock.Anything).Return(apperrors.DoctorNotFound(nil))

	_, err := f.svc.Book(f.ctx, bookRequest(uuid.New(), uuid.New(), "2025-06-10", "09:00"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindDoctorNotFound))
}

func TestBookFailsClosedWithoutToken(t *testing.T) {
	f := newFixture(t)
	f.directory.On("CheckPatient", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.directory.On("CheckDoctor", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.tokens.On("NextToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", apperrors.SequenceExhaustion(nil))

	_, err := f.svc.Book(f.ctx, bookRequest(uuid.New(), uuid.New(), "2025-06-10", "09:00"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindSequenceExhaustion))
	assert.Empty(t, f.repo.items)
}

func TestBookSucceedsWhenEventQueueFails(t *testing.T) {
	f := newFixture(t)
	f.directory.On("CheckPatient", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.directory.On("CheckDoctor", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.tokens.On("NextToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("A-001", nil)
	f.events.On("Emit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("outbox down"))

	apt, err := f.svc.Book(f.ctx, bookRequest(uuid.New(), uuid.New(), "2025-06-10", "09:00"))
	require.NoError(t, err)
	assert.NotNil(t, apt)
}

func TestBookValidation(t *testing.T) {
	tests := []struct {
		name string
		req  *model.BookAppointmentRequest
	}{
		{"unpadded slot", bookRequest(uuid.New(), uuid.New(), "2025-06-10", "9:00")},
		{"bad date", bookRequest(uuid.New(), uuid.New(), "10-06-2025", "09:00")},
		{"missing patient", bookRequest(uuid.Nil, uuid.New(), "2025-06-10", "09:00")},
		{"unknown type", &model.BookAppointmentRequest{
			PatientID: uuid.New(), DoctorID: uuid.New(), Date: "2025-06-10", SlotTime: "09:00", ConsultationType: "WALK_IN",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Book(f.ctx, tt.req)
			assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
		})
	}
}

func TestBookRequiresCaller(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Book(context.Background(), bookRequest(uuid.New(), uuid.New(), "2025-06-10", "09:00"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
}

func TestConfirmThenCancelTwice(t *testing.T) {
	f := newFixture(t)
	f.allowAll()

	apt, err := f.svc.Book(f.ctx, bookRequest(uuid.New(), uuid.New(), "2025-06-10", "10:00"))
	require.NoError(t, err)

	confirmed, err := f.svc.Confirm(f.ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, confirmed.Status)

	_, err = f.svc.Confirm(f.ctx, apt.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidStatus))

	_, err = f.svc.Cancel(f.ctx, apt.ID, "rescheduled")
	require.NoError(t, err)
	_, err = f.svc.Cancel(f.ctx, apt.ID, "rescheduled")
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidStatus))
}

func TestCancelRequiresReason(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Cancel(f.ctx, uuid.New(), "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestGetIsTenantScoped(t *testing.T) {
	f := newFixture(t)
	f.allowAll()

	apt, err := f.svc.Book(f.ctx, bookRequest(uuid.New(), uuid.New(), "2025-06-10", "11:00"))
	require.NoError(t, err)

	other := model.WithCaller(context.Background(), model.Caller{HospitalID: uuid.New(), UserID: uuid.New()})
	_, err = f.svc.Get(other, apt.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
