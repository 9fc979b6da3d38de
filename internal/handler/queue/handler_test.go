package queue_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/hms-core/internal/handler"
	"github.com/jwalitptl/hms-core/internal/handler/queue"
	"github.com/jwalitptl/hms-core/internal/middleware"
	"github.com/jwalitptl/hms-core/internal/model"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
	handler.RegisterBindingRules()
}

type MockService struct {
	mock.Mock
}

func (m *MockService) entry(args mock.Arguments) (*model.QueueEntry, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QueueEntry), args.Error(1)
}

func (m *MockService) CheckIn(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	return m.entry(m.Called(ctx, id))
}

func (m *MockService) CallNext(ctx context.Context, doctorID uuid.UUID) (*model.QueueEntry, error) {
	return m.entry(m.Called(ctx, doctorID))
}

func (m *MockService) Complete(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	return m.entry(m.Called(ctx, id))
}

func (m *MockService) Skip(ctx context.Context, id uuid.UUID, reason string) (*model.QueueEntry, error) {
	return m.entry(m.Called(ctx, id, reason))
}

func (m *MockService) Board(ctx context.Context, doctorID uuid.UUID, date string) (*model.QueueBoard, error) {
	args := m.Called(ctx, doctorID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QueueBoard), args.Error(1)
}

func serve(svc *MockService, method, path, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	queue.NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCallNextConflicts(t *testing.T) {
	doctor := uuid.New()
	for name, err := range map[string]error{
		"PATIENT_IN_CONSULTATION": apperrors.PatientInConsultation(),
		"NO_WAITING_PATIENTS":     apperrors.NoWaitingPatients(),
	} {
		t.Run(name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("CallNext", mock.Anything, doctor).Return(nil, err)

			w := serve(svc, http.MethodPost, "/api/v1/doctors/"+doctor.String()+"/queue/next", "")

			assert.Equal(t, http.StatusConflict, w.Code)
			assert.Contains(t, w.Body.String(), name)
		})
	}
}

func TestSkipRequiresReason(t *testing.T) {
	svc := new(MockService)
	w := serve(svc, http.MethodPost, "/api/v1/queue/"+uuid.NewString()+"/skip", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Skip", mock.Anything, mock.Anything, mock.Anything)
}

func TestBoardPassesDate(t *testing.T) {
	svc := new(MockService)
	doctor := uuid.New()
	svc.On("Board", mock.Anything, doctor, "2025-06-10").
		Return(&model.QueueBoard{DoctorID: doctor, Date: "2025-06-10"}, nil)

	w := serve(svc, http.MethodGet, "/api/v1/doctors/"+doctor.String()+"/queue?date=2025-06-10", "")

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
