package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/internal/repository"
	"github.com/jwalitptl/hms-core/internal/service/event"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
	"github.com/jwalitptl/hms-core/pkg/logger"
	"github.com/jwalitptl/hms-core/pkg/metrics"
	"github.com/jwalitptl/hms-core/pkg/validator"
)

type Directory interface {
	CheckPatient(ctx context.Context, hospitalID, patientID uuid.UUID) error
	CheckDoctor(ctx context.Context, hospitalID, doctorID uuid.UUID) error
}

type TokenIssuer interface {
	NextToken(ctx context.Context, hospitalID, doctorID uuid.UUID, date time.Time) (string, error)
}

type Service struct {
	repo      repository.AppointmentRepository
	directory Directory
	tokens    TokenIssuer
	events    event.Emitter
	validator validator.Validator
	log       *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	loc       *time.Location
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(repo repository.AppointmentRepository, directory Directory, tokens TokenIssuer, events event.Emitter, log *logger.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		directory: directory,
		tokens:    tokens,
		events:    events,
		validator: validator.New(),
		log:       log,
		metrics:   m,
		now:       time.Now,
		loc:       time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type bookedEvent struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	Date          string    `json:"date"`
	SlotTime      string    `json:"slot_time"`
	TokenNumber   string    `json:"token_number"`
}

// Book reserves a slot. The store's unique index on live (doctor, date,
// slot) decides races; the loser gets SLOT_UNAVAILABLE and its token number
// is simply skipped.
func (s *Service) Book(ctx context.Context, req *model.BookAppointmentRequest) (apt *model.Appointment, err error) {
	done := s.metrics.Track("book")
	defer func() { done(err) }()

	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	date, err := time.ParseInLocation(model.DateLayout, req.Date, s.loc)
	if err != nil {
		return nil, apperrors.Validation("date must be YYYY-MM-DD", err)
	}

	if err := s.directory.CheckPatient(ctx, caller.HospitalID, req.PatientID); err != nil {
		return nil, err
	}
	if err := s.directory.CheckDoctor(ctx, caller.HospitalID, req.DoctorID); err != nil {
		return nil, err
	}

	token, err := s.tokens.NextToken(ctx, caller.HospitalID, req.DoctorID, date)
	if err != nil {
		return nil, err
	}

	apt = &model.Appointment{
		PatientID:        req.PatientID,
		DoctorID:         req.DoctorID,
		AppointmentDate:  date,
		SlotTime:         req.SlotTime,
		Status:           model.AppointmentStatusScheduled,
		TokenNumber:      token,
		ConsultationType: req.ConsultationType,
	}
	if req.ChiefComplaint != "" {
		apt.ChiefComplaint = &req.ChiefComplaint
	}
	apt.Stamp(caller, s.now())

	if err := s.repo.Create(ctx, apt); err != nil {
		s.log.Outcome(err, "book appointment",
			"hospital_id", caller.HospitalID, "doctor_id", req.DoctorID, "date", req.Date, "slot_time", req.SlotTime)
		return nil, err
	}

	if err := s.events.Emit(ctx, caller.HospitalID, model.EventAppointmentBooked, bookedEvent{
		AppointmentID: apt.ID,
		PatientID:     apt.PatientID,
		DoctorID:      apt.DoctorID,
		Date:          req.Date,
		SlotTime:      apt.SlotTime,
		TokenNumber:   apt.TokenNumber,
	}); err != nil {
		s.log.Error(err, "failed to queue booking event", "appointment_id", apt.ID)
	}

	return apt, nil
}

func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (apt *model.Appointment, err error) {
	done := s.metrics.Track("confirm")
	defer func() { done(err) }()

	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	apt, err = s.repo.Confirm(ctx, caller, id, s.now())
	if err != nil {
		s.log.Outcome(err, "confirm appointment", "hospital_id", caller.HospitalID, "appointment_id", id)
		return nil, err
	}
	return apt, nil
}

// Cancel frees the slot for rebooking.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (apt *model.Appointment, err error) {
	done := s.metrics.Track("cancel")
	defer func() { done(err) }()

	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	if err := s.validator.ValidateField("reason", reason, "required,max=500"); err != nil {
		return nil, err
	}
	apt, err = s.repo.Cancel(ctx, caller, id, reason, s.now())
	if err != nil {
		s.log.Outcome(err, "cancel appointment", "hospital_id", caller.HospitalID, "appointment_id", id)
		return nil, err
	}
	return apt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	return s.repo.Get(ctx, caller.HospitalID, id)
}

// List always scopes the filter to the caller's hospital.
func (s *Service) List(ctx context.Context, filter *model.AppointmentFilter) ([]*model.Appointment, error) {
	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	if filter == nil {
		filter = &model.AppointmentFilter{}
	}
	filter.HospitalID = caller.HospitalID
	return s.repo.List(ctx, filter)
}
