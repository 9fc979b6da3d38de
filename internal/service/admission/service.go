package admission

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

type NumberIssuer interface {
	NextAdmissionNo(ctx context.Context, hospitalID uuid.UUID) (string, error)
}

// AppointmentReader loads the visit an admission is converted from.
type AppointmentReader interface {
	Get(ctx context.Context, hospitalID, id uuid.UUID) (*model.Appointment, error)
}

type Service struct {
	repo         repository.AdmissionRepository
	appointments AppointmentReader
	directory    Directory
	numbers      NumberIssuer
	events       event.Emitter
	validator    validator.Validator
	log          *logger.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	repo repository.AdmissionRepository,
	appointments AppointmentReader,
	directory Directory,
	numbers NumberIssuer,
	events event.Emitter,
	log *logger.Logger,
	m *metrics.Metrics,
	opts ...Option,
) *Service {
	s := &Service{
		repo:         repo,
		appointments: appointments,
		directory:    directory,
		numbers:      numbers,
		events:       events,
		validator:    validator.New(),
		log:          log,
		metrics:      m,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type admittedEvent struct {
	AdmissionID uuid.UUID  `json:"admission_id"`
	AdmissionNo string     `json:"admission_no"`
	PatientID   uuid.UUID  `json:"patient_id"`
	BedID       uuid.UUID  `json:"bed_id"`
	FromVisit   *uuid.UUID `json:"appointment_id,omitempty"`
}

// Admit puts a patient into an AVAILABLE bed. The admission row and the bed
// flip commit together in the repository.
func (s *Service) Admit(ctx context.Context, req *model.AdmitRequest) (adm *model.Admission, err error) {
	done := s.metrics.Track("admit")
	defer func() { done(err) }()

	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := s.directory.CheckPatient(ctx, caller.HospitalID, req.PatientID); err != nil {
		return nil, err
	}

	return s.admit(ctx, caller, &model.Admission{
		PatientID:         req.PatientID,
		AdmittingDoctorID: req.AdmittingDoctorID,
		AttendingDoctorID: req.AttendingDoctorID,
		BedID:             req.BedID,
		AdmissionReason:   req.AdmissionReason,
	})
}

// AdmitFromVisit converts a completed outpatient visit into an admission
// under the visit's patient and doctor.
func (s *Service) AdmitFromVisit(ctx context.Context, appointmentID uuid.UUID, req *model.AdmitFromVisitRequest) (adm *model.Admission, err error) {
	done := s.metrics.Track("admit_from_visit")
	defer func() { done(err) }()

	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	apt, err := s.appointments.Get(ctx, caller.HospitalID, appointmentID)
	if err != nil {
		return nil, err
	}
	if apt.Status != model.AppointmentStatusCompleted {
		return nil, apperrors.InvalidStatus("appointment", string(apt.Status))
	}

	visit := apt.ID
	return s.admit(ctx, caller, &model.Admission{
		PatientID:         apt.PatientID,
		AdmittingDoctorID: apt.DoctorID,
		AttendingDoctorID: req.AttendingDoctorID,
		AppointmentID:     &visit,
		BedID:             req.BedID,
		AdmissionReason:   req.AdmissionReason,
	})
}

func (s *Service) admit(ctx context.Context, caller model.Caller, adm *model.Admission) (*model.Admission, error) {
	if err := s.directory.CheckDoctor(ctx, caller.HospitalID, adm.AdmittingDoctorID); err != nil {
		return nil, err
	}
	if adm.AttendingDoctorID != nil {
		if err := s.directory.CheckDoctor(ctx, caller.HospitalID, *adm.AttendingDoctorID); err != nil {
			return nil, err
		}
	}

	no, err := s.numbers.NextAdmissionNo(ctx, caller.HospitalID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	adm.AdmissionNo = no
	adm.AdmissionDate = now
	adm.Status = model.AdmissionStatusAdmitted
	adm.Stamp(caller, now)

	if err := s.repo.Admit(ctx, adm); err != nil {
		s.log.Outcome(err, "admit",
			"hospital_id", caller.HospitalID, "patient_id", adm.PatientID, "bed_id", adm.BedID)
		return nil, err
	}

	if err := s.events.Emit(ctx, caller.HospitalID, model.EventAdmissionCreated, admittedEvent{
		AdmissionID: adm.ID,
		AdmissionNo: adm.AdmissionNo,
		PatientID:   adm.PatientID,
		BedID:       adm.BedID,
		FromVisit:   adm.AppointmentID,
	}); err != nil {
		s.log.Error(err, "failed to queue admission event", "admission_id", adm.ID)
	}
	return adm, nil
}

// Discharge ends the stay and frees the bed in the same unit.
func (s *Service) Discharge(ctx context.Context, id uuid.UUID, req *model.DischargeRequest) (adm *model.Admission, err error) {
	done := s.metrics.Track("discharge")
	defer func() { done(err) }()

	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	adm, err = s.repo.Discharge(ctx, caller, id, req, s.now())
	if err != nil {
		s.log.Outcome(err, "discharge", "hospital_id", caller.HospitalID, "admission_id", id)
		return nil, err
	}
	return adm, nil
}

func (s *Service) Transfer(ctx context.Context, id uuid.UUID, req *model.TransferBedRequest) (tr *model.BedTransfer, err error) {
	done := s.metrics.Track("transfer")
	defer func() { done(err) }()

	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	tr, err = s.repo.Transfer(ctx, caller, id, req.ToBedID, req.Reason, s.now())
	if err != nil {
		s.log.Outcome(err, "transfer bed",
			"hospital_id", caller.HospitalID, "admission_id", id, "to_bed_id", req.ToBedID)
		return nil, err
	}
	return tr, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Admission, error) {
	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	return s.repo.Get(ctx, caller.HospitalID, id)
}

// ListTransfers returns NOT_FOUND for an unknown admission rather than an
// empty history.
func (s *Service) ListTransfers(ctx context.Context, id uuid.UUID) ([]*model.BedTransfer, error) {
	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	if _, err := s.repo.Get(ctx, caller.HospitalID, id); err != nil {
		return nil, err
	}
	return s.repo.ListTransfers(ctx, caller.HospitalID, id)
}
