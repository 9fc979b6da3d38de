package slot

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/internal/repository"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
	"github.com/jwalitptl/hms-core/pkg/logger"
	"github.com/jwalitptl/hms-core/pkg/metrics"
	"github.com/jwalitptl/hms-core/pkg/validator"
)

// BookedSlots is the read the planner needs from appointments.
type BookedSlots interface {
	BookedSlotTimes(ctx context.Context, hospitalID, doctorID uuid.UUID, date time.Time) ([]string, error)
}

// DoctorChecker gates block creation on the store and availability on the
// cached view.
type DoctorChecker interface {
	CheckDoctor(ctx context.Context, hospitalID, doctorID uuid.UUID) error
	KnownDoctor(ctx context.Context, hospitalID, doctorID uuid.UUID) error
}

type Service struct {
	repo      repository.ScheduleRepository
	booked    BookedSlots
	doctors   DoctorChecker
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

// WithLocation sets the zone calendar dates are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(repo repository.ScheduleRepository, booked BookedSlots, doctors DoctorChecker, log *logger.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		booked:    booked,
		doctors:   doctors,
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

func (s *Service) CreateBlock(ctx context.Context, req *model.CreateScheduleBlockRequest) (block *model.ScheduleBlock, err error) {
	done := s.metrics.Track("schedule_create")
	defer func() { done(err) }()

	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	block = &model.ScheduleBlock{
		DoctorID:            req.DoctorID,
		DayOfWeek:           *req.DayOfWeek,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		SlotDurationMinutes: req.SlotDurationMinutes,
		BufferMinutes:       req.BufferMinutes,
		MaxPatients:         req.MaxPatients,
		IsActive:            true,
	}
	if err := ValidateBlock(block); err != nil {
		return nil, err
	}
	if err := s.doctors.CheckDoctor(ctx, caller.HospitalID, req.DoctorID); err != nil {
		return nil, err
	}

	block.Stamp(caller, s.now())
	if err := s.repo.Create(ctx, block); err != nil {
		s.log.Outcome(err, "create schedule block", "hospital_id", caller.HospitalID, "doctor_id", req.DoctorID)
		return nil, err
	}
	return block, nil
}

func (s *Service) DeactivateBlock(ctx context.Context, id uuid.UUID) (*model.ScheduleBlock, error) {
	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	block, err := s.repo.Deactivate(ctx, caller, id, s.now())
	if err != nil {
		s.log.Outcome(err, "deactivate schedule block", "hospital_id", caller.HospitalID, "block_id", id)
		return nil, err
	}
	return block, nil
}

func (s *Service) ListBlocks(ctx context.Context, doctorID uuid.UUID) ([]*model.ScheduleBlock, error) {
	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	return s.repo.ListByDoctor(ctx, caller.HospitalID, doctorID)
}

// Availability plans one doctor's day. date is YYYY-MM-DD; empty means today.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, date string) (out *model.Availability, err error) {
	done := s.metrics.Track("availability")
	defer func() { done(err) }()

	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}

	day := s.now().In(s.loc)
	if date != "" {
		day, err = time.ParseInLocation(model.DateLayout, date, s.loc)
		if err != nil {
			return nil, apperrors.Validation("date must be YYYY-MM-DD", err)
		}
	}

	if err := s.doctors.KnownDoctor(ctx, caller.HospitalID, doctorID); err != nil {
		return nil, err
	}

	blocks, err := s.repo.ListActiveForDay(ctx, caller.HospitalID, doctorID, int(day.Weekday()))
	if err != nil {
		return nil, err
	}
	booked, err := s.booked.BookedSlotTimes(ctx, caller.HospitalID, doctorID, day)
	if err != nil {
		return nil, err
	}

	return &model.Availability{
		DoctorID: doctorID,
		Date:     day.Format(model.DateLayout),
		Slots:    ComputeSlots(blocks, booked),
	}, nil
}
