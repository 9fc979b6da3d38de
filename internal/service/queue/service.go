package queue

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

// Service drives the outpatient line of a doctor's day. Every transition is
// a single repository call that runs as one transaction.
type Service struct {
	repo      repository.QueueRepository
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

// WithLocation sets the zone that decides which queue day "today" is.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(repo repository.QueueRepository, log *logger.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
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

func (s *Service) today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// CheckIn queues one of today's appointments.
func (s *Service) CheckIn(ctx context.Context, appointmentID uuid.UUID) (entry *model.QueueEntry, err error) {
	done := s.metrics.Track("check_in")
	defer func() { done(err) }()

	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	entry, err = s.repo.CheckIn(ctx, caller, appointmentID, s.today(), s.now())
	if err != nil {
		s.log.Outcome(err, "check in", "hospital_id", caller.HospitalID, "appointment_id", appointmentID)
		return nil, err
	}
	return entry, nil
}

// CallNext moves the first waiting patient of today's queue into
// consultation.
func (s *Service) CallNext(ctx context.Context, doctorID uuid.UUID) (entry *model.QueueEntry, err error) {
	done := s.metrics.Track("call_next")
	defer func() { done(err) }()

	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	entry, err = s.repo.CallNext(ctx, caller, doctorID, s.today(), s.now())
	if err != nil {
		s.log.Outcome(err, "call next", "hospital_id", caller.HospitalID, "doctor_id", doctorID)
		return nil, err
	}
	return entry, nil
}

func (s *Service) Complete(ctx context.Context, entryID uuid.UUID) (entry *model.QueueEntry, err error) {
	done := s.metrics.Track("complete")
	defer func() { done(err) }()

	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	entry, err = s.repo.Complete(ctx, caller, entryID, s.now())
	if err != nil {
		s.log.Outcome(err, "complete consultation", "hospital_id", caller.HospitalID, "queue_entry_id", entryID)
		return nil, err
	}
	return entry, nil
}

func (s *Service) Skip(ctx context.Context, entryID uuid.UUID, reason string) (entry *model.QueueEntry, err error) {
	done := s.metrics.Track("skip")
	defer func() { done(err) }()

	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	if err := s.validator.ValidateField("reason", reason, "required,max=500"); err != nil {
		return nil, err
	}
	entry, err = s.repo.Skip(ctx, caller, entryID, reason, s.now())
	if err != nil {
		s.log.Outcome(err, "skip", "hospital_id", caller.HospitalID, "queue_entry_id", entryID)
		return nil, err
	}
	return entry, nil
}

// Board splits a doctor's day into the current consultation, the waiting
// line in call order, and finished entries. date is YYYY-MM-DD; empty means
// today.
func (s *Service) Board(ctx context.Context, doctorID uuid.UUID, date string) (*model.QueueBoard, error) {
	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}

	day := s.today()
	if date != "" {
		var err error
		day, err = time.ParseInLocation(model.DateLayout, date, s.loc)
		if err != nil {
			return nil, apperrors.Validation("date must be YYYY-MM-DD", err)
		}
	}

	entries, err := s.repo.ListByDoctorDate(ctx, caller.HospitalID, doctorID, day)
	if err != nil {
		return nil, err
	}

	board := &model.QueueBoard{
		DoctorID: doctorID,
		Date:     day.Format(model.DateLayout),
		Waiting:  []*model.QueueEntry{},
		Done:     []*model.QueueEntry{},
	}
	for _, e := range entries {
		switch e.Status {
		case model.QueueStatusInConsultation:
			board.Current = e
		case model.QueueStatusWaiting:
			board.Waiting = append(board.Waiting, e)
		default:
			board.Done = append(board.Done, e)
		}
	}
	return board, nil
}
