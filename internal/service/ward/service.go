package ward

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/internal/repository"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
	"github.com/jwalitptl/hms-core/pkg/logger"
	"github.com/jwalitptl/hms-core/pkg/validator"
)

type Service struct {
	repo      repository.WardRepository
	validator validator.Validator
	log       *logger.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo repository.WardRepository, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		validator: validator.New(),
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateWard(ctx context.Context, req *model.CreateWardRequest) (*model.Ward, error) {
	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	w := &model.Ward{
		Name:      req.Name,
		Code:      strings.ToUpper(strings.TrimSpace(req.Code)),
		Type:      req.Type,
		DailyRate: req.DailyRate,
		IsActive:  true,
	}
	w.Stamp(caller, s.now())
	if err := s.repo.CreateWard(ctx, w); err != nil {
		s.log.Outcome(err, "create ward", "hospital_id", caller.HospitalID, "code", w.Code)
		return nil, err
	}
	return w, nil
}

// CreateBed adds an AVAILABLE bed to an active ward. The bed inherits the
// ward's daily rate unless one is given.
func (s *Service) CreateBed(ctx context.Context, wardID uuid.UUID, req *model.CreateBedRequest) (*model.Bed, error) {
	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	w, err := s.repo.GetWard(ctx, caller.HospitalID, wardID)
	if err != nil {
		return nil, err
	}
	if !w.IsActive {
		return nil, apperrors.InvalidStatus("ward", "inactive")
	}

	b := &model.Bed{
		WardID:    w.ID,
		BedNumber: strings.TrimSpace(req.BedNumber),
		Status:    model.BedStatusAvailable,
		DailyRate: w.DailyRate,
		IsActive:  true,
	}
	if req.DailyRate != nil {
		b.DailyRate = *req.DailyRate
	}
	b.Stamp(caller, s.now())
	if err := s.repo.CreateBed(ctx, b); err != nil {
		s.log.Outcome(err, "create bed", "hospital_id", caller.HospitalID, "ward_id", wardID)
		return nil, err
	}
	return b, nil
}

// SetBedStatus moves a bed between the administrative statuses. OCCUPIED is
// owned by admissions and cannot be set or cleared here.
func (s *Service) SetBedStatus(ctx context.Context, bedID uuid.UUID, status model.BedStatus) (*model.Bed, error) {
	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	if err := s.validator.Validate(&model.SetBedStatusRequest{Status: status}); err != nil {
		return nil, err
	}
	b, err := s.repo.SetBedStatus(ctx, caller, bedID, status, s.now())
	if err != nil {
		s.log.Outcome(err, "set bed status", "hospital_id", caller.HospitalID, "bed_id", bedID, "status", status)
		return nil, err
	}
	return b, nil
}

// Occupancy is computed from live bed rows on every call.
func (s *Service) Occupancy(ctx context.Context) (*model.OccupancyReport, error) {
	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	wards, err := s.repo.Occupancy(ctx, caller.HospitalID)
	if err != nil {
		return nil, err
	}
	for _, w := range wards {
		w.OccupancyRate = OccupancyRate(w.Occupied, w.TotalBeds)
	}
	return &model.OccupancyReport{
		HospitalID:  caller.HospitalID,
		GeneratedAt: s.now(),
		Wards:       wards,
	}, nil
}

// OccupancyRate is occupied/total, 0 for a ward without beds.
func OccupancyRate(occupied, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(occupied) / float64(total)
}
