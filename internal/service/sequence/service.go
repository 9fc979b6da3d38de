package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/internal/repository"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
	"github.com/jwalitptl/hms-core/pkg/logger"
	"github.com/jwalitptl/hms-core/pkg/metrics"
)

// Service issues identifiers from the store-backed counters. There is no
// fallback: when the counter cannot be advanced the caller gets
// SEQUENCE_EXHAUSTION.
type Service struct {
	repo    repository.SequenceRepository
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	loc     *time.Location
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone periods are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(repo repository.SequenceRepository, log *logger.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		log:     log,
		metrics: m,
		now:     time.Now,
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next advances the counter of scopeKey.
func (s *Service) Next(ctx context.Context, kind model.SequenceKind, scopeKey string) (int64, error) {
	n, err := s.repo.Next(ctx, scopeKey)
	s.metrics.SequenceAllocations.WithLabelValues(string(kind), metrics.Result(err)).Inc()
	if err != nil {
		if !apperrors.IsKind(err, apperrors.KindSequenceExhaustion) {
			err = apperrors.SequenceExhaustion(err)
		}
		s.log.Error(err, "sequence allocation failed", "scope", scopeKey)
		return 0, err
	}
	return n, nil
}

// NextToken issues the next token of a doctor's day.
func (s *Service) NextToken(ctx context.Context, hospitalID, doctorID uuid.UUID, date time.Time) (string, error) {
	n, err := s.Next(ctx, model.SequenceKindToken, TokenScope(hospitalID, doctorID, date))
	if err != nil {
		return "", err
	}
	return FormatToken(n), nil
}

// NextAdmissionNo issues ADM-YYMM-NNNN for the current month.
func (s *Service) NextAdmissionNo(ctx context.Context, hospitalID uuid.UUID) (string, error) {
	id, err := s.nextPeriodic(ctx, hospitalID, model.SequenceKindAdmission)
	if err != nil {
		return "", err
	}
	return id.Value, nil
}

// NextIdentifier serves collaborators (billing, registration) asking for a
// number of one of the periodic kinds.
func (s *Service) NextIdentifier(ctx context.Context, kind model.SequenceKind) (*model.Identifier, error) {
	caller, ok := model.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	return s.nextPeriodic(ctx, caller.HospitalID, kind)
}

func (s *Service) nextPeriodic(ctx context.Context, hospitalID uuid.UUID, kind model.SequenceKind) (*model.Identifier, error) {
	f, ok := periodicFormats[kind]
	if !ok {
		return nil, apperrors.Validation(fmt.Sprintf("unknown identifier kind %q", kind), nil)
	}

	period := Period(s.now().In(s.loc))
	scope := PeriodScope(hospitalID, kind, period)
	n, err := s.Next(ctx, kind, scope)
	if err != nil {
		return nil, err
	}
	return &model.Identifier{
		Kind:     kind,
		Value:    FormatPeriodic(f.prefix, period, n, f.width),
		Sequence: n,
		Scope:    scope,
	}, nil
}
