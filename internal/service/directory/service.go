package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/hms-core/internal/repository"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
	"github.com/jwalitptl/hms-core/pkg/metrics"
)

// Service answers "does this patient/doctor exist and may they be booked".
//
// CheckPatient and CheckDoctor gate writes and always read the store.
// CheckDoctor's answer also refreshes the cache KnownDoctor serves to
// read-only views, so a deactivation seen by a write evicts the entry at
// once. Only positive answers are cached. Nothing here serialises writers.
type Service struct {
	repo    repository.DirectoryRepository
	cache   *cache.Cache
	metrics *metrics.Metrics
}

func NewService(repo repository.DirectoryRepository, m *metrics.Metrics, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{
		repo:    repo,
		cache:   cache.New(ttl, 2*ttl),
		metrics: m,
	}
}

func doctorKey(hospitalID, doctorID uuid.UUID) string {
	return fmt.Sprintf("doctor:%s:%s", hospitalID, doctorID)
}

func (s *Service) CheckPatient(ctx context.Context, hospitalID, patientID uuid.UUID) error {
	p, err := s.repo.GetPatient(ctx, hospitalID, patientID)
	if err != nil {
		return err
	}
	if p.DeletedAt != nil {
		return apperrors.PatientNotFound(nil)
	}
	return nil
}

func (s *Service) CheckDoctor(ctx context.Context, hospitalID, doctorID uuid.UUID) error {
	return s.checkDoctor(ctx, doctorKey(hospitalID, doctorID), hospitalID, doctorID)
}

// KnownDoctor is CheckDoctor for read-only views. A positive answer may be
// up to one TTL old.
func (s *Service) KnownDoctor(ctx context.Context, hospitalID, doctorID uuid.UUID) error {
	key := doctorKey(hospitalID, doctorID)
	if _, found := s.cache.Get(key); found {
		s.metrics.DirectoryCache.WithLabelValues("doctor", "hit").Inc()
		return nil
	}
	s.metrics.DirectoryCache.WithLabelValues("doctor", "miss").Inc()
	return s.checkDoctor(ctx, key, hospitalID, doctorID)
}

func (s *Service) checkDoctor(ctx context.Context, key string, hospitalID, doctorID uuid.UUID) error {
	d, err := s.repo.GetDoctor(ctx, hospitalID, doctorID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindDoctorNotFound) {
			s.cache.Delete(key)
		}
		return err
	}
	if !d.IsActive {
		s.cache.Delete(key)
		return apperrors.DoctorNotFound(nil)
	}
	s.cache.SetDefault(key, true)
	return nil
}
