package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/internal/repository"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
)

// directoryRepository reads the registry tables owned by the patient and
// staff modules. This core never writes them.
type directoryRepository struct {
	BaseRepository
}

func NewDirectoryRepository(db *sqlx.DB) repository.DirectoryRepository {
	return &directoryRepository{NewBaseRepository(db)}
}

func (r *directoryRepository) GetPatient(ctx context.Context, hospitalID, id uuid.UUID) (*model.PatientRef, error) {
	var p model.PatientRef
	err := r.db.GetContext(ctx, &p,
		`SELECT id, hospital_id, deleted_at FROM patients WHERE id = $1 AND hospital_id = $2`, id, hospitalID)
	if isNoRows(err) {
		return nil, apperrors.PatientNotFound(nil)
	}
	if err != nil {
		return nil, storeError("get patient", err)
	}
	return &p, nil
}

func (r *directoryRepository) GetDoctor(ctx context.Context, hospitalID, id uuid.UUID) (*model.DoctorRef, error) {
	var d model.DoctorRef
	err := r.db.GetContext(ctx, &d,
		`SELECT id, hospital_id, is_active FROM doctors WHERE id = $1 AND hospital_id = $2`, id, hospitalID)
	if isNoRows(err) {
		return nil, apperrors.DoctorNotFound(nil)
	}
	if err != nil {
		return nil, storeError("get doctor", err)
	}
	return &d, nil
}
