package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/internal/repository"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
)

var admissionColumns = strings.Join([]string{
	"id", "hospital_id", "admission_no", "patient_id", "admitting_doctor_id",
	"attending_doctor_id", "appointment_id", "bed_id", "admission_date", "admission_reason",
	"status", "discharge_date", "discharge_type", "discharge_summary", "discharge_notes",
	"created_by", "updated_by", "created_at", "updated_at",
}, ", ")

const transferColumns = `id, hospital_id, admission_id, from_bed_id, to_bed_id, transfer_date, reason, created_by`

type admissionRepository struct {
	BaseRepository
}

func NewAdmissionRepository(db *sqlx.DB) repository.AdmissionRepository {
	return &admissionRepository{NewBaseRepository(db)}
}

// Admit locks the bed row, checks it is free, then writes the admission and
// the OCCUPIED flip in one transaction. The partial unique index on
// admissions(bed_id) backs the row lock.
func (r *admissionRepository) Admit(ctx context.Context, a *model.Admission) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		bed, err := selectBedForUpdate(ctx, tx, a.HospitalID, a.BedID)
		if err != nil {
			return err
		}
		if !bed.IsActive || bed.Status != model.BedStatusAvailable {
			return apperrors.BedNotAvailable(fmt.Errorf("bed %s is %s", bed.BedNumber, bed.Status))
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO admissions (
				id, hospital_id, admission_no, patient_id, admitting_doctor_id,
				attending_doctor_id, appointment_id, bed_id, admission_date, admission_reason,
				status, created_by, updated_by, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`,
			a.ID, a.HospitalID, a.AdmissionNo, a.PatientID, a.AdmittingDoctorID,
			a.AttendingDoctorID, a.AppointmentID, a.BedID, a.AdmissionDate, a.AdmissionReason,
			a.Status, a.CreatedBy, a.UpdatedBy, a.CreatedAt, a.UpdatedAt,
		)
		if constraint, ok := uniqueViolation(err); ok {
			switch constraint {
			case constraintActiveBed:
				return apperrors.BedNotAvailable(err)
			case constraintActivePatient:
				return apperrors.InvalidStatus("patient", "already admitted")
			}
		}
		if err != nil {
			return err
		}

		return setBedStatus(ctx, tx, a.BedID, model.BedStatusAvailable, model.BedStatusOccupied, a.UpdatedBy, a.UpdatedAt)
	})
}

func (r *admissionRepository) Discharge(ctx context.Context, caller model.Caller, admissionID uuid.UUID, req *model.DischargeRequest, now time.Time) (*model.Admission, error) {
	var out model.Admission
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		adm, err := selectAdmissionForUpdate(ctx, tx, caller.HospitalID, admissionID)
		if err != nil {
			return err
		}
		if adm.Status != model.AdmissionStatusAdmitted {
			return apperrors.InvalidStatus("admission", string(adm.Status))
		}

		var notes *string
		if req.DischargeNotes != "" {
			notes = &req.DischargeNotes
		}
		if err := tx.GetContext(ctx, &out, `
			UPDATE admissions
			SET status = $1, discharge_date = $2, discharge_type = $3, discharge_summary = $4,
				discharge_notes = $5, updated_by = $6, updated_at = $2
			WHERE id = $7
			RETURNING `+admissionColumns,
			model.AdmissionStatusDischarged, now, req.DischargeType, req.DischargeSummary,
			notes, caller.UserID, adm.ID); err != nil {
			return err
		}

		return setBedStatus(ctx, tx, adm.BedID, model.BedStatusOccupied, model.BedStatusAvailable, caller.UserID, now)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Transfer is the four-way write: audit row, admission pointer, source bed
// released, target bed occupied. Both beds are locked in id order.
func (r *admissionRepository) Transfer(ctx context.Context, caller model.Caller, admissionID, toBedID uuid.UUID, reason string, now time.Time) (*model.BedTransfer, error) {
	var transfer model.BedTransfer
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		adm, err := selectAdmissionForUpdate(ctx, tx, caller.HospitalID, admissionID)
		if err != nil {
			return err
		}
		if adm.Status != model.AdmissionStatusAdmitted {
			return apperrors.InvalidStatus("admission", string(adm.Status))
		}
		if adm.BedID == toBedID {
			return apperrors.BedNotAvailable(fmt.Errorf("admission already occupies bed %s", toBedID))
		}

		var beds []*model.Bed
		if err := tx.SelectContext(ctx, &beds, `
			SELECT `+bedColumns+`
			FROM beds
			WHERE id = ANY($1) AND hospital_id = $2
			ORDER BY id
			FOR UPDATE
		`, pq.Array([]string{adm.BedID.String(), toBedID.String()}), caller.HospitalID); err != nil {
			return err
		}

		var target *model.Bed
		for _, b := range beds {
			if b.ID == toBedID {
				target = b
			}
		}
		if target == nil {
			return apperrors.NotFound("bed", nil)
		}
		if !target.IsActive || target.Status != model.BedStatusAvailable {
			return apperrors.BedNotAvailable(fmt.Errorf("bed %s is %s", target.BedNumber, target.Status))
		}

		transfer = model.BedTransfer{
			ID:           uuid.New(),
			HospitalID:   caller.HospitalID,
			AdmissionID:  adm.ID,
			FromBedID:    adm.BedID,
			ToBedID:      toBedID,
			TransferDate: now,
			Reason:       reason,
			CreatedBy:    caller.UserID,
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bed_transfers (`+transferColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, transfer.ID, transfer.HospitalID, transfer.AdmissionID, transfer.FromBedID,
			transfer.ToBedID, transfer.TransferDate, transfer.Reason, transfer.CreatedBy); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE admissions SET bed_id = $1, updated_by = $2, updated_at = $3 WHERE id = $4
		`, toBedID, caller.UserID, now, adm.ID)
		if constraint, ok := uniqueViolation(err); ok && constraint == constraintActiveBed {
			return apperrors.BedNotAvailable(err)
		}
		if err != nil {
			return err
		}

		if err := setBedStatus(ctx, tx, adm.BedID, model.BedStatusOccupied, model.BedStatusAvailable, caller.UserID, now); err != nil {
			return err
		}
		return setBedStatus(ctx, tx, toBedID, model.BedStatusAvailable, model.BedStatusOccupied, caller.UserID, now)
	})
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *admissionRepository) Get(ctx context.Context, hospitalID, id uuid.UUID) (*model.Admission, error) {
	var a model.Admission
	err := r.db.GetContext(ctx, &a,
		`SELECT `+admissionColumns+` FROM admissions WHERE id = $1 AND hospital_id = $2`, id, hospitalID)
	if isNoRows(err) {
		return nil, apperrors.NotFound("admission", nil)
	}
	if err != nil {
		return nil, storeError("get admission", err)
	}
	return &a, nil
}

func (r *admissionRepository) ListTransfers(ctx context.Context, hospitalID, admissionID uuid.UUID) ([]*model.BedTransfer, error) {
	var transfers []*model.BedTransfer
	err := r.db.SelectContext(ctx, &transfers, `
		SELECT `+transferColumns+`
		FROM bed_transfers
		WHERE hospital_id = $1 AND admission_id = $2
		ORDER BY transfer_date
	`, hospitalID, admissionID)
	if err != nil {
		return nil, storeError("list bed transfers", err)
	}
	return transfers, nil
}

func selectAdmissionForUpdate(ctx context.Context, tx *sqlx.Tx, hospitalID, id uuid.UUID) (*model.Admission, error) {
	var a model.Admission
	err := tx.GetContext(ctx, &a,
		`SELECT `+admissionColumns+` FROM admissions WHERE id = $1 AND hospital_id = $2 FOR UPDATE`, id, hospitalID)
	if isNoRows(err) {
		return nil, apperrors.NotFound("admission", nil)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// setBedStatus flips a bed only from the expected status. Zero rows means
// bed and admission have drifted apart, and the unit must not commit.
func setBedStatus(ctx context.Context, tx *sqlx.Tx, bedID uuid.UUID, from, to model.BedStatus, actor uuid.UUID, now time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE beds SET status = $1, updated_by = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`, to, actor, now, bedID, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("bed %s expected %s, lockstep violated", bedID, from)
	}
	return nil
}
