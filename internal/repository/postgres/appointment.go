package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/internal/repository"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
)

var appointmentFields = []string{
	"id", "hospital_id", "patient_id", "doctor_id", "appointment_date", "slot_time",
	"status", "token_number", "consultation_type", "chief_complaint",
	"checked_in_at", "consultation_start_at", "consultation_end_at",
	"cancelled_at", "cancellation_reason", "deleted_at",
	"created_by", "updated_by", "created_at", "updated_at",
}

var appointmentColumns = strings.Join(appointmentFields, ", ")

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

func (r *appointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, hospital_id, patient_id, doctor_id, appointment_date, slot_time,
			status, token_number, consultation_type, chief_complaint,
			created_by, updated_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.HospitalID, a.PatientID, a.DoctorID, dateArg(a.AppointmentDate), a.SlotTime,
		a.Status, a.TokenNumber, a.ConsultationType, a.ChiefComplaint,
		a.CreatedBy, a.UpdatedBy, a.CreatedAt, a.UpdatedAt,
	)
	if constraint, ok := uniqueViolation(err); ok && constraint == constraintLiveSlot {
		return apperrors.SlotUnavailable(err)
	}
	return storeError("create appointment", err)
}

func (r *appointmentRepository) Get(ctx context.Context, hospitalID, id uuid.UUID) (*model.Appointment, error) {
	var a model.Appointment
	err := r.db.GetContext(ctx, &a, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND hospital_id = $2 AND deleted_at IS NULL
	`, id, hospitalID)
	if isNoRows(err) {
		return nil, apperrors.NotFound("appointment", nil)
	}
	if err != nil {
		return nil, storeError("get appointment", err)
	}
	return &a, nil
}

func (r *appointmentRepository) List(ctx context.Context, f *model.AppointmentFilter) ([]*model.Appointment, error) {
	cols := make([]interface{}, len(appointmentFields))
	for i, c := range appointmentFields {
		cols[i] = c
	}

	ds := dialect.From("appointments").Prepared(true).Select(cols...).
		Where(goqu.Ex{"hospital_id": f.HospitalID, "deleted_at": nil})

	if f.DoctorID != nil {
		ds = ds.Where(goqu.Ex{"doctor_id": *f.DoctorID})
	}
	if f.PatientID != nil {
		ds = ds.Where(goqu.Ex{"patient_id": *f.PatientID})
	}
	if f.Status != nil {
		ds = ds.Where(goqu.Ex{"status": string(*f.Status)})
	}
	if f.DateFrom != nil {
		ds = ds.Where(goqu.C("appointment_date").Gte(dateArg(*f.DateFrom)))
	}
	if f.DateTo != nil {
		ds = ds.Where(goqu.C("appointment_date").Lte(dateArg(*f.DateTo)))
	}

	page := f.Pagination.Normalize()
	ds = ds.Order(goqu.C("appointment_date").Asc(), goqu.C("slot_time").Asc()).
		Limit(uint(page.PageSize)).
		Offset(page.Offset())

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build appointment list query: %w", err)
	}

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, storeError("list appointments", err)
	}
	return appointments, nil
}

// BookedSlotTimes returns the slot times held by live appointments.
func (r *appointmentRepository) BookedSlotTimes(ctx context.Context, hospitalID, doctorID uuid.UUID, date time.Time) ([]string, error) {
	query := `
		SELECT slot_time
		FROM appointments
		WHERE hospital_id = $1 AND doctor_id = $2 AND appointment_date = $3
		AND status NOT IN ('CANCELLED', 'NO_SHOW') AND deleted_at IS NULL
	`
	var times []string
	if err := r.db.SelectContext(ctx, &times, query, hospitalID, doctorID, dateArg(date)); err != nil {
		return nil, storeError("list booked slots", err)
	}
	return times, nil
}

func (r *appointmentRepository) Confirm(ctx context.Context, caller model.Caller, id uuid.UUID, now time.Time) (*model.Appointment, error) {
	var out model.Appointment
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		apt, err := selectAppointmentForUpdate(ctx, tx, caller.HospitalID, id)
		if err != nil {
			return err
		}
		if apt.Status != model.AppointmentStatusScheduled {
			return apperrors.InvalidStatus("appointment", string(apt.Status))
		}
		return tx.GetContext(ctx, &out, `
			UPDATE appointments
			SET status = $1, updated_by = $2, updated_at = $3
			WHERE id = $4
			RETURNING `+appointmentColumns,
			model.AppointmentStatusConfirmed, caller.UserID, now, id)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel frees the slot. A checked-in appointment also leaves the queue:
// its WAITING entry is skipped and the positions behind it close up.
func (r *appointmentRepository) Cancel(ctx context.Context, caller model.Caller, id uuid.UUID, reason string, now time.Time) (*model.Appointment, error) {
	var out model.Appointment
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		apt, err := lockAppointment(ctx, tx, caller.HospitalID, id)
		if err != nil {
			return err
		}
		if !apt.Status.CanCancel() {
			return apperrors.InvalidStatus("appointment", string(apt.Status))
		}

		err = tx.GetContext(ctx, &out, `
			UPDATE appointments
			SET status = $1, cancelled_at = $2, cancellation_reason = $3, updated_by = $4, updated_at = $2
			WHERE id = $5
			RETURNING `+appointmentColumns,
			model.AppointmentStatusCancelled, now, reason, caller.UserID, id)
		if err != nil {
			return err
		}

		if apt.Status != model.AppointmentStatusCheckedIn {
			return nil
		}
		return leaveQueue(ctx, tx, caller, apt, reason, now)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func selectAppointmentForUpdate(ctx context.Context, tx *sqlx.Tx, hospitalID, id uuid.UUID) (*model.Appointment, error) {
	var a model.Appointment
	err := tx.GetContext(ctx, &a, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND hospital_id = $2 AND deleted_at IS NULL
		FOR UPDATE
	`, id, hospitalID)
	if isNoRows(err) {
		return nil, apperrors.NotFound("appointment", nil)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// lockAppointment takes the queue lock of the appointment's (doctor, day)
// before the row lock, the same order CallNext uses.
func lockAppointment(ctx context.Context, tx *sqlx.Tx, hospitalID, id uuid.UUID) (*model.Appointment, error) {
	var scope struct {
		DoctorID uuid.UUID `db:"doctor_id"`
		Date     time.Time `db:"appointment_date"`
	}
	err := tx.GetContext(ctx, &scope, `
		SELECT doctor_id, appointment_date
		FROM appointments
		WHERE id = $1 AND hospital_id = $2 AND deleted_at IS NULL
	`, id, hospitalID)
	if isNoRows(err) {
		return nil, apperrors.NotFound("appointment", nil)
	}
	if err != nil {
		return nil, err
	}
	if err := lockKey(ctx, tx, queueLockKey(scope.DoctorID, scope.Date)); err != nil {
		return nil, err
	}
	return selectAppointmentForUpdate(ctx, tx, hospitalID, id)
}
