package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/internal/repository"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
)

var queueColumns = strings.Join([]string{
	"id", "hospital_id", "appointment_id", "patient_id", "doctor_id", "queue_date",
	"token_number", "position", "status", "check_in_time", "call_time", "start_time",
	"end_time", "actual_wait_minutes", "skip_reason",
	"created_by", "updated_by", "created_at", "updated_at",
}, ", ")

type queueRepository struct {
	BaseRepository
}

func NewQueueRepository(db *sqlx.DB) repository.QueueRepository {
	return &queueRepository{NewBaseRepository(db)}
}

func queueLockKey(doctorID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("queue:%s:%s", doctorID, dateArg(day))
}

// CheckIn only accepts appointments for queueDate, so every WAITING entry
// belongs to a day CallNext serves.
func (r *queueRepository) CheckIn(ctx context.Context, caller model.Caller, appointmentID uuid.UUID, queueDate, now time.Time) (*model.QueueEntry, error) {
	var entry model.QueueEntry
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		apt, err := lockAppointment(ctx, tx, caller.HospitalID, appointmentID)
		if err != nil {
			return err
		}
		if !apt.Status.CanCheckIn() {
			return apperrors.InvalidStatus("appointment", string(apt.Status))
		}
		if dateArg(apt.AppointmentDate) != dateArg(queueDate) {
			return apperrors.InvalidStatus("appointment", "not scheduled for "+dateArg(queueDate))
		}

		var waiting int
		if err := tx.GetContext(ctx, &waiting, `
			SELECT COUNT(*)
			FROM queue_entries
			WHERE doctor_id = $1 AND queue_date = $2 AND status = 'WAITING'
		`, apt.DoctorID, dateArg(apt.AppointmentDate)); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE appointments
			SET status = $1, checked_in_at = $2, updated_by = $3, updated_at = $2
			WHERE id = $4
		`, model.AppointmentStatusCheckedIn, now, caller.UserID, apt.ID); err != nil {
			return err
		}

		entry = model.QueueEntry{
			AppointmentID: apt.ID,
			PatientID:     apt.PatientID,
			DoctorID:      apt.DoctorID,
			QueueDate:     apt.AppointmentDate,
			TokenNumber:   apt.TokenNumber,
			Position:      waiting + 1,
			Status:        model.QueueStatusWaiting,
			CheckInTime:   now,
		}
		entry.Stamp(caller, now)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO queue_entries (
				id, hospital_id, appointment_id, patient_id, doctor_id, queue_date,
				token_number, position, status, check_in_time,
				created_by, updated_by, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`,
			entry.ID, entry.HospitalID, entry.AppointmentID, entry.PatientID, entry.DoctorID, dateArg(entry.QueueDate),
			entry.TokenNumber, entry.Position, entry.Status, entry.CheckInTime,
			entry.CreatedBy, entry.UpdatedBy, entry.CreatedAt, entry.UpdatedAt,
		)
		if constraint, ok := uniqueViolation(err); ok && constraint == constraintQueueAppt {
			return apperrors.InvalidStatus("appointment", "already queued")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// CallNext moves the head of the WAITING line into consultation. The queue
// lock plus the partial unique index on IN_CONSULTATION keep at most one
// consultation per doctor per day.
func (r *queueRepository) CallNext(ctx context.Context, caller model.Caller, doctorID uuid.UUID, queueDate, now time.Time) (*model.QueueEntry, error) {
	var out model.QueueEntry
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockKey(ctx, tx, queueLockKey(doctorID, queueDate)); err != nil {
			return err
		}

		var busy bool
		if err := tx.GetContext(ctx, &busy, `
			SELECT EXISTS (
				SELECT 1 FROM queue_entries
				WHERE hospital_id = $1 AND doctor_id = $2 AND queue_date = $3 AND status = 'IN_CONSULTATION'
			)
		`, caller.HospitalID, doctorID, dateArg(queueDate)); err != nil {
			return err
		}
		if busy {
			return apperrors.PatientInConsultation()
		}

		var next model.QueueEntry
		err := tx.GetContext(ctx, &next, `
			SELECT `+queueColumns+`
			FROM queue_entries
			WHERE hospital_id = $1 AND doctor_id = $2 AND queue_date = $3 AND status = 'WAITING'
			ORDER BY position, check_in_time, id
			LIMIT 1
			FOR UPDATE
		`, caller.HospitalID, doctorID, dateArg(queueDate))
		if isNoRows(err) {
			return apperrors.NoWaitingPatients()
		}
		if err != nil {
			return err
		}

		wait := int(now.Sub(next.CheckInTime).Minutes())
		if wait < 0 {
			wait = 0
		}

		err = tx.GetContext(ctx, &out, `
			UPDATE queue_entries
			SET status = $1, call_time = $2, start_time = $2, actual_wait_minutes = $3,
				updated_by = $4, updated_at = $2
			WHERE id = $5
			RETURNING `+queueColumns,
			model.QueueStatusInConsultation, now, wait, caller.UserID, next.ID)
		if constraint, ok := uniqueViolation(err); ok && constraint == constraintInConsultation {
			return apperrors.PatientInConsultation()
		}
		if err != nil {
			return err
		}

		if err := closeGap(ctx, tx, doctorID, queueDate, next.Position); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE appointments
			SET status = $1, consultation_start_at = $2, updated_by = $3, updated_at = $2
			WHERE id = $4
		`, model.AppointmentStatusInConsultation, now, caller.UserID, next.AppointmentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Complete only accepts an entry that is in consultation.
func (r *queueRepository) Complete(ctx context.Context, caller model.Caller, entryID uuid.UUID, now time.Time) (*model.QueueEntry, error) {
	var out model.QueueEntry
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		entry, err := selectQueueEntryForUpdate(ctx, tx, caller.HospitalID, entryID)
		if err != nil {
			return err
		}
		if entry.Status != model.QueueStatusInConsultation {
			return apperrors.InvalidStatus("queue entry", string(entry.Status))
		}

		if err := tx.GetContext(ctx, &out, `
			UPDATE queue_entries
			SET status = $1, end_time = $2, updated_by = $3, updated_at = $2
			WHERE id = $4
			RETURNING `+queueColumns,
			model.QueueStatusCompleted, now, caller.UserID, entry.ID); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE appointments
			SET status = $1, consultation_end_at = $2, updated_by = $3, updated_at = $2
			WHERE id = $4
		`, model.AppointmentStatusCompleted, now, caller.UserID, entry.AppointmentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Skip marks a waiting patient as a no-show.
func (r *queueRepository) Skip(ctx context.Context, caller model.Caller, entryID uuid.UUID, reason string, now time.Time) (*model.QueueEntry, error) {
	var out model.QueueEntry
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var scope struct {
			DoctorID  uuid.UUID `db:"doctor_id"`
			QueueDate time.Time `db:"queue_date"`
		}
		err := tx.GetContext(ctx, &scope,
			`SELECT doctor_id, queue_date FROM queue_entries WHERE id = $1 AND hospital_id = $2`,
			entryID, caller.HospitalID)
		if isNoRows(err) {
			return apperrors.NotFound("queue entry", nil)
		}
		if err != nil {
			return err
		}
		if err := lockKey(ctx, tx, queueLockKey(scope.DoctorID, scope.QueueDate)); err != nil {
			return err
		}

		entry, err := selectQueueEntryForUpdate(ctx, tx, caller.HospitalID, entryID)
		if err != nil {
			return err
		}
		if entry.Status != model.QueueStatusWaiting {
			return apperrors.InvalidStatus("queue entry", string(entry.Status))
		}

		if err := tx.GetContext(ctx, &out, `
			UPDATE queue_entries
			SET status = $1, skip_reason = $2, updated_by = $3, updated_at = $4
			WHERE id = $5
			RETURNING `+queueColumns,
			model.QueueStatusSkipped, reason, caller.UserID, now, entry.ID); err != nil {
			return err
		}

		if err := closeGap(ctx, tx, entry.DoctorID, entry.QueueDate, entry.Position); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE appointments
			SET status = $1, cancellation_reason = $2, updated_by = $3, updated_at = $4
			WHERE id = $5
		`, model.AppointmentStatusNoShow, reason, caller.UserID, now, entry.AppointmentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *queueRepository) Get(ctx context.Context, hospitalID, id uuid.UUID) (*model.QueueEntry, error) {
	var e model.QueueEntry
	err := r.db.GetContext(ctx, &e,
		`SELECT `+queueColumns+` FROM queue_entries WHERE id = $1 AND hospital_id = $2`, id, hospitalID)
	if isNoRows(err) {
		return nil, apperrors.NotFound("queue entry", nil)
	}
	if err != nil {
		return nil, storeError("get queue entry", err)
	}
	return &e, nil
}

func (r *queueRepository) ListByDoctorDate(ctx context.Context, hospitalID, doctorID uuid.UUID, queueDate time.Time) ([]*model.QueueEntry, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM queue_entries
		WHERE hospital_id = $1 AND doctor_id = $2 AND queue_date = $3
		ORDER BY position, check_in_time, id
	`
	var entries []*model.QueueEntry
	if err := r.db.SelectContext(ctx, &entries, query, hospitalID, doctorID, dateArg(queueDate)); err != nil {
		return nil, storeError("list queue", err)
	}
	return entries, nil
}

func selectQueueEntryForUpdate(ctx context.Context, tx *sqlx.Tx, hospitalID, id uuid.UUID) (*model.QueueEntry, error) {
	var e model.QueueEntry
	err := tx.GetContext(ctx, &e, `
		SELECT `+queueColumns+`
		FROM queue_entries
		WHERE id = $1 AND hospital_id = $2
		FOR UPDATE
	`, id, hospitalID)
	if isNoRows(err) {
		return nil, apperrors.NotFound("queue entry", nil)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// closeGap keeps WAITING positions dense after an entry at position leaves
// the line. Caller must hold the queue lock.
func closeGap(ctx context.Context, tx *sqlx.Tx, doctorID uuid.UUID, queueDate time.Time, position int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE queue_entries
		SET position = position - 1
		WHERE doctor_id = $1 AND queue_date = $2 AND status = 'WAITING' AND position > $3
	`, doctorID, dateArg(queueDate), position)
	return err
}

// leaveQueue drops a cancelled appointment's WAITING entry, if any.
func leaveQueue(ctx context.Context, tx *sqlx.Tx, caller model.Caller, apt *model.Appointment, reason string, now time.Time) error {
	var position int
	err := tx.GetContext(ctx, &position, `
		UPDATE queue_entries
		SET status = $1, skip_reason = $2, updated_by = $3, updated_at = $4
		WHERE appointment_id = $5 AND status = 'WAITING'
		RETURNING position
	`, model.QueueStatusSkipped, reason, caller.UserID, now, apt.ID)
	if isNoRows(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return closeGap(ctx, tx, apt.DoctorID, apt.AppointmentDate, position)
}
