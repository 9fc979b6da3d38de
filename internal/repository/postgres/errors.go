package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
)

const (
	pqUniqueViolation = "23505"

	constraintLiveSlot       = "uq_appointments_live_slot"
	constraintInConsultation = "uq_queue_entries_in_consultation"
	constraintQueueAppt      = "uq_queue_entries_appointment"
	constraintActiveBed      = "uq_admissions_active_bed"
	constraintActivePatient  = "uq_admissions_active_patient"
	constraintWardCode       = "uq_wards_code"
	constraintBedNumber      = "uq_beds_number"
)

// storeError passes business-rule errors through and turns everything else
// into a TRANSIENT error so callers know the unit was rolled back and may be
// retried as is.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Transient(fmt.Errorf("%s: %w", op, err))
}

// uniqueViolation returns the violated constraint name, if err is one.
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
