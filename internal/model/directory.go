package model

import (
	"time"

	"github.com/google/uuid"
)

// PatientRef is the slice of the patient registry this core reads.
type PatientRef struct {
	ID         uuid.UUID  `db:"id"`
	HospitalID uuid.UUID  `db:"hospital_id"`
	DeletedAt  *time.Time `db:"deleted_at"`
}

type DoctorRef struct {
	ID         uuid.UUID `db:"id"`
	HospitalID uuid.UUID `db:"hospital_id"`
	IsActive   bool      `db:"is_active"`
}
