package model

import (
	"time"

	"github.com/google/uuid"
)

type AdmissionStatus string

const (
	AdmissionStatusAdmitted    AdmissionStatus = "ADMITTED"
	AdmissionStatusTransferred AdmissionStatus = "TRANSFERRED"
	AdmissionStatusDischarged  AdmissionStatus = "DISCHARGED"
	AdmissionStatusExpired     AdmissionStatus = "EXPIRED"
	AdmissionStatusLAMA        AdmissionStatus = "LAMA"
)

type DischargeType string

const (
	DischargeTypeNormal   DischargeType = "NORMAL"
	DischargeTypeLAMA     DischargeType = "LAMA"
	DischargeTypeReferred DischargeType = "REFERRED"
	DischargeTypeExpired  DischargeType = "EXPIRED"
)

// Admission binds a patient to exactly one bed while ADMITTED.
type Admission struct {
	Base
	AdmissionNo       string          `db:"admission_no" json:"admission_no"`
	PatientID         uuid.UUID       `db:"patient_id" json:"patient_id"`
	AdmittingDoctorID uuid.UUID       `db:"admitting_doctor_id" json:"admitting_doctor_id"`
	AttendingDoctorID *uuid.UUID      `db:"attending_doctor_id" json:"attending_doctor_id,omitempty"`
	AppointmentID     *uuid.UUID      `db:"appointment_id" json:"appointment_id,omitempty"`
	BedID             uuid.UUID       `db:"bed_id" json:"bed_id"`
	AdmissionDate     time.Time       `db:"admission_date" json:"admission_date"`
	AdmissionReason   string          `db:"admission_reason" json:"admission_reason"`
	Status            AdmissionStatus `db:"status" json:"status"`
	DischargeDate     *time.Time      `db:"discharge_date" json:"discharge_date,omitempty"`
	DischargeType     *DischargeType  `db:"discharge_type" json:"discharge_type,omitempty"`
	DischargeSummary  *string         `db:"discharge_summary" json:"discharge_summary,omitempty"`
	DischargeNotes    *string         `db:"discharge_notes" json:"discharge_notes,omitempty"`
}

// BedTransfer is append-only.
type BedTransfer struct {
	ID           uuid.UUID `db:"id" json:"id"`
	HospitalID   uuid.UUID `db:"hospital_id" json:"hospital_id"`
	AdmissionID  uuid.UUID `db:"admission_id" json:"admission_id"`
	FromBedID    uuid.UUID `db:"from_bed_id" json:"from_bed_id"`
	ToBedID      uuid.UUID `db:"to_bed_id" json:"to_bed_id"`
	TransferDate time.Time `db:"transfer_date" json:"transfer_date"`
	Reason       string    `db:"reason" json:"reason"`
	CreatedBy    uuid.UUID `db:"created_by" json:"created_by"`
}

type AdmitRequest struct {
	PatientID         uuid.UUID  `json:"patient_id" binding:"required"`
	AdmittingDoctorID uuid.UUID  `json:"admitting_doctor_id" binding:"required"`
	AttendingDoctorID *uuid.UUID `json:"attending_doctor_id"`
	BedID             uuid.UUID  `json:"bed_id" binding:"required"`
	AdmissionReason   string     `json:"admission_reason" binding:"required,max=1000"`
}

// AdmitFromVisitRequest converts a completed outpatient visit; patient and
// admitting doctor come from the appointment.
type AdmitFromVisitRequest struct {
	BedID             uuid.UUID  `json:"bed_id" binding:"required"`
	AttendingDoctorID *uuid.UUID `json:"attending_doctor_id"`
	AdmissionReason   string     `json:"admission_reason" binding:"required,max=1000"`
}

type DischargeRequest struct {
	DischargeType    DischargeType `json:"discharge_type" binding:"required,oneof=NORMAL LAMA REFERRED EXPIRED"`
	DischargeSummary string        `json:"discharge_summary" binding:"required,max=10000"`
	DischargeNotes   string        `json:"discharge_notes" binding:"max=5000"`
}

type TransferBedRequest struct {
	ToBedID uuid.UUID `json:"to_bed_id" binding:"required"`
	Reason  string    `json:"reason" binding:"required,max=500"`
}
