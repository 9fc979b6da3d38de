package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled      AppointmentStatus = "SCHEDULED"
	AppointmentStatusConfirmed      AppointmentStatus = "CONFIRMED"
	AppointmentStatusCheckedIn      AppointmentStatus = "CHECKED_IN"
	AppointmentStatusInConsultation AppointmentStatus = "IN_CONSULTATION"
	AppointmentStatusCompleted      AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled      AppointmentStatus = "CANCELLED"
	AppointmentStatusNoShow         AppointmentStatus = "NO_SHOW"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusConfirmed, AppointmentStatusCheckedIn,
		AppointmentStatusInConsultation, AppointmentStatusCompleted,
		AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

// CanCheckIn reports whether the appointment may enter the queue.
func (s AppointmentStatus) CanCheckIn() bool {
	return s == AppointmentStatusScheduled || s == AppointmentStatusConfirmed
}

// CanCancel rejects terminal states and a running consultation.
func (s AppointmentStatus) CanCancel() bool {
	return !s.Terminal() && s != AppointmentStatusInConsultation
}

type ConsultationType string

const (
	ConsultationTypeNew       ConsultationType = "NEW"
	ConsultationTypeFollowUp  ConsultationType = "FOLLOW_UP"
	ConsultationTypeEmergency ConsultationType = "EMERGENCY"
	ConsultationTypeTele      ConsultationType = "TELECONSULT"
)

type Appointment struct {
	Base
	PatientID           uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID            uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	AppointmentDate     time.Time         `db:"appointment_date" json:"appointment_date"`
	SlotTime            string            `db:"slot_time" json:"slot_time"`
	Status              AppointmentStatus `db:"status" json:"status"`
	TokenNumber         string            `db:"token_number" json:"token_number"`
	ConsultationType    ConsultationType  `db:"consultation_type" json:"consultation_type"`
	ChiefComplaint      *string           `db:"chief_complaint" json:"chief_complaint,omitempty"`
	CheckedInAt         *time.Time        `db:"checked_in_at" json:"checked_in_at,omitempty"`
	ConsultationStartAt *time.Time        `db:"consultation_start_at" json:"consultation_start_at,omitempty"`
	ConsultationEndAt   *time.Time        `db:"consultation_end_at" json:"consultation_end_at,omitempty"`
	CancelledAt         *time.Time        `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancellationReason  *string           `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	DeletedAt           *time.Time        `db:"deleted_at" json:"-"`
}

type BookAppointmentRequest struct {
	PatientID        uuid.UUID        `json:"patient_id" binding:"required"`
	DoctorID         uuid.UUID        `json:"doctor_id" binding:"required"`
	Date             string           `json:"date" binding:"required,datetime=2006-01-02"`
	SlotTime         string           `json:"slot_time" binding:"required,hhmm"`
	ConsultationType ConsultationType `json:"consultation_type" binding:"required,oneof=NEW FOLLOW_UP EMERGENCY TELECONSULT"`
	ChiefComplaint   string           `json:"chief_complaint" binding:"max=1000"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type AppointmentFilter struct {
	HospitalID uuid.UUID
	DoctorID   *uuid.UUID
	PatientID  *uuid.UUID
	Status     *AppointmentStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Pagination
}
