package model

import (
	"time"

	"github.com/google/uuid"
)

type QueueStatus string

const (
	QueueStatusWaiting        QueueStatus = "WAITING"
	QueueStatusInConsultation QueueStatus = "IN_CONSULTATION"
	QueueStatusCompleted      QueueStatus = "COMPLETED"
	QueueStatusSkipped        QueueStatus = "SKIPPED"
)

// QueueEntry is the runtime record of a checked-in appointment. Entries are
// scoped to QueueDate; a new day starts an empty queue.
type QueueEntry struct {
	Base
	AppointmentID     uuid.UUID   `db:"appointment_id" json:"appointment_id"`
	PatientID         uuid.UUID   `db:"patient_id" json:"patient_id"`
	DoctorID          uuid.UUID   `db:"doctor_id" json:"doctor_id"`
	QueueDate         time.Time   `db:"queue_date" json:"queue_date"`
	TokenNumber       string      `db:"token_number" json:"token_number"`
	Position          int         `db:"position" json:"position"`
	Status            QueueStatus `db:"status" json:"status"`
	CheckInTime       time.Time   `db:"check_in_time" json:"check_in_time"`
	CallTime          *time.Time  `db:"call_time" json:"call_time,omitempty"`
	StartTime         *time.Time  `db:"start_time" json:"start_time,omitempty"`
	EndTime           *time.Time  `db:"end_time" json:"end_time,omitempty"`
	ActualWaitMinutes *int        `db:"actual_wait_minutes" json:"actual_wait_minutes,omitempty"`
	SkipReason        *string     `db:"skip_reason" json:"skip_reason,omitempty"`
}

type SkipQueueEntryRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// QueueBoard is the day view of one doctor's queue.
type QueueBoard struct {
	DoctorID uuid.UUID     `json:"doctor_id"`
	Date     string        `json:"date"`
	Current  *QueueEntry   `json:"current,omitempty"`
	Waiting  []*QueueEntry `json:"waiting"`
	Done     []*QueueEntry `json:"done"`
}
