package model

import "github.com/google/uuid"

// ScheduleBlock is a recurring weekly session of a doctor. Blocks are
// deactivated, never deleted.
type ScheduleBlock struct {
	Base
	DoctorID            uuid.UUID `json:"doctor_id" db:"doctor_id"`
	DayOfWeek           int       `json:"day_of_week" db:"day_of_week"`
	StartTime           string    `json:"start_time" db:"start_time"`
	EndTime             string    `json:"end_time" db:"end_time"`
	SlotDurationMinutes int       `json:"slot_duration_minutes" db:"slot_duration_minutes"`
	BufferMinutes       int       `json:"buffer_minutes" db:"buffer_minutes"`
	MaxPatients         int       `json:"max_patients" db:"max_patients"`
	IsActive            bool      `json:"is_active" db:"is_active"`
}

type CreateScheduleBlockRequest struct {
	DoctorID            uuid.UUID `json:"doctor_id" binding:"required"`
	DayOfWeek           *int      `json:"day_of_week" binding:"required,weekday"`
	StartTime           string    `json:"start_time" binding:"required,hhmm"`
	EndTime             string    `json:"end_time" binding:"required,hhmm"`
	SlotDurationMinutes int       `json:"slot_duration_minutes" binding:"required,min=1,max=480"`
	BufferMinutes       int       `json:"buffer_minutes" binding:"min=0,max=240"`
	MaxPatients         int       `json:"max_patients" binding:"min=0"`
}

// Slot is one bookable offset produced by the planner.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type Availability struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	Slots    []Slot    `json:"slots"`
}
