package model

import (
	"time"

	"github.com/google/uuid"
)

type WardType string

const (
	WardTypeGeneral   WardType = "GENERAL"
	WardTypeICU       WardType = "ICU"
	WardTypePrivate   WardType = "PRIVATE"
	WardTypePediatric WardType = "PEDIATRIC"
	WardTypeMaternity WardType = "MATERNITY"
)

type Ward struct {
	Base
	Name      string   `db:"name" json:"name"`
	Code      string   `db:"code" json:"code"`
	Type      WardType `db:"type" json:"type"`
	DailyRate float64  `db:"daily_rate" json:"daily_rate"`
	IsActive  bool     `db:"is_active" json:"is_active"`
}

type BedStatus string

const (
	BedStatusAvailable   BedStatus = "AVAILABLE"
	BedStatusOccupied    BedStatus = "OCCUPIED"
	BedStatusMaintenance BedStatus = "MAINTENANCE"
	BedStatusReserved    BedStatus = "RESERVED"
)

// Bed.Status is the source of truth for occupancy. OCCUPIED is only ever
// set or cleared together with an admission.
type Bed struct {
	Base
	WardID    uuid.UUID `db:"ward_id" json:"ward_id"`
	BedNumber string    `db:"bed_number" json:"bed_number"`
	Status    BedStatus `db:"status" json:"status"`
	DailyRate float64   `db:"daily_rate" json:"daily_rate"`
	IsActive  bool      `db:"is_active" json:"is_active"`
}

type CreateWardRequest struct {
	Name      string   `json:"name" binding:"required,max=100"`
	Code      string   `json:"code" binding:"required,max=20"`
	Type      WardType `json:"type" binding:"required,oneof=GENERAL ICU PRIVATE PEDIATRIC MATERNITY"`
	DailyRate float64  `json:"daily_rate" binding:"min=0"`
}

type CreateBedRequest struct {
	BedNumber string   `json:"bed_number" binding:"required,max=20"`
	DailyRate *float64 `json:"daily_rate" binding:"omitempty,min=0"`
}

// SetBedStatusRequest only accepts the administrative statuses.
type SetBedStatusRequest struct {
	Status BedStatus `json:"status" binding:"required,oneof=AVAILABLE MAINTENANCE RESERVED"`
}

// WardOccupancy is derived from live bed rows on every read.
type WardOccupancy struct {
	WardID        uuid.UUID `db:"ward_id" json:"ward_id"`
	WardName      string    `db:"ward_name" json:"ward_name"`
	WardCode      string    `db:"ward_code" json:"ward_code"`
	WardType      WardType  `db:"ward_type" json:"ward_type"`
	TotalBeds     int       `db:"total_beds" json:"total_beds"`
	Available     int       `db:"available" json:"available"`
	Occupied      int       `db:"occupied" json:"occupied"`
	Maintenance   int       `db:"maintenance" json:"maintenance"`
	Reserved      int       `db:"reserved" json:"reserved"`
	OccupancyRate float64   `db:"-" json:"occupancy_rate"`
}

type OccupancyReport struct {
	HospitalID  uuid.UUID        `json:"hospital_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Wards       []*WardOccupancy `json:"wards"`
}
