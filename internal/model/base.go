package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all tenant-scoped models
type Base struct {
	ID         uuid.UUID `json:"id" db:"id"`
	HospitalID uuid.UUID `json:"hospital_id" db:"hospital_id"`
	CreatedBy  uuid.UUID `json:"created_by" db:"created_by"`
	UpdatedBy  uuid.UUID `json:"updated_by" db:"updated_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Stamp fills the audit fields of a row about to be inserted.
func (b *Base) Stamp(caller Caller, now time.Time) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.HospitalID = caller.HospitalID
	b.CreatedBy = caller.UserID
	b.UpdatedBy = caller.UserID
	b.CreatedAt = now
	b.UpdatedAt = now
}

// Pagination represents common pagination parameters
type Pagination struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 200 {
		p.PageSize = 50
	}
	return p
}

func (p Pagination) Offset() uint {
	return uint((p.Page - 1) * p.PageSize)
}

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// TimeLayout is the wire format of slot times (zero-padded 24h).
const TimeLayout = "15:04"
