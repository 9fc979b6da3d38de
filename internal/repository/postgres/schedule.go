package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/internal/repository"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
)

const scheduleColumns = `
	id, hospital_id, doctor_id, day_of_week, start_time, end_time,
	slot_duration_minutes, buffer_minutes, max_patients, is_active,
	created_by, updated_by, created_at, updated_at`

type scheduleRepository struct {
	BaseRepository
}

func NewScheduleRepository(db *sqlx.DB) repository.ScheduleRepository {
	return &scheduleRepository{NewBaseRepository(db)}
}

func (r *scheduleRepository) Create(ctx context.Context, b *model.ScheduleBlock) error {
	query := `
		INSERT INTO schedule_blocks (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.HospitalID, b.DoctorID, b.DayOfWeek, b.StartTime, b.EndTime,
		b.SlotDurationMinutes, b.BufferMinutes, b.MaxPatients, b.IsActive,
		b.CreatedBy, b.UpdatedBy, b.CreatedAt, b.UpdatedAt,
	)
	return storeError("create schedule block", err)
}

func (r *scheduleRepository) Get(ctx context.Context, hospitalID, id uuid.UUID) (*model.ScheduleBlock, error) {
	var b model.ScheduleBlock
	err := r.db.GetContext(ctx, &b,
		`SELECT `+scheduleColumns+` FROM schedule_blocks WHERE id = $1 AND hospital_id = $2`, id, hospitalID)
	if isNoRows(err) {
		return nil, apperrors.NotFound("schedule block", nil)
	}
	if err != nil {
		return nil, storeError("get schedule block", err)
	}
	return &b, nil
}

func (r *scheduleRepository) Deactivate(ctx context.Context, caller model.Caller, id uuid.UUID, now time.Time) (*model.ScheduleBlock, error) {
	query := `
		UPDATE schedule_blocks
		SET is_active = FALSE, updated_by = $1, updated_at = $2
		WHERE id = $3 AND hospital_id = $4
		RETURNING ` + scheduleColumns
	var b model.ScheduleBlock
	err := r.db.GetContext(ctx, &b, query, caller.UserID, now, id, caller.HospitalID)
	if isNoRows(err) {
		return nil, apperrors.NotFound("schedule block", nil)
	}
	if err != nil {
		return nil, storeError("deactivate schedule block", err)
	}
	return &b, nil
}

func (r *scheduleRepository) ListByDoctor(ctx context.Context, hospitalID, doctorID uuid.UUID) ([]*model.ScheduleBlock, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedule_blocks
		WHERE hospital_id = $1 AND doctor_id = $2
		ORDER BY day_of_week, start_time
	`
	var blocks []*model.ScheduleBlock
	if err := r.db.SelectContext(ctx, &blocks, query, hospitalID, doctorID); err != nil {
		return nil, storeError("list schedule blocks", err)
	}
	return blocks, nil
}

func (r *scheduleRepository) ListActiveForDay(ctx context.Context, hospitalID, doctorID uuid.UUID, dayOfWeek int) ([]*model.ScheduleBlock, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedule_blocks
		WHERE hospital_id = $1 AND doctor_id = $2 AND day_of_week = $3 AND is_active
		ORDER BY start_time
	`
	var blocks []*model.ScheduleBlock
	if err := r.db.SelectContext(ctx, &blocks, query, hospitalID, doctorID, dayOfWeek); err != nil {
		return nil, storeError("list schedule blocks for day", err)
	}
	return blocks, nil
}
