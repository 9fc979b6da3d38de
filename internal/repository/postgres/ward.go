package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/internal/repository"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
)

const (
	wardColumns = `id, hospital_id, name, code, type, daily_rate, is_active,
		created_by, updated_by, created_at, updated_at`
	bedColumns = `id, hospital_id, ward_id, bed_number, status, daily_rate, is_active,
		created_by, updated_by, created_at, updated_at`
)

type wardRepository struct {
	BaseRepository
}

func NewWardRepository(db *sqlx.DB) repository.WardRepository {
	return &wardRepository{NewBaseRepository(db)}
}

func (r *wardRepository) CreateWard(ctx context.Context, w *model.Ward) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wards (`+wardColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, w.ID, w.HospitalID, w.Name, w.Code, w.Type, w.DailyRate, w.IsActive,
		w.CreatedBy, w.UpdatedBy, w.CreatedAt, w.UpdatedAt)
	if constraint, ok := uniqueViolation(err); ok && constraint == constraintWardCode {
		return apperrors.Validation(fmt.Sprintf("ward code %q already exists", w.Code), err)
	}
	return storeError("create ward", err)
}

func (r *wardRepository) GetWard(ctx context.Context, hospitalID, id uuid.UUID) (*model.Ward, error) {
	var w model.Ward
	err := r.db.GetContext(ctx, &w,
		`SELECT `+wardColumns+` FROM wards WHERE id = $1 AND hospital_id = $2`, id, hospitalID)
	if isNoRows(err) {
		return nil, apperrors.NotFound("ward", nil)
	}
	if err != nil {
		return nil, storeError("get ward", err)
	}
	return &w, nil
}

func (r *wardRepository) CreateBed(ctx context.Context, b *model.Bed) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO beds (`+bedColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, b.ID, b.HospitalID, b.WardID, b.BedNumber, b.Status, b.DailyRate, b.IsActive,
		b.CreatedBy, b.UpdatedBy, b.CreatedAt, b.UpdatedAt)
	if constraint, ok := uniqueViolation(err); ok && constraint == constraintBedNumber {
		return apperrors.Validation(fmt.Sprintf("bed %q already exists in ward", b.BedNumber), err)
	}
	return storeError("create bed", err)
}

func (r *wardRepository) GetBed(ctx context.Context, hospitalID, id uuid.UUID) (*model.Bed, error) {
	var b model.Bed
	err := r.db.GetContext(ctx, &b,
		`SELECT `+bedColumns+` FROM beds WHERE id = $1 AND hospital_id = $2`, id, hospitalID)
	if isNoRows(err) {
		return nil, apperrors.NotFound("bed", nil)
	}
	if err != nil {
		return nil, storeError("get bed", err)
	}
	return &b, nil
}

// SetBedStatus moves a bed between the administrative statuses. OCCUPIED
// belongs to the admission workflow and is refused in both directions.
func (r *wardRepository) SetBedStatus(ctx context.Context, caller model.Caller, bedID uuid.UUID, status model.BedStatus, now time.Time) (*model.Bed, error) {
	if status == model.BedStatusOccupied {
		return nil, apperrors.Validation("beds become occupied only through admission", nil)
	}

	var out model.Bed
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		bed, err := selectBedForUpdate(ctx, tx, caller.HospitalID, bedID)
		if err != nil {
			return err
		}
		if bed.Status == model.BedStatusOccupied {
			return apperrors.InvalidStatus("bed", string(bed.Status))
		}
		return tx.GetContext(ctx, &out, `
			UPDATE beds SET status = $1, updated_by = $2, updated_at = $3
			WHERE id = $4
			RETURNING `+bedColumns,
			status, caller.UserID, now, bed.ID)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Occupancy counts live bed rows per active ward. Wards without beds report
// zero totals; the rate is left to the caller.
func (r *wardRepository) Occupancy(ctx context.Context, hospitalID uuid.UUID) ([]*model.WardOccupancy, error) {
	countStatus := func(status model.BedStatus) exp.LiteralExpression {
		return goqu.L(fmt.Sprintf("COUNT(b.id) FILTER (WHERE b.status = '%s')", status))
	}

	query, args, err := dialect.From(goqu.T("wards").As("w")).Prepared(true).
		LeftJoin(goqu.T("beds").As("b"), goqu.On(
			goqu.I("b.ward_id").Eq(goqu.I("w.id")),
			goqu.I("b.is_active").IsTrue(),
		)).
		Select(
			goqu.I("w.id").As("ward_id"),
			goqu.I("w.name").As("ward_name"),
			goqu.I("w.code").As("ward_code"),
			goqu.I("w.type").As("ward_type"),
			goqu.COUNT(goqu.I("b.id")).As("total_beds"),
			countStatus(model.BedStatusAvailable).As("available"),
			countStatus(model.BedStatusOccupied).As("occupied"),
			countStatus(model.BedStatusMaintenance).As("maintenance"),
			countStatus(model.BedStatusReserved).As("reserved"),
		).
		Where(
			goqu.I("w.hospital_id").Eq(hospitalID),
			goqu.I("w.is_active").IsTrue(),
		).
		GroupBy(goqu.I("w.id"), goqu.I("w.name"), goqu.I("w.code"), goqu.I("w.type")).
		Order(goqu.I("w.name").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build occupancy query: %w", err)
	}

	var rows []*model.WardOccupancy
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, storeError("ward occupancy", err)
	}
	return rows, nil
}

func selectBedForUpdate(ctx context.Context, tx *sqlx.Tx, hospitalID, id uuid.UUID) (*model.Bed, error) {
	var b model.Bed
	err := tx.GetContext(ctx, &b,
		`SELECT `+bedColumns+` FROM beds WHERE id = $1 AND hospital_id = $2 FOR UPDATE`, id, hospitalID)
	if isNoRows(err) {
		return nil, apperrors.NotFound("bed", nil)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
