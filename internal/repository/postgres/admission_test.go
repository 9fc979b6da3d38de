package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hms-core/internal/model"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
)

type admissionFixture struct {
	caller      model.Caller
	admissionID uuid.UUID
	fromBed     uuid.UUID
	toBed       uuid.UUID
	now         time.Time
}

func newAdmissionFixture() admissionFixture {
	return admissionFixture{
		caller:      model.Caller{HospitalID: uuid.New(), UserID: uuid.New()},
		admissionID: uuid.New(),
		fromBed:     uuid.New(),
		toBed:       uuid.New(),
		now:         time.Date(2025, 6, 12, 14, 0, 0, 0, time.UTC),
	}
}

func admissionRow(f admissionFixture, bedID uuid.UUID, status model.AdmissionStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "hospital_id", "admission_no", "patient_id", "admitting_doctor_id",
		"attending_doctor_id", "appointment_id", "bed_id", "admission_date", "admission_reason",
		"status", "discharge_date", "discharge_type", "discharge_summary", "discharge_notes",
		"created_by", "updated_by", "created_at", "updated_at",
	}).AddRow(
		f.admissionID, f.caller.HospitalID, "ADM-2506-0001", uuid.New(), uuid.New(),
		nil, nil, bedID, f.now.Add(-48*time.Hour), "observation",
		string(status), nil, nil, nil, nil,
		uuid.New(), uuid.New(), f.now, f.now,
	)
}

func addBed(rows *sqlmock.Rows, id, hospitalID uuid.UUID, status model.BedStatus) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, hospitalID, uuid.New(), "B-02", string(status), 1500.0, true,
		uuid.New(), uuid.New(), now, now)
}

// expectTransferLocks covers the admission row lock and the id-ordered bed locks.
func expectTransferLocks(mock sqlmock.Sqlmock, f admissionFixture, target model.BedStatus) {
	mock.ExpectQuery("FROM admissions").
		WithArgs(f.admissionID, f.caller.HospitalID).
		WillReturnRows(admissionRow(f, f.fromBed, model.AdmissionStatusAdmitted))
	rows := bedRow(f.fromBed, f.caller.HospitalID, model.BedStatusOccupied, true)
	mock.ExpectQuery("FROM beds").
		WithArgs(sqlmock.AnyArg(), f.caller.HospitalID).
		WillReturnRows(addBed(rows, f.toBed, f.caller.HospitalID, target))
}

func TestTransferWritesInOrder(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAdmissionRepository(db)
	f := newAdmissionFixture()

	mock.ExpectBegin()
	expectTransferLocks(mock, f, model.BedStatusAvailable)
	mock.ExpectExec("INSERT INTO bed_transfers").
		WithArgs(sqlmock.AnyArg(), f.caller.HospitalID, f.admissionID, f.fromBed, f.toBed, f.now, "isolation", f.caller.UserID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE admissions SET bed_id").
		WithArgs(f.toBed, f.caller.UserID, f.now, f.admissionID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE beds SET status").
		WithArgs(model.BedStatusAvailable, f.caller.UserID, f.now, f.fromBed, model.BedStatusOccupied).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE beds SET status").
		WithArgs(model.BedStatusOccupied, f.caller.UserID, f.now, f.toBed, model.BedStatusAvailable).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	transfer, err := repo.Transfer(context.Background(), f.caller, f.admissionID, f.toBed, "isolation", f.now)
	require.NoError(t, err)
	assert.Equal(t, f.fromBed, transfer.FromBedID)
	assert.Equal(t, f.toBed, transfer.ToBedID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferTargetNotAvailable(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAdmissionRepository(db)
	f := newAdmissionFixture()

	mock.ExpectBegin()
	expectTransferLocks(mock, f, model.BedStatusMaintenance)
	mock.ExpectRollback()

	transfer, err := repo.Transfer(context.Background(), f.caller, f.admissionID, f.toBed, "isolation", f.now)
	assert.Nil(t, transfer)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBedNotAvailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRollsBackWhenSourceBedDrifted(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAdmissionRepository(db)
	f := newAdmissionFixture()

	mock.ExpectBegin()
	expectTransferLocks(mock, f, model.BedStatusAvailable)
	mock.ExpectExec("INSERT INTO bed_transfers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE admissions SET bed_id").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE beds SET status").
		WithArgs(model.BedStatusAvailable, f.caller.UserID, f.now, f.fromBed, model.BedStatusOccupied).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Transfer(context.Background(), f.caller, f.admissionID, f.toBed, "isolation", f.now)
	assert.True(t, apperrors.IsKind(err, apperrors.KindTransient))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferToCurrentBed(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAdmissionRepository(db)
	f := newAdmissionFixture()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM admissions").
		WillReturnRows(admissionRow(f, f.fromBed, model.AdmissionStatusAdmitted))
	mock.ExpectRollback()

	_, err := repo.Transfer(context.Background(), f.caller, f.admissionID, f.fromBed, "same", f.now)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBedNotAvailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDischargeRequiresAdmitted(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAdmissionRepository(db)
	f := newAdmissionFixture()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM admissions").
		WithArgs(f.admissionID, f.caller.HospitalID).
		WillReturnRows(admissionRow(f, f.fromBed, model.AdmissionStatusDischarged))
	mock.ExpectRollback()

	req := &model.DischargeRequest{DischargeType: model.DischargeTypeNormal, DischargeSummary: "stable"}
	_, err := repo.Discharge(context.Background(), f.caller, f.admissionID, req, f.now)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidStatus))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDischargeReleasesBed(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAdmissionRepository(db)
	f := newAdmissionFixture()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM admissions").
		WillReturnRows(admissionRow(f, f.fromBed, model.AdmissionStatusAdmitted))
	mock.ExpectQuery("UPDATE admissions").
		WithArgs(model.AdmissionStatusDischarged, f.now, model.DischargeTypeNormal, "stable",
			nil, f.caller.UserID, f.admissionID).
		WillReturnRows(admissionRow(f, f.fromBed, model.AdmissionStatusDischarged))
	mock.ExpectExec("UPDATE beds SET status").
		WithArgs(model.BedStatusAvailable, f.caller.UserID, f.now, f.fromBed, model.BedStatusOccupied).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := &model.DischargeRequest{DischargeType: model.DischargeTypeNormal, DischargeSummary: "stable"}
	adm, err := repo.Discharge(context.Background(), f.caller, f.admissionID, req, f.now)
	require.NoError(t, err)
	assert.Equal(t, model.AdmissionStatusDischarged, adm.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
