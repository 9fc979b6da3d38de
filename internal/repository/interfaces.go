package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hms-core/internal/model"
)

// All repository interfaces in one file.
//
// Methods that change more than one row run as a single transaction inside
// the implementation and report precondition failures as *errors.AppError,
// so a caller never observes a partially applied change.
type (
	SequenceRepository interface {
		// Next atomically increments the counter for scopeKey, creating it at 1.
		Next(ctx context.Context, scopeKey string) (int64, error)
		Get(ctx context.Context, scopeKey string) (*model.SequenceCounter, error)
	}

	ScheduleRepository interface {
		Create(ctx context.Context, block *model.ScheduleBlock) error
		Get(ctx context.Context, hospitalID, id uuid.UUID) (*model.ScheduleBlock, error)
		Deactivate(ctx context.Context, caller model.Caller, id uuid.UUID, now time.Time) (*model.ScheduleBlock, error)
		ListByDoctor(ctx context.Context, hospitalID, doctorID uuid.UUID) ([]*model.ScheduleBlock, error)
		ListActiveForDay(ctx context.Context, hospitalID, doctorID uuid.UUID, dayOfWeek int) ([]*model.ScheduleBlock, error)
	}

	AppointmentRepository interface {
		// Create fails with SLOT_UNAVAILABLE when a live appointment already
		// holds the (doctor, date, slot) triple.
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, hospitalID, id uuid.UUID) (*model.Appointment, error)
		List(ctx context.Context, filter *model.AppointmentFilter) ([]*model.Appointment, error)
		BookedSlotTimes(ctx context.Context, hospitalID, doctorID uuid.UUID, date time.Time) ([]string, error)
		Confirm(ctx context.Context, caller model.Caller, id uuid.UUID, now time.Time) (*model.Appointment, error)
		Cancel(ctx context.Context, caller model.Caller, id uuid.UUID, reason string, now time.Time) (*model.Appointment, error)
	}

	QueueRepository interface {
		// CheckIn queues an appointment dated queueDate; any other date is
		// INVALID_STATUS.
		CheckIn(ctx context.Context, caller model.Caller, appointmentID uuid.UUID, queueDate, now time.Time) (*model.QueueEntry, error)
		CallNext(ctx context.Context, caller model.Caller, doctorID uuid.UUID, queueDate, now time.Time) (*model.QueueEntry, error)
		Complete(ctx context.Context, caller model.Caller, entryID uuid.UUID, now time.Time) (*model.QueueEntry, error)
		Skip(ctx context.Context, caller model.Caller, entryID uuid.UUID, reason string, now time.Time) (*model.QueueEntry, error)
		Get(ctx context.Context, hospitalID, id uuid.UUID) (*model.QueueEntry, error)
		ListByDoctorDate(ctx context.Context, hospitalID, doctorID uuid.UUID, queueDate time.Time) ([]*model.QueueEntry, error)
	}

	WardRepository interface {
		CreateWard(ctx context.Context, ward *model.Ward) error
		GetWard(ctx context.Context, hospitalID, id uuid.UUID) (*model.Ward, error)
		CreateBed(ctx context.Context, bed *model.Bed) error
		GetBed(ctx context.Context, hospitalID, id uuid.UUID) (*model.Bed, error)
		SetBedStatus(ctx context.Context, caller model.Caller, bedID uuid.UUID, status model.BedStatus, now time.Time) (*model.Bed, error)
		Occupancy(ctx context.Context, hospitalID uuid.UUID) ([]*model.WardOccupancy, error)
	}

	AdmissionRepository interface {
		// Admit inserts the admission and flips the bed to OCCUPIED together.
		Admit(ctx context.Context, admission *model.Admission) error
		Discharge(ctx context.Context, caller model.Caller, admissionID uuid.UUID, req *model.DischargeRequest, now time.Time) (*model.Admission, error)
		Transfer(ctx context.Context, caller model.Caller, admissionID, toBedID uuid.UUID, reason string, now time.Time) (*model.BedTransfer, error)
		Get(ctx context.Context, hospitalID, id uuid.UUID) (*model.Admission, error)
		ListTransfers(ctx context.Context, hospitalID, admissionID uuid.UUID) ([]*model.BedTransfer, error)
	}

	DirectoryRepository interface {
		GetPatient(ctx context.Context, hospitalID, id uuid.UUID) (*model.PatientRef, error)
		GetDoctor(ctx context.Context, hospitalID, id uuid.UUID) (*model.DoctorRef, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending marks up to limit due events as processing and returns
		// them. Concurrent workers never claim the same event.
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
