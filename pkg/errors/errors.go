package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so callers can tell business-rule rejections
// apart from failures that are safe to retry.
type Kind string

const (
	KindNotFound              Kind = "NOT_FOUND"
	KindPatientNotFound       Kind = "PATIENT_NOT_FOUND"
	KindDoctorNotFound        Kind = "DOCTOR_NOT_FOUND"
	KindInvalidStatus         Kind = "INVALID_STATUS"
	KindSlotUnavailable       Kind = "SLOT_UNAVAILABLE"
	KindBedNotAvailable       Kind = "BED_NOT_AVAILABLE"
	KindPatientInConsultation Kind = "PATIENT_IN_CONSULTATION"
	KindNoWaitingPatients     Kind = "NO_WAITING_PATIENTS"
	KindSequenceExhaustion    Kind = "SEQUENCE_EXHAUSTION"
	KindValidation            Kind = "VALIDATION"
	KindUnauthorized          Kind = "UNAUTHORIZED"
	KindTransient             Kind = "TRANSIENT"
	KindRateLimited           Kind = "RATE_LIMITED"
)

// AppError represents an application error
type AppError struct {
	Kind    Kind   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind onto an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindNotFound, KindPatientNotFound, KindDoctorNotFound:
		return http.StatusNotFound
	case KindInvalidStatus, KindSlotUnavailable, KindBedNotAvailable,
		KindPatientInConsultation, KindNoWaitingPatients:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindSequenceExhaustion, KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the same request may be resubmitted unchanged.
func (e *AppError) Retryable() bool {
	return e.Kind == KindTransient || e.Kind == KindSequenceExhaustion || e.Kind == KindRateLimited
}

func New(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func NotFound(resource string, err error) *AppError {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource), err)
}

func PatientNotFound(err error) *AppError {
	return New(KindPatientNotFound, "patient not found", err)
}

func DoctorNotFound(err error) *AppError {
	return New(KindDoctorNotFound, "doctor not found or inactive", err)
}

func InvalidStatus(resource string, status string) *AppError {
	return New(KindInvalidStatus, fmt.Sprintf("%s is %s", resource, status), nil)
}

func SlotUnavailable(err error) *AppError {
	return New(KindSlotUnavailable, "slot is no longer available", err)
}

func BedNotAvailable(err error) *AppError {
	return New(KindBedNotAvailable, "bed is not available", err)
}

func PatientInConsultation() *AppError {
	return New(KindPatientInConsultation, "a patient is already in consultation", nil)
}

func NoWaitingPatients() *AppError {
	return New(KindNoWaitingPatients, "no patients waiting", nil)
}

func SequenceExhaustion(err error) *AppError {
	return New(KindSequenceExhaustion, "identifier sequence unavailable", err)
}

func Validation(message string, err error) *AppError {
	return New(KindValidation, message, err)
}

func Unauthorized(err error) *AppError {
	return New(KindUnauthorized, "unauthorized", err)
}

func Transient(err error) *AppError {
	return New(KindTransient, "temporary failure, retry the request", err)
}

// KindOf returns the kind of the first AppError in err's chain, or an empty
// kind when there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// As is re-exported so callers importing this package under the name
// "errors" keep access to the standard helper.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
