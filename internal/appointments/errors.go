package appointments

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for an unknown appointment, provider, or procedure.
	ErrNotFound = errors.New("appointment not found")
	// ErrSlotTaken is returned when another confirmed appointment already holds the slot.
	ErrSlotTaken = errors.New("slot no longer available")
	// ErrPersistence hides storage failures from callers.
	ErrPersistence = errors.New("could not save the appointment, please try again")
	// ErrNotConfirmed is returned when completing an appointment that is not confirmed.
	ErrNotConfirmed = errors.New("appointment is not confirmed")
)

// Rejection reasons returned by Create validation.
const (
	ReasonInvalidDate  = "Invalid date or outside the allowed period"
	ReasonInvalidPhone = "Phone must have 10-11 digits"
	ReasonInvalidName  = "Name must be between 3-100 characters"
	ReasonInvalidTime  = "Invalid time, use HH:MM"

	ReasonDateUnavailable = "No availability on this date"
	ReasonTimeUnavailable = "Time not available, choose one of the offered times"
)

// ValidationError is a client-correctable rejection.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// notFoundError names the missing provider or procedure and matches ErrNotFound.
type notFoundError struct {
	kind string
	id   int64
}

func (e notFoundError) Error() string { return fmt.Sprintf("%s %d not found", e.kind, e.id) }

func (e notFoundError) Is(target error) bool { return target == ErrNotFound }
