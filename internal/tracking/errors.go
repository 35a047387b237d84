package tracking

import "errors"

var (
	// ErrInvalidValue is returned when a value cannot be parsed for its field.
	ErrInvalidValue = errors.New("invalid value")

	// ErrOutOfRange is returned when a score falls outside 1-10.
	ErrOutOfRange = errors.New("score out of range")

	// ErrInvalidDate is returned when a date is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")

	// ErrFutureDate is returned when an update targets a day after today.
	ErrFutureDate = errors.New("date is in the future")
)
