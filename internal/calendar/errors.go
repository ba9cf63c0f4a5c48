package calendar

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownServicePattern means a departure references a pattern the
	// calendar matrix does not define. It points at a broken data export.
	ErrUnknownServicePattern = errors.New("unknown service pattern")

	// ErrOutsideValidity matches both ErrNotYetValid and ErrNoLongerValid.
	ErrOutsideValidity = errors.New("date outside validity window")
	ErrNotYetValid     = errors.New("schedule not yet valid for this date")
	ErrNoLongerValid   = errors.New("schedule no longer valid for this date")

	// ErrUndefinedException is returned when a cell carries a letter the
	// legend does not list, or lists without a predicate.
	ErrUndefinedException = errors.New("exception letter has no predicate")
)

func unknownPattern(id string) error {
	return fmt.Errorf("%w: %q", ErrUnknownServicePattern, id)
}

// ValidityError reports a query date outside [From, To].
type ValidityError struct {
	Date DateKey
	From DateKey
	To   DateKey
}

func (e *ValidityError) Error() string {
	if e.Date < e.From {
		return fmt.Sprintf("schedule not yet valid on %s (valid from %s)", e.Date, e.From)
	}
	return fmt.Sprintf("schedule no longer valid on %s (valid until %s)", e.Date, e.To)
}

func (e *ValidityError) Is(target error) bool {
	switch target {
	case ErrOutsideValidity:
		return true
	case ErrNotYetValid:
		return e.Date < e.From
	case ErrNoLongerValid:
		return e.Date > e.To
	}
	return false
}

// Window is an inclusive date range. The zero Window is unbounded.
type Window struct {
	From DateKey `json:"from"`
	To   DateKey `json:"to"`
}

func (w Window) IsZero() bool {
	return w.From == 0 && w.To == 0
}

// Check returns a *ValidityError when date falls outside the window.
func (w Window) Check(date DateKey) error {
	if w.IsZero() {
		return nil
	}
	if (w.From != 0 && date < w.From) || (w.To != 0 && date > w.To) {
		return &ValidityError{Date: date, From: w.From, To: w.To}
	}
	return nil
}
