package models

import (
	"errors"
	"fmt"
)

var (
	ErrProfileNotFound     = errors.New("models: profile not found")
	ErrContractNotFound    = errors.New("models: contract not found")
	ErrInvoiceNotFound     = errors.New("models: invoice not found")
	ErrPlanNotFound        = errors.New("models: installment plan not found")
	ErrInsufficientBalance = errors.New("models: insufficient coin balance")
	ErrInsufficientCredit  = errors.New("models: insufficient available credit")
	ErrDueDayCooldown      = errors.New("models: due day changed less than 90 days ago")
)

// ValidationError marks bad client input. Handlers map it to 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
