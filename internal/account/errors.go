package account

import "errors"

// ErrValidation is the parent of every transfer precondition failure.
var ErrValidation = errors.New("transfer validation failed")

// ValidationError is a rejected transfer. Nothing was mutated or persisted.
type ValidationError struct {
	reason string
	// UserMessage is the text the transfer form shows.
	UserMessage string
}

func (e *ValidationError) Error() string {
	return "transfer rejected: " + e.reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

var (
	// ErrInvalidAmount is returned for amounts <= 0.
	ErrInvalidAmount = &ValidationError{
		reason:      "amount must be greater than zero",
		UserMessage: "Please enter a valid amount greater than zero.",
	}

	// ErrInsufficientFunds is returned for amounts above the current balance.
	ErrInsufficientFunds = &ValidationError{
		reason:      "amount exceeds balance",
		UserMessage: "Insufficient funds for this transfer.",
	}
)

// TransferFailedMessage is shown when a valid transfer could not be completed.
const TransferFailedMessage = "Transfer failed. Please try again."
