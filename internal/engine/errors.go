package engine

import "fmt"

// InvalidTransitionError reports a status change the machine does not allow.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s status transition %s -> %s", e.Entity, e.From, e.To)
}

// InsufficientBalanceError reports a leave request exceeding the remaining
// balance, whether at application or at approval time.
type InsufficientBalanceError struct {
	EmployeeID string
	Balance    int
	Requested  int
}

func (e InsufficientBalanceError) Error() string {
	return fmt.Sprintf("employee %s has %d leave days, %d requested", e.EmployeeID, e.Balance, e.Requested)
}
