package orders

import (
	"errors"
	"fmt"
	"strings"
)

// Domain error taxonomy. Handlers map these onto HTTP status codes;
// anything unrecognized becomes a 500 with a generic message.
var (
	ErrUnauthenticated = errors.New("user not authenticated")
	ErrUnauthorized    = errors.New("caller not allowed to access this order")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("order not found")
)

// InvalidTransitionError rejects a status change not in the transition
// table. Allowed lists the valid next statuses for the error payload.
type InvalidTransitionError struct {
	From    Status
	To      Status
	Allowed []Status
}

func (e *InvalidTransitionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("order is %s and can no longer change status", e.From)
	}
	next := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		next[i] = string(s)
	}
	return fmt.Sprintf("cannot change status from %q to %q, valid next statuses: %s",
		e.From, e.To, strings.Join(next, ", "))
}
