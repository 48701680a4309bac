// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrInvalidCustomer is returned when a request body is not a customer object.
var ErrInvalidCustomer = errors.New("invalid customer")

// ErrDuplicateCustomer is returned when a create reuses an existing id.
type ErrDuplicateCustomer struct {
	CustomerID string
}

func (e *ErrDuplicateCustomer) Error() string {
	return fmt.Sprintf("customer with ID %s already exists", e.CustomerID)
}

// Helper constructor
func NewDuplicateCustomer(id string) error {
	return &ErrDuplicateCustomer{CustomerID: id}
}

// IsDuplicateCustomer reports whether err wraps an ErrDuplicateCustomer.
func IsDuplicateCustomer(err error) bool {
	var dup *ErrDuplicateCustomer
	return errors.As(err, &dup)
}
