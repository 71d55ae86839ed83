package utils

import (
	"github.com/pkg/errors"
)

// NewUnexpectedValueError is used when a setting holds a value outside of its allowed set.
func NewUnexpectedValueError(field string, actual interface{}, allowed ...interface{}) error {
	return errors.Errorf("%q must be one of %v but got %v", field, allowed, actual)
}
