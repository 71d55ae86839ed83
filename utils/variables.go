package utils

import (
	"regexp"

	"github.com/pkg/errors"
)

// ValidNameRegex is the pattern that matches to a valid sequence name.
// The name must begin with a letter or number i.e. [a-zA-Z0-9],
// and can only contain up to 60, letters, numbers, dashes, and underscores i.e. [-\w]*.
var ValidNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([-\w]){0,59}$`)

// ErrInvalidName returns a human-readable error for when ValidNameRegex doesn't match.
func ErrInvalidName(name string) error {
	if len(name) > 60 {
		// this is broken out to improve readability of the error msg
		return errors.Errorf("name %q must be 60 characters or fewer", name)
	}
	return errors.Errorf("name %q must start with a letter or number and must only contain letters, numbers, dashes, and underscores", name)
}

// ValidateName returns ErrInvalidName(name) unless name matches ValidNameRegex.
func ValidateName(name string) error {
	if !ValidNameRegex.MatchString(name) {
		return ErrInvalidName(name)
	}
	return nil
}
