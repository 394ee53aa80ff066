// Package certstore holds the destinations extracted issuer certificates
// are written to. Every store refuses to replace an existing name.
package certstore

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrExists is returned when writing a name the store already holds.
	ErrExists = errors.New("certificate file already exists")

	ErrNotFound = errors.New("certificate file not found")
)

// validateName rejects names that could escape a store's namespace.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("invalid certificate file name %q", name)
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("certificate file name %q must not contain a path", name)
	}
	return nil
}
