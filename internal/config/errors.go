package config

import (
	"fmt"
	"strings"
)

// ValidationError lists every problem Validate found, one per entry, each
// prefixed with the dotted path of the offending key.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "invalid config"
	case 1:
		return "invalid config: " + e.Errors[0]
	default:
		return fmt.Sprintf("invalid config (%d problems):\n  - %s",
			len(e.Errors), strings.Join(e.Errors, "\n  - "))
	}
}

// Add records one problem.
func (e *ValidationError) Add(msg string) {
	e.Errors = append(e.Errors, msg)
}

// Addf records one formatted problem.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Add(fmt.Sprintf(format, args...))
}

// orNil returns e when it recorded anything.
func (e *ValidationError) orNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
