package drift

import (
	"fmt"
	"strings"
)

// ValidationError represents a structural invariant violation found
// while building a canonical tree: duplicate identifier, dangling
// reference, cyclic parent chain or invalid permission level. It names
// the offending entity so the user can find it in the manifest.
type ValidationError struct {
	Entity  string `json:"entity"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("validation error for %s '%s': %s", e.Entity, e.ID, e.Message)
	}
	return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	if len(e) == 1 {
		return e[0].Error()
	}

	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(e), strings.Join(messages, "; "))
}

// Add adds a validation error to the collection
func (e *ValidationErrors) Add(entity, id, message string) {
	*e = append(*e, ValidationError{
		Entity:  entity,
		ID:      id,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}
