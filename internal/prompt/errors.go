package prompt

import "fmt"

// NotFoundError reports a render against an unknown template id. Plain
// lookups return a boolean instead; only Render treats the miss as an
// error, since the caller asked for output it cannot have.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("template not found: %s", e.ID)
}

// MissingVariableError reports a required variable that has neither a
// supplied value nor a declared default. Raised at render time, never by
// Validate.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("missing required variable: %s", e.Name)
}
