package record

import "fmt"

// MissingFieldError indicates a required key was absent from a raw input map.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// UnknownKindError indicates a kind tag that is neither article nor ticket.
type UnknownKindError struct {
	Kind Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown record kind: %q", string(e.Kind))
}
