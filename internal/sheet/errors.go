package sheet

import (
	"errors"
	"fmt"
)

// RenderError is a failed first render, annotated with the window and
// entity it happened on.
type RenderError struct {
	AppID    string
	EntityID string
	Err      error
}

// Error implements error.
func (e *RenderError) Error() string {
	return fmt.Sprintf("render sheet %s for entity %s: %v", e.AppID, e.EntityID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// IsRenderError checks if err is or wraps a RenderError.
func IsRenderError(err error) bool {
	var rerr *RenderError
	return errors.As(err, &rerr)
}
