package editor

import (
	"errors"

	"example.com/octofit/internal/apiclient"
	"example.com/octofit/internal/membership"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("edit session not found")
	// ErrSessionClosed is returned when a closed session is modified.
	ErrSessionClosed = errors.New("edit session is closed")
	// ErrUserNotFound is returned when opening a session for an unknown user.
	ErrUserNotFound = errors.New("user not found")
)

// GenericUpdateFailure is shown when the backend gave no detail message.
const GenericUpdateFailure = "Failed to update user"

// ValidationError reports a form value the backend would reject.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// userMessage renders a submit failure for display.
func userMessage(err error) string {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	var partial *membership.PartialSyncError
	if errors.As(err, &partial) {
		return partial.Error()
	}
	var update *apiclient.UpdateError
	if errors.As(err, &update) && update.Detail != "" {
		return update.Detail
	}
	return GenericUpdateFailure
}
