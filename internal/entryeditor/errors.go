package entryeditor

import (
	"errors"
	"fmt"

	"github.com/ceros-embed/ceros-embed/internal/oembed"
)

var (
	// ErrNotConfigured is returned by Load when an installation parameter is empty.
	ErrNotConfigured = errors.New("app is not fully configured")
	// ErrContentTypeMismatch is returned by Load when the entry is of another content type.
	ErrContentTypeMismatch = errors.New("entry content type is not configured for the app")
	// ErrBusy is returned while another operation on the same entry is in flight.
	ErrBusy = errors.New("another operation is in progress for this entry")
	// ErrInvalidState is returned when an operation is not available in the current state.
	ErrInvalidState = errors.New("operation not available in the current state")
	// ErrInvalidURL is returned when no metadata could be fetched for the URL being linked.
	ErrInvalidURL = errors.New("invalid experience url")
	// ErrRefreshFailed is returned when the embed code could not be refreshed.
	ErrRefreshFailed = errors.New("refreshing the embed code failed")
)

// User-facing notes.
const (
	MessageInvalidURL     = "The experience URL is invalid. Make sure it looks like 'https://view.ceros.com/account/experience' and that the experience is published."
	MessageRefreshFailed  = "There was an error refreshing the embed code. Make sure the experience is still published."
	MessageNotConfigured  = "The Ceros app isn't fully configured. Please go to the Ceros app configuration screen to configure it."
	MessageTypeMismatch   = "The content type of this entry isn't configured to use the Ceros app. Please go to the Ceros app configuration screen to configure it."
	MessageBusy           = "Another change to this entry is still in progress. Please wait for it to finish."
	MessageInvalidState   = "This action is not available right now. Please reload the entry."
	MessagePersistFailure = "There was an error saving the entry. Please try again."
)

// PersistError reports that the entry save failed after its fields were changed. The fields have
// been restored to their previous values.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s: saving entry: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// UserMessage returns the note shown in the entry editor for err.
func UserMessage(err error) string {
	var pErr *PersistError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConfigured):
		return MessageNotConfigured
	case errors.Is(err, ErrContentTypeMismatch):
		return MessageTypeMismatch
	case errors.Is(err, ErrBusy):
		return MessageBusy
	case errors.Is(err, ErrInvalidState):
		return MessageInvalidState
	case errors.Is(err, ErrInvalidURL):
		return MessageInvalidURL
	case errors.Is(err, ErrRefreshFailed):
		return MessageRefreshFailed
	case errors.As(err, &pErr):
		return MessagePersistFailure
	case errors.Is(err, oembed.ErrNoMetadata):
		return MessageInvalidURL
	}
	return "Something went wrong. Please try again."
}
