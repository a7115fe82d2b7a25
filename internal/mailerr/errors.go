// Package mailerr defines the error taxonomy shared by the mail pipeline.
// Validation failures are returned synchronously; transport failures are
// recorded as data on the outbox entry instead (see dispatch).
package mailerr

import (
	"errors"
	"fmt"
)

var (
	// ErrMessageNotFound covers every operation handed a message id whose
	// backing record was deleted out of band.
	ErrMessageNotFound = errors.New("message has been deleted by another user")

	ErrEntryNotFound = errors.New("outbox entry not found")

	ErrAccountNotFound = errors.New("mail account not found")

	ErrPermissionDenied = errors.New("you do not have permission to open the email message")

	// ErrMessageImmutable is the base of the status-specific mutation errors
	// below; match with errors.Is.
	ErrMessageImmutable = errors.New("email message can no longer be modified")

	ErrEntryQueued     = fmt.Errorf("%w: it is queued for sending", ErrMessageImmutable)
	ErrEntryProcessing = fmt.Errorf("%w: it is being sent", ErrMessageImmutable)

	ErrAlreadySent = errors.New("email message has already been sent")
)

// CapabilityError is returned when a connector does not declare the
// requested operation. The message names the missing operation.
type CapabilityError struct {
	Connector string
	Operation string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("connector %q does not support %s", e.Connector, e.Operation)
}

// IsCapability reports whether err is a CapabilityError.
func IsCapability(err error) bool {
	var ce *CapabilityError
	return errors.As(err, &ce)
}
