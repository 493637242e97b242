package entity

import (
	"errors"
	"fmt"
)

// RejectionReason categorizes a refused commit.
type RejectionReason string

const (
	// ReasonPermission means the current user does not own the document.
	ReasonPermission RejectionReason = "PERMISSION"

	// ReasonInvalid means the snapshot failed schema validation.
	ReasonInvalid RejectionReason = "INVALID"

	// ReasonPersist means the accepted value could not be persisted.
	ReasonPersist RejectionReason = "PERSIST"
)

// RejectionError records why a document refused an update.
// It is never returned from CommitUpdate (which reports false); hosts read
// it back through Document.LastRejection to decide whether to warn the user.
type RejectionError struct {
	DocumentID string
	Reason     RejectionReason
	Seq        int64
	Err        error
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: commit rejected (document=%s, seq=%d): %v", e.Reason, e.DocumentID, e.Seq, e.Err)
	}
	return fmt.Sprintf("%s: commit rejected (document=%s, seq=%d)", e.Reason, e.DocumentID, e.Seq)
}

// Unwrap returns the underlying cause.
func (e *RejectionError) Unwrap() error {
	return e.Err
}

// IsPermissionRejection reports whether err is a permission rejection.
func IsPermissionRejection(err error) bool {
	return reasonOf(err) == ReasonPermission
}

// IsValidationRejection reports whether err is a schema rejection.
func IsValidationRejection(err error) bool {
	return reasonOf(err) == ReasonInvalid
}

func reasonOf(err error) RejectionReason {
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}

// ErrNotOwner is the cause recorded for permission rejections.
var ErrNotOwner = errors.New("current user does not own the document")
