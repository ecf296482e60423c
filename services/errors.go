package services

import (
	"context"
	"errors"
	"fmt"
	"mealmates-backend/models"
	"time"
)

// Every store call races against this bound; callers treat a timeout like any
// other failure (no automatic retry).
const opTimeout = 8 * time.Second

var (
	// ErrNotMember means the caller lacks an active membership in the group.
	ErrNotMember = errors.New("you are not an active member of this group")

	// ErrRequestNotFound means the referenced request does not exist.
	ErrRequestNotFound = errors.New("request not found")

	// ErrAlreadyTerminated means a status-qualified update found the row no
	// longer in its expected state — another actor got there first.
	ErrAlreadyTerminated = errors.New("request was already completed or cancelled")

	// ErrTimeout means the operation exceeded its bound. Surfaced distinctly so
	// the caller can suggest "try again" rather than "fix your input".
	ErrTimeout = errors.New("operation timed out, please try again")
)

// ActiveRequestExistsError carries the existing session's summary so the
// caller can offer "view" vs "replace".
type ActiveRequestExistsError struct {
	Existing models.ActiveRequestSummary
}

func (e *ActiveRequestExistsError) Error() string {
	return fmt.Sprintf("group already has an active vote session with %d options", e.Existing.TotalOptions)
}

func opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

// translateErr maps a context deadline into the distinguished timeout error.
func translateErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// StepError records one failed step of a multi-step cleanup.
type StepError struct {
	Step  string `json:"step"`
	Error string `json:"error"`
}

// CleanupResult reports a best-effort multi-step deletion: which steps
// succeeded, which failed, and the per-step error. Never collapsed into a
// single boolean.
type CleanupResult struct {
	Succeeded []string    `json:"succeeded"`
	Failed    []StepError `json:"failed,omitempty"`
}

func (r CleanupResult) Ok() bool {
	return len(r.Failed) == 0
}

func (r *CleanupResult) record(step string, err error) {
	if err != nil {
		r.Failed = append(r.Failed, StepError{Step: step, Error: err.Error()})
		return
	}
	r.Succeeded = append(r.Succeeded, step)
}
