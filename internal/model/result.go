package model

import (
	"fmt"
	"time"
)

// ResultStatus is the final outcome of one credential check.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailed  ResultStatus = "failed"
)

// Result is the outcome of processing a single credential. Exactly one
// Result exists per input credential, plus one per parse-level failure.
type Result struct {
	Email    string
	AuthKind AuthKind
	Status   ResultStatus

	// InboxCount and SentCount are only meaningful when Status is success.
	InboxCount int
	SentCount  int

	// Note carries a non-fatal caveat on a success row, e.g. a sent folder
	// that could not be selected.
	Note string

	// ErrorMessage is only set when Status is failed.
	ErrorMessage string

	Timestamp time.Time
	Elapsed   time.Duration

	// Position mirrors Credential.Position so concurrent results can be
	// restored to input order.
	Position int
}

// SuccessResult builds a success Result with folder counts.
func SuccessResult(email string, kind AuthKind, inbox, sent int, elapsed time.Duration) Result {
	return Result{
		Email:      email,
		AuthKind:   kind,
		Status:     ResultSuccess,
		InboxCount: inbox,
		SentCount:  sent,
		Timestamp:  time.Now(),
		Elapsed:    elapsed,
	}
}

// FailureResult builds a failed Result carrying a human-readable message.
func FailureResult(email string, kind AuthKind, message string, elapsed time.Duration) Result {
	return Result{
		Email:        email,
		AuthKind:     kind,
		Status:       ResultFailed,
		ErrorMessage: message,
		Timestamp:    time.Now(),
		Elapsed:      elapsed,
	}
}

// IsSuccess reports whether the check succeeded.
func (r Result) IsSuccess() bool {
	return r.Status == ResultSuccess
}

// TotalMessages returns the combined inbox and sent count.
func (r Result) TotalMessages() int {
	return r.InboxCount + r.SentCount
}

// Summary returns a one-line human-readable rendering of the result.
func (r Result) Summary() string {
	if r.IsSuccess() {
		return fmt.Sprintf("%s: %d inbox, %d sent", r.Email, r.InboxCount, r.SentCount)
	}
	return fmt.Sprintf("%s: %s", r.Email, r.ErrorMessage)
}
