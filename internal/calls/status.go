package calls

import "time"

// OverallStatus is the read-side aggregate shown on a case: one judgment
// across the call and its paired email.
type OverallStatus string

const (
	OverallFailed        OverallStatus = "failed"
	OverallCompleted     OverallStatus = "completed"
	OverallInProgress    OverallStatus = "in_progress"
	OverallScheduled     OverallStatus = "scheduled"
	OverallReady         OverallStatus = "ready"
	OverallPendingReview OverallStatus = "pending_review"
)

// StatusInput carries the pieces the aggregation needs. Nil status pointers
// mean the corresponding communication was never created.
type StatusInput struct {
	CallStatus  *CallStatus
	EmailStatus *EmailStatus

	CallScheduledFor  *time.Time
	EmailScheduledFor *time.Time
}

// DeriveOverallStatus folds call and email state into one aggregate.
//
// Precedence is strict and ordered: failure dominates everything, then
// completion (either leg completing counts when the other is absent), then
// live progress, then queued items split on whether their scheduled time
// has passed, with pending_review as the terminal fallback.
func DeriveOverallStatus(in StatusInput, now time.Time) OverallStatus {
	callFailed := in.CallStatus != nil && (*in.CallStatus == CallStatusFailed || *in.CallStatus == CallStatusCanceled)
	emailFailed := in.EmailStatus != nil && (*in.EmailStatus == EmailStatusFailed || *in.EmailStatus == EmailStatusCanceled)
	if callFailed || emailFailed {
		return OverallFailed
	}

	callDone := in.CallStatus != nil && *in.CallStatus == CallStatusCompleted
	emailDone := in.EmailStatus != nil && *in.EmailStatus == EmailStatusSent
	callDoneOrAbsent := in.CallStatus == nil || callDone
	emailDoneOrAbsent := in.EmailStatus == nil || emailDone
	if callDoneOrAbsent && emailDoneOrAbsent && (callDone || emailDone) {
		return OverallCompleted
	}

	if in.CallStatus != nil && (*in.CallStatus == CallStatusRinging || *in.CallStatus == CallStatusInProgress) {
		return OverallInProgress
	}

	if t, ok := queuedTime(in); ok {
		if t.After(now) {
			return OverallScheduled
		}
		return OverallReady
	}

	return OverallPendingReview
}

// queuedTime returns the scheduled time of a queued leg, preferring the
// call when both are queued.
func queuedTime(in StatusInput) (time.Time, bool) {
	if in.CallStatus != nil && *in.CallStatus == CallStatusQueued && in.CallScheduledFor != nil {
		return *in.CallScheduledFor, true
	}
	if in.EmailStatus != nil && *in.EmailStatus == EmailStatusQueued && in.EmailScheduledFor != nil {
		return *in.EmailScheduledFor, true
	}
	return time.Time{}, false
}
