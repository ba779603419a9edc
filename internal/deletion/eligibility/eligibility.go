// Package eligibility computes whether an account may legally be erased.
//
// The evaluation is a pure function of the account's active registration
// dates and the current time. Nothing here is persisted; only the resulting
// date is, by the scheduler. Re-running the evaluation against an unchanged
// snapshot always yields the same answer.
package eligibility

import "time"

// RetentionWindow is how long after an attended event the account's data
// must be retained.
const RetentionWindow = 28 * 24 * time.Hour

// Reason explains why immediate erasure is not legal.
type Reason string

const (
	// ReasonUpcomingEvent: the account still holds an active registration
	// for an event that has not happened yet.
	ReasonUpcomingEvent Reason = "upcoming_event"

	// ReasonRetentionWindow: the most recent attended event is less than
	// the retention window in the past.
	ReasonRetentionWindow Reason = "retention_window"
)

// Result is the outcome of an eligibility evaluation.
type Result struct {
	Eligible      bool
	Reason        Reason     // empty when eligible
	EligibleAfter *time.Time // earliest legal erasure date when not eligible
}

// Evaluate decides erasure eligibility from the dates of the account's
// active registrations.
//
//  1. No active registrations: eligible immediately.
//  2. Any future event: ineligible until the latest future date plus the
//     retention window.
//  3. All in the past: eligible once the most recent one is at least the
//     retention window ago.
func Evaluate(now time.Time, eventDates []time.Time) Result {
	if len(eventDates) == 0 {
		return Result{Eligible: true}
	}

	var latestFuture, latestPast time.Time
	hasFuture := false
	for _, date := range eventDates {
		if date.After(now) {
			hasFuture = true
			if date.After(latestFuture) {
				latestFuture = date
			}
		} else if date.After(latestPast) {
			latestPast = date
		}
	}

	if hasFuture {
		after := latestFuture.Add(RetentionWindow)
		return Result{Eligible: false, Reason: ReasonUpcomingEvent, EligibleAfter: &after}
	}

	if now.Sub(latestPast) >= RetentionWindow {
		return Result{Eligible: true}
	}
	after := latestPast.Add(RetentionWindow)
	return Result{Eligible: false, Reason: ReasonRetentionWindow, EligibleAfter: &after}
}
