// Package workflow owns the legal states and transitions of a report.
// Guards on who may fire an event live in the services; this package only
// answers whether an edge exists.
package workflow

import (
	"github.com/spec-kit/civic-report-service/internal/domain"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

// Event identifies a lifecycle transition request.
type Event string

const (
	EventApprove Event = "approve"
	EventReject  Event = "reject"
	EventStart   Event = "start"
	EventSuspend Event = "suspend"
	EventResume  Event = "resume"
	EventResolve Event = "resolve"
)

var transitions = map[domain.ReportStatus]map[Event]domain.ReportStatus{
	domain.ReportStatusPendingApproval: {
		EventApprove: domain.ReportStatusAssigned,
		EventReject:  domain.ReportStatusRejected,
	},
	domain.ReportStatusAssigned: {
		EventStart:   domain.ReportStatusInProgress,
		EventResolve: domain.ReportStatusResolved,
	},
	domain.ReportStatusInProgress: {
		EventSuspend: domain.ReportStatusSuspended,
		EventResolve: domain.ReportStatusResolved,
	},
	domain.ReportStatusSuspended: {
		EventResume: domain.ReportStatusInProgress,
	},
}

// Next returns the status reached by firing event from current. The caller
// must not mutate the report when an error is returned.
func Next(current domain.ReportStatus, event Event) (domain.ReportStatus, error) {
	next, ok := transitions[current][event]
	if !ok {
		return current, apperrors.NewInvalidTransition("status transition not allowed", map[string]any{
			"current_status": current,
			"event":          event,
		})
	}
	return next, nil
}

// EventFor resolves the event implied by a requested target status. The HTTP
// surface speaks in target statuses; the guards are keyed by event.
func EventFor(current, target domain.ReportStatus) (Event, error) {
	for event, next := range transitions[current] {
		if next == target {
			return event, nil
		}
	}
	return "", apperrors.NewInvalidTransition("status transition not allowed", map[string]any{
		"current_status": current,
		"target_status":  target,
	})
}

// CanFire reports whether the edge exists without constructing an error.
func CanFire(current domain.ReportStatus, event Event) bool {
	_, ok := transitions[current][event]
	return ok
}
