package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	TransitionsApplied   *prometheus.CounterVec
	TransitionsRejected  *prometheus.CounterVec
	TransitionConflicts  prometheus.Counter
	AuditEntriesRecorded prometheus.Counter
	AuditRecordFailures  prometheus.Counter
	NotificationsCreated *prometheus.CounterVec
	NotificationsExpired prometheus.Counter
	NotificationsPurged  prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TransitionsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eventdesk_transitions_applied_total",
			Help: "Proposal status transitions applied, by target status",
		}, []string{"to"}),
		TransitionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eventdesk_transitions_rejected_total",
			Help: "Proposal status transitions rejected, by reason",
		}, []string{"reason"}),
		TransitionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventdesk_transition_conflicts_total",
			Help: "Transitions lost to a concurrent writer",
		}),
		AuditEntriesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventdesk_audit_entries_recorded_total",
			Help: "Audit log entries successfully recorded",
		}),
		AuditRecordFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventdesk_audit_record_failures_total",
			Help: "Audit log writes swallowed at the recorder boundary",
		}),
		NotificationsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eventdesk_notifications_created_total",
			Help: "Notifications created, by priority",
		}, []string{"priority"}),
		NotificationsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventdesk_notifications_expired_total",
			Help: "Notifications marked expired by the cleanup sweep",
		}),
		NotificationsPurged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventdesk_notifications_purged_total",
			Help: "Expired notifications hard-deleted after retention",
		}),
	}
}
