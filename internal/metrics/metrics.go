package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyroom_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ReservationsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_reservations_created_total",
			Help: "Total number of reservations accepted by the store",
		},
		[]string{"room_id", "duration"},
	)

	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_rejections_total",
			Help: "Booking and cancel attempts refused, by reason and origin",
		},
		[]string{"reason", "origin"},
	)

	CancellationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_cancellations_total",
			Help: "Total number of reservation cancellations",
		},
		[]string{"authority"},
	)

	RoomStatusChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_room_status_changes_total",
			Help: "Admin room status updates",
		},
		[]string{"status"},
	)

	SyncRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_sync_refreshes_total",
			Help: "Availability refreshes by outcome",
		},
		[]string{"outcome"},
	)

	SyncSupersededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyroom_sync_superseded_total",
			Help: "Refresh responses discarded because a newer refresh was already applied",
		},
	)

	IndexedSlots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studyroom_indexed_slots",
			Help: "Reserved slots in the most recently applied availability index",
		},
	)

	IndexCollisions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studyroom_index_collisions",
			Help: "Slots claimed by more than one reservation in the last index build",
		},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_cache_lookups_total",
			Help: "Active reservation cache lookups",
		},
		[]string{"result"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordReservation(roomID, duration string) {
	ReservationsCreatedTotal.WithLabelValues(roomID, duration).Inc()
}

// RecordRejection counts a refusal. origin is "local" or "store".
func RecordRejection(reason, origin string) {
	RejectionsTotal.WithLabelValues(reason, origin).Inc()
}

func RecordCancellation(authority string) {
	CancellationsTotal.WithLabelValues(authority).Inc()
}

func RecordRoomStatusChange(status string) {
	RoomStatusChangesTotal.WithLabelValues(status).Inc()
}

// RecordRefresh counts a finished refresh. outcome is "applied", "superseded" or
// "failed".
func RecordRefresh(outcome string) {
	SyncRefreshesTotal.WithLabelValues(outcome).Inc()
	if outcome == "superseded" {
		SyncSupersededTotal.Inc()
	}
}

func RecordIndex(slots, collisions int) {
	IndexedSlots.Set(float64(slots))
	IndexCollisions.Set(float64(collisions))
}

func RecordCacheLookup(hit bool) {
	if hit {
		CacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	CacheLookupsTotal.WithLabelValues("miss").Inc()
}
