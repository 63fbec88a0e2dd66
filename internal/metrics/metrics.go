package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airpool_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airpool_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airpool_bookings_total",
			Help: "Total number of bookings by outcome and payment method",
		},
		[]string{"status", "payment_method"},
	)

	BookingCancellationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airpool_booking_cancellations_total",
			Help: "Total number of booking cancellations by refund reason",
		},
		[]string{"refund_reason"},
	)

	CapacityReserveConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "airpool_capacity_reserve_conflicts_total",
			Help: "Total number of TryReserve calls that lost the race on seats/luggage",
		},
	)

	OffersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airpool_offers_total",
			Help: "Total number of offers by outcome",
		},
		[]string{"status"},
	)

	RequestsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "airpool_requests_expired_total",
			Help: "Total number of ride requests swept into expired status",
		},
	)

	RatingsEmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "airpool_rating_prompts_emitted_total",
			Help: "Total number of rate_driver/rate_passenger notifications emitted by the scheduler",
		},
	)

	WalletTopUpsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "airpool_wallet_topups_total",
			Help: "Total number of wallet top-ups",
		},
	)

	WalletBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "airpool_wallet_balance_cents",
			Help: "Current wallet balance in minor units",
		},
		[]string{"user_id"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airpool_webhook_events_total",
			Help: "Total number of PSP webhook events processed, by type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airpool_notifications_total",
			Help: "Total number of notifications persisted, by kind",
		},
		[]string{"kind"},
	)

	CacheOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airpool_cache_ops_total",
			Help: "Total number of cache operations, by op and outcome (hit/miss/error)",
		},
		[]string{"op", "outcome"},
	)

	WalletTransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airpool_wallet_transactions_total",
			Help: "Total number of ledger transactions appended, by kind and status",
		},
		[]string{"kind", "status"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(status, paymentMethod string) {
	BookingsTotal.WithLabelValues(status, paymentMethod).Inc()
}

func RecordBookingCancellation(refundReason string) {
	BookingCancellationsTotal.WithLabelValues(refundReason).Inc()
}

func RecordCapacityConflict() {
	CapacityReserveConflictsTotal.Inc()
}

func RecordOffer(status string) {
	OffersTotal.WithLabelValues(status).Inc()
}

func RecordRequestExpired() {
	RequestsExpiredTotal.Inc()
}

func RecordRatingPromptEmitted() {
	RatingsEmittedTotal.Inc()
}

func RecordWalletTopUp() {
	WalletTopUpsTotal.Inc()
}

func RecordWebhookEvent(eventType, outcome string) {
	WebhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func RecordNotification(kind string) {
	NotificationsTotal.WithLabelValues(kind).Inc()
}

func RecordCacheOp(op, outcome string) {
	CacheOpsTotal.WithLabelValues(op, outcome).Inc()
}

func RecordWalletTransaction(kind, status string) {
	WalletTransactionsTotal.WithLabelValues(kind, status).Inc()
}
