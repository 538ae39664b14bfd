package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "presence_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Quote Metrics
	QuotesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "presence_quotes_created_total",
			Help: "Total number of quotes created",
		},
	)

	// Auth Metrics
	RegistrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "presence_registrations_total",
			Help: "Total number of user registrations",
		},
	)

	EmailVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_email_verifications_total",
			Help: "Total number of email verification attempts",
		},
		[]string{"result"},
	)

	// Meditation Metrics
	MeditationsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_meditations_generated_total",
			Help: "Total number of meditation generations",
		},
		[]string{"language"},
	)

	MeditationCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "presence_meditation_cache_hits_total",
			Help: "Total number of meditation requests served from cache",
		},
	)

	MeditationQuotaRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_meditation_quota_rejections_total",
			Help: "Total number of generation requests rejected by the daily quota",
		},
		[]string{"identity_type"},
	)

	MeditationGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "presence_meditation_generation_duration_seconds",
			Help:    "Upstream generation latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to ~1min
		},
	)

	// Email Metrics
	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_emails_sent_total",
			Help: "Total number of email delivery attempts",
		},
		[]string{"status"},
	)

	// Rate limiting
	RateLimitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_rate_limit_rejections_total",
			Help: "Total number of requests rejected by rate limiters",
		},
		[]string{"limiter"},
	)
)
