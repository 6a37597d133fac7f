package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkoutsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptpolish_checkouts_created_total",
		Help: "Checkout sessions opened, labeled by purchase type",
	}, []string{"type"})

	paymentsFulfilled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptpolish_payments_fulfilled_total",
		Help: "Paid sessions whose entitlement was applied, labeled by purchase type and source",
	}, []string{"type", "source"})

	creditsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptpolish_credits_granted_total",
		Help: "Credits added to balances, labeled by reason (purchase, ad_reward)",
	}, []string{"reason"})

	polishOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptpolish_polish_requests_total",
		Help: "Prompt enhancement attempts, labeled by outcome",
	}, []string{"outcome"})

	polishDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "promptpolish_polish_duration_seconds",
		Help:    "Latency of upstream completion calls",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
	})
)
