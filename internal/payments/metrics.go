// internal/payments/metrics.go
package payments

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsCreatedTotal counts checkout session creation attempts by
	// payment type and outcome.
	SessionsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "acna",
		Subsystem: "payments",
		Name:      "sessions_created_total",
		Help:      "Checkout session creation attempts by payment type and outcome.",
	}, []string{"payment_type", "outcome"})

	// VerificationsTotal counts verification attempts by outcome, including
	// idempotent replays of already-settled sessions.
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "acna",
		Subsystem: "payments",
		Name:      "verifications_total",
		Help:      "Payment verification attempts by outcome.",
	}, []string{"outcome"})

	// InvoiceDownloadsTotal counts served invoice PDFs.
	InvoiceDownloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "acna",
		Subsystem: "payments",
		Name:      "invoice_downloads_total",
		Help:      "Invoice PDFs served.",
	})
)
