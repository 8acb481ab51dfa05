package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// InvoicePreviewTotal counts draft recomputations by outcome (hit, miss, unavailable).
	InvoicePreviewTotal *prometheus.CounterVec
	// InvoiceSubmitTotal counts invoice submissions by outcome.
	InvoiceSubmitTotal *prometheus.CounterVec
	// InvoiceLineCount records the number of lines per submitted invoice.
	InvoiceLineCount prometheus.Histogram
	// RenderTasksTotal counts print render task outcomes.
	RenderTasksTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		InvoicePreviewTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_preview_total",
			Help:      "Count of invoice draft recomputations by outcome.",
		}, []string{"result"})
		InvoiceSubmitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_submit_total",
			Help:      "Count of invoice submissions by outcome.",
		}, []string{"result"})
		InvoiceLineCount = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invoice_lines",
			Help:      "Number of line items per submitted invoice.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		})
		RenderTasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_render_tasks_total",
			Help:      "Count of invoice print render task outcomes.",
		}, []string{"stage", "result"})

		InvoicePreviewTotal = register(reg, InvoicePreviewTotal)
		InvoiceSubmitTotal = register(reg, InvoiceSubmitTotal)
		InvoiceLineCount = register(reg, InvoiceLineCount)
		RenderTasksTotal = register(reg, RenderTasksTotal)
	})
}

// CountPreview increments the preview counter when metrics are registered.
func CountPreview(result string) {
	if InvoicePreviewTotal != nil {
		InvoicePreviewTotal.WithLabelValues(result).Inc()
	}
}

// CountSubmit increments the submit counter when metrics are registered.
func CountSubmit(result string) {
	if InvoiceSubmitTotal != nil {
		InvoiceSubmitTotal.WithLabelValues(result).Inc()
	}
}

// ObserveLines records the line count of a submitted invoice.
func ObserveLines(n int) {
	if InvoiceLineCount != nil {
		InvoiceLineCount.Observe(float64(n))
	}
}

// CountRender increments the render task counter when metrics are registered.
func CountRender(stage, result string) {
	if RenderTasksTotal != nil {
		RenderTasksTotal.WithLabelValues(stage, result).Inc()
	}
}
