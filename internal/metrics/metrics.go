package metrics

import (
	"context"

	"github.com/matheus3301/rolechat/internal/bus"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the chat core's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	sent         *prometheus.CounterVec
	denied       *prometheus.CounterVec
	readReceipts prometheus.Counter
	deleted      prometheus.Counter
	fallbacks    prometheus.Counter
}

// New creates the collectors and registers them on reg. logSize and
// pendingReceipts back gauges that are sampled at scrape time.
func New(reg prometheus.Registerer, logSize, pendingReceipts func() float64) *Metrics {
	m := &Metrics{
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rolechat",
			Name:      "messages_sent_total",
			Help:      "Messages accepted into the log, by sender role.",
		}, []string{"sender_role"}),
		denied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rolechat",
			Name:      "requests_rejected_total",
			Help:      "Requests rejected before reaching the store, by reason.",
		}, []string{"reason"}),
		readReceipts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rolechat",
			Name:      "messages_read_total",
			Help:      "Messages whose read flag flipped to true.",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rolechat",
			Name:      "messages_deleted_total",
			Help:      "Messages removed from the log.",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rolechat",
			Name:      "translation_fallbacks_total",
			Help:      "Translations that fell back to the original text.",
		}),
	}
	reg.MustRegister(m.sent, m.denied, m.readReceipts, m.deleted, m.fallbacks)

	if logSize != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "rolechat",
			Name:      "log_messages",
			Help:      "Messages currently in the log.",
		}, logSize))
	}
	if pendingReceipts != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "rolechat",
			Name:      "pending_read_receipts",
			Help:      "Read receipts scheduled but not yet delivered.",
		}, pendingReceipts))
	}
	return m
}

// Sent counts an accepted message.
func (m *Metrics) Sent(senderRole string) {
	if m == nil {
		return
	}
	m.sent.WithLabelValues(senderRole).Inc()
}

// Rejected counts a request refused at the service boundary.
func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.denied.WithLabelValues(reason).Inc()
}

// TranslationFallback counts a translation that returned the original text.
func (m *Metrics) TranslationFallback(error) {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

// Run counts read and delete events from the bus until ctx is done.
func (m *Metrics) Run(ctx context.Context, b *bus.Bus) {
	if m == nil {
		return
	}
	ch, unsub := b.Subscribe("message.", 256)
	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				switch evt.Kind {
				case bus.MessageRead:
					m.readReceipts.Inc()
				case bus.MessageDeleted:
					m.deleted.Inc()
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
