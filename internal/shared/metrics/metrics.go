package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	recommendationsServedTotal atomic.Uint64
	applicationsSubmittedTotal atomic.Uint64
	duplicateApplicationsTotal atomic.Uint64
	catalogUpsertsTotal        atomic.Uint64
	catalogRejectedTotal       atomic.Uint64
	notificationFailuresTotal  atomic.Uint64

	transitionsTotal     = newLabeledCounter()
	catalogMessagesTotal = newLabeledCounter()

	recommendationDuration = newHistogram([]float64{1, 2, 5, 10, 25, 50, 100, 250, 500})
)

// IncRecommendationsServed increments the served recommendation pages counter.
func IncRecommendationsServed() {
	recommendationsServedTotal.Add(1)
}

// ObserveRecommendationDurationMs records a ranking duration in milliseconds.
func ObserveRecommendationDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	recommendationDuration.Observe(value)
}

func IncApplicationsSubmitted() {
	applicationsSubmittedTotal.Add(1)
}

func IncDuplicateApplications() {
	duplicateApplicationsTotal.Add(1)
}

// IncTransition counts an application moving into state.
func IncTransition(state string) {
	transitionsTotal.Inc(state)
}

func IncCatalogUpserts() {
	catalogUpsertsTotal.Add(1)
}

func IncCatalogRejected() {
	catalogRejectedTotal.Add(1)
}

func IncNotificationFailures() {
	notificationFailuresTotal.Add(1)
}

// IncCatalogMessage counts a queued catalog message by outcome
// (completed, failed, discarded).
func IncCatalogMessage(outcome string) {
	catalogMessagesTotal.Inc(outcome)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "recommendations_served_total", "Total recommendation pages served", recommendationsServedTotal.Load())
	writeHistogram(&buf, "recommendation_duration_ms", "Recommendation ranking duration in milliseconds", recommendationDuration.Snapshot())
	writeCounter(&buf, "applications_submitted_total", "Total applications submitted", applicationsSubmittedTotal.Load())
	writeCounter(&buf, "applications_duplicate_total", "Total submissions rejected as duplicates", duplicateApplicationsTotal.Load())
	writeLabeledCounter(&buf, "application_transitions_total", "Application transitions by target state", "state", transitionsTotal.Snapshot())
	writeCounter(&buf, "catalog_upserts_total", "Total opportunities accepted into the catalog", catalogUpsertsTotal.Load())
	writeCounter(&buf, "catalog_rejected_total", "Total opportunities rejected at ingestion", catalogRejectedTotal.Load())
	writeLabeledCounter(&buf, "catalog_messages_total", "Queued catalog messages by outcome", "outcome", catalogMessagesTotal.Snapshot())
	writeCounter(&buf, "notification_failures_total", "Total notifier deliveries that failed", notificationFailuresTotal.Load())
	return buf.String()
}

type labeledCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{values: make(map[string]uint64)}
}

func (l *labeledCounter) Inc(label string) {
	l.mu.Lock()
	l.values[label]++
	l.mu.Unlock()
}

func (l *labeledCounter) Snapshot() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]uint64, len(l.values))
	for k, v := range l.values {
		out[k] = v
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket whose bound covers it; Render accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// SinceMillis returns the elapsed time since start in milliseconds.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
