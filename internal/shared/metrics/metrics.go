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
	pipelineRunsTotal     atomic.Uint64
	pipelineReadyTotal    atomic.Uint64
	claimSkippedTotal     atomic.Uint64
	compileAttemptsTotal  atomic.Uint64
	submissionsSweptTotal atomic.Uint64

	pipelineFailuresTotal = newLabeledCounter()
	workerMessagesTotal   = newLabeledCounter()
	httpResponsesTotal    = newLabeledCounter()
	httpPanicsTotal       atomic.Uint64

	pipelineDuration = newHistogram([]float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300})
)

// IncPipelineRun counts a claimed pipeline run.
func IncPipelineRun() {
	pipelineRunsTotal.Add(1)
}

// IncPipelineReady counts a run that reached READY.
func IncPipelineReady() {
	pipelineReadyTotal.Add(1)
}

// IncPipelineFailure counts a run that failed while in the given stage.
func IncPipelineFailure(stage string) {
	pipelineFailuresTotal.Inc(stage)
}

// IncClaimSkipped counts deliveries dropped because the run was already claimed.
func IncClaimSkipped() {
	claimSkippedTotal.Add(1)
}

// IncCompileAttempt counts a single request to the LaTeX compile service.
func IncCompileAttempt() {
	compileAttemptsTotal.Add(1)
}

// AddSwept counts submissions deactivated by the retention sweep.
func AddSwept(n int64) {
	if n > 0 {
		submissionsSweptTotal.Add(uint64(n))
	}
}

// IncWorkerMessage counts a queue delivery by outcome
// (received, completed, failed, dropped).
func IncWorkerMessage(outcome string) {
	workerMessagesTotal.Inc(outcome)
}

// IncHTTPResponse counts a finished request by status class (2xx, 4xx, ...).
func IncHTTPResponse(status int) {
	httpResponsesTotal.Inc(strconv.Itoa(status/100) + "xx")
}

// IncHTTPPanic counts a handler panic caught by the recovery middleware.
func IncHTTPPanic() {
	httpPanicsTotal.Add(1)
}

// ObservePipelineDuration records a run duration.
func ObservePipelineDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	pipelineDuration.Observe(d.Seconds())
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
	writeCounter(&buf, "pipeline_runs_total", "Total pipeline runs claimed", pipelineRunsTotal.Load())
	writeCounter(&buf, "pipeline_ready_total", "Total pipeline runs that reached READY", pipelineReadyTotal.Load())
	writeLabeledCounter(&buf, "pipeline_failures_total", "Total pipeline runs failed, by stage", "stage", pipelineFailuresTotal.Snapshot())
	writeCounter(&buf, "pipeline_claim_skipped_total", "Deliveries dropped because the run was already claimed", claimSkippedTotal.Load())
	writeCounter(&buf, "latex_compile_attempts_total", "Total requests sent to the LaTeX compile service", compileAttemptsTotal.Load())
	writeLabeledCounter(&buf, "worker_messages_total", "Queue deliveries handled by the worker, by outcome", "outcome", workerMessagesTotal.Snapshot())
	writeCounter(&buf, "submissions_swept_total", "Submissions deactivated by the retention sweep", submissionsSweptTotal.Load())
	writeLabeledCounter(&buf, "http_responses_total", "HTTP responses, by status class", "class", httpResponsesTotal.Snapshot())
	writeCounter(&buf, "http_panics_total", "Handler panics recovered", httpPanicsTotal.Load())
	writeHistogram(&buf, "pipeline_duration_seconds", "Pipeline run duration in seconds", pipelineDuration.Snapshot())
	return buf.String()
}

type labeledCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{values: make(map[string]uint64)}
}

func (c *labeledCounter) Inc(label string) {
	c.mu.Lock()
	c.values[label]++
	c.mu.Unlock()
}

func (c *labeledCounter) Snapshot() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
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

// Observe records value in the first bucket that holds it; rendering accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
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
