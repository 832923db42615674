package metrics

import (
	"strings"
	"testing"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{1, 5, 10})
	h.Observe(0.5)
	h.Observe(3)
	h.Observe(3)
	h.Observe(50)

	snap := h.Snapshot()
	var cumulative uint64
	want := []uint64{1, 3, 3}
	for i := range snap.buckets {
		cumulative += snap.counts[i]
		if cumulative != want[i] {
			t.Fatalf("bucket %v: expected %d got %d", snap.buckets[i], want[i], cumulative)
		}
	}
	if snap.count != 4 {
		t.Fatalf("expected count 4, got %d", snap.count)
	}
}

func TestRenderIncludesFailureLabels(t *testing.T) {
	IncPipelineFailure("RENDERED")
	IncPipelineFailure("QUEUED")

	body := Render()
	for _, want := range []string{
		`pipeline_failures_total{stage="QUEUED"}`,
		`pipeline_failures_total{stage="RENDERED"}`,
		"# TYPE pipeline_duration_seconds histogram",
		"pipeline_runs_total",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
	if strings.Index(body, `stage="QUEUED"`) > strings.Index(body, `stage="RENDERED"`) {
		t.Fatalf("expected labels sorted")
	}
}
