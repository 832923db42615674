package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Millisecond, 1},
		{3 * time.Second, 3},
		{2500 * time.Millisecond, 3},
	}
	for _, tt := range tests {
		if got := RetryAfterSeconds(tt.in); got != tt.want {
			t.Errorf("RetryAfterSeconds(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/submissions/:id/pdf", func(c *gin.Context) {
		SetRetryAfter(c, 3*time.Second)
		Error(c, http.StatusConflict, "NOT_READY", "still processing", gin.H{"parsingStatus": "RENDERED"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/submissions/abc/pdf", nil))

	if w.Code != http.StatusConflict || w.Header().Get("Retry-After") != "3" {
		t.Fatalf("unexpected response %d %q", w.Code, w.Header().Get("Retry-After"))
	}
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "NOT_READY" || body.Error.Message != "still processing" {
		t.Fatalf("unexpected envelope %+v", body)
	}
}

func TestFileSetsDisposition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/f", func(c *gin.Context) {
		File(c, "application/pdf", "inline", "resume-1.pdf", []byte("%PDF"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/f", nil))
	if w.Header().Get("Content-Disposition") != `inline; filename="resume-1.pdf"` {
		t.Fatalf("unexpected disposition %q", w.Header().Get("Content-Disposition"))
	}
	if w.Header().Get("Content-Type") != "application/pdf" || w.Body.String() != "%PDF" {
		t.Fatalf("unexpected body")
	}
}
