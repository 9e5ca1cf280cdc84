package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit_IsRepeatable(t *testing.T) {
	Init()
	Init()
}

func TestCounters_Increment(t *testing.T) {
	before := testutil.ToFloat64(ContributionsTotal.WithLabelValues("applied"))
	ContributionsTotal.WithLabelValues("applied").Inc()
	after := testutil.ToFloat64(ContributionsTotal.WithLabelValues("applied"))

	if after-before != 1 {
		t.Errorf("Expected counter to grow by 1, got %v", after-before)
	}
}

func TestHandler_ExposesCollectors(t *testing.T) {
	Init()
	StreaksExpired.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "challenge_streaks_expired_total") {
		t.Error("Expected streak counter in metrics output")
	}
}
