package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue gathers reg and returns the value of the named counter with
// the given label pair, or -1 if it is not present.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return -1
}

func TestMetrics_EndpointExposed(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	s, err := New(&fakeAdviser{result: okResult()}, &Config{}, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Drive one advise request so the counters exist before scraping.
	postAdvise(s, `{"query":"q"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "givetide_advise_requests_total") {
		t.Error("expected givetide_advise_requests_total in /metrics output")
	}
}

func TestMetrics_AdviseOutcomes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	s, err := New(&fakeAdviser{result: okResult()}, &Config{}, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	postAdvise(s, `{"query":"q"}`)
	postAdvise(s, `{"query":""}`)

	if got := counterValue(t, reg, "givetide_advise_requests_total", "outcome", "ok"); got != 1 {
		t.Errorf("outcome=ok: expected 1, got %v", got)
	}
	if got := counterValue(t, reg, "givetide_advise_requests_total", "outcome", "bad_request"); got != 1 {
		t.Errorf("outcome=bad_request: expected 1, got %v", got)
	}
}

func TestMetrics_HTTPRequestsCounted(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	s, err := New(&fakeAdviser{result: okResult()}, &Config{}, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	s.Handler().ServeHTTP(httptest.NewRecorder(), req)

	if got := counterValue(t, reg, "givetide_http_requests_total", "handler", "health"); got != 1 {
		t.Errorf("handler=health: expected 1, got %v", got)
	}
}

func TestHandlerLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		want string
	}{
		{"/api/advise", "advise"},
		{"/api/health", "health"},
		{"/api/ready", "ready"},
		{"/metrics", "metrics"},
		{"/anything/else", "other"},
	}
	for _, tc := range cases {
		if got := handlerLabel(tc.path); got != tc.want {
			t.Errorf("handlerLabel(%q): expected %q, got %q", tc.path, tc.want, got)
		}
	}
}

// Guard against double registration: two servers must not share a registry
// default when none is supplied.
func TestMetrics_IndependentRegistries(t *testing.T) {
	t.Parallel()

	s1, err := New(&fakeAdviser{result: okResult()}, &Config{}, nil)
	if err != nil {
		t.Fatalf("New s1: %v", err)
	}
	if _, err := New(&fakeAdviser{result: okResult()}, &Config{}, nil); err != nil {
		t.Fatalf("New s2: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/advise", bytes.NewBufferString(`{"query":"q"}`))
	w := httptest.NewRecorder()
	s1.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
