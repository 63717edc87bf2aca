package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, pair := range m.GetLabel() {
				if pair.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	c.ObserveAdmission("ok", 20*time.Millisecond)
	c.ObserveAdmission("ok", 10*time.Millisecond)
	c.ObserveAdmission("match_full", time.Millisecond)
	c.ObserveNotification("published")

	if got := counterValue(t, reg, "arena_admissions_total", "ok"); got != 2 {
		t.Fatalf("expected 2 ok admissions, got %v", got)
	}
	if got := counterValue(t, reg, "arena_admissions_total", "match_full"); got != 1 {
		t.Fatalf("expected 1 match_full admission, got %v", got)
	}
	if got := counterValue(t, reg, "arena_notifications_total", "published"); got != 1 {
		t.Fatalf("expected 1 notification, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).ObserveAdmission("ok", time.Millisecond)

	healthy := NewHandler(reg, func(context.Context) error { return nil })
	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `arena_admissions_total{outcome="ok"} 1`) {
		t.Fatalf("metrics output missing counter:\n%s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	sick := NewHandler(reg, func(context.Context) error { return errors.New("db down") })
	rec = httptest.NewRecorder()
	sick.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "db down") {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}
