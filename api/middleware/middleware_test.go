package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/workbooks-backend/pkg/logger"
	"github.com/angelmondragon/workbooks-backend/pkg/metrics"
)

func TestRequestIDGeneratesAndEchoes(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(requestIDHeader)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || resp.Header().Get(requestIDHeader) != seen {
		t.Fatalf("expected generated request id, got %q", seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-1")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Header().Get(requestIDHeader) != "req-1" {
		t.Fatalf("expected inbound request id to be kept")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "bad id\t"+strings.Repeat("x", 10))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get(requestIDHeader); got == "" || strings.Contains(got, " ") {
		t.Fatalf("expected unusable request id to be replaced, got %q", got)
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &logs})
	handler := Recoverer(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "INTERNAL_ERROR") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
	if !strings.Contains(logs.String(), "boom") {
		t.Fatalf("expected panic to be logged")
	}
}

func TestLoggingRecordsStatus(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &logs})
	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	out := logs.String()
	if !strings.Contains(out, "request.complete") || !strings.Contains(out, `"status":418`) {
		t.Fatalf("unexpected log output %s", out)
	}
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := chi.NewRouter()
	r.Use(Metrics(metrics.NewHTTPMetrics(reg)))
	r.Get("/workbook/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/workbook/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/workbook/def", nil))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "http_requests_total" {
			continue
		}
		if len(family.GetMetric()) != 1 {
			t.Fatalf("expected one series, got %d", len(family.GetMetric()))
		}
		labels := map[string]string{}
		for _, pair := range family.GetMetric()[0].GetLabel() {
			labels[pair.GetName()] = pair.GetValue()
		}
		if labels["route"] != "/workbook/{id}" || labels["code"] != "404" {
			t.Fatalf("unexpected labels %v", labels)
		}
		if got := family.GetMetric()[0].GetCounter().GetValue(); got != 2 {
			t.Fatalf("expected 2 requests, got %v", got)
		}
		return
	}
	t.Fatal("http_requests_total not registered")
}
