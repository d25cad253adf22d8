package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
	"github.com/smashingtags/homelabarr-containers/internal/health"
	"github.com/smashingtags/homelabarr-containers/internal/resilience/breaker"
)

func TestFetchStatus_DecodesErrorReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(health.Report{
			Status:         health.StatusError,
			Service:        domain.ServiceUnavailable,
			CircuitBreaker: breaker.Snapshot{State: breaker.StateOpen, Threshold: 3, ConsecutiveFailures: 3},
			Connection: domain.ConnectionState{
				LastError: &domain.Diagnosis{Kind: domain.KindSocketPermissionDenied, Code: "EACCES"},
			},
			Resolution: "Add the container user to the docker group.",
			Timestamp:  time.Now(),
		})
	}))
	defer srv.Close()

	report, err := fetchStatus(context.Background(), srv.Client(), srv.URL+"/")
	if err != nil {
		t.Fatalf("fetchStatus: %v", err)
	}
	if report.Status != health.StatusError || report.CircuitBreaker.State != breaker.StateOpen {
		t.Errorf("unexpected report: %+v", report)
	}

	var buf bytes.Buffer
	printStatus(&buf, report)
	out := buf.String()
	for _, want := range []string{"ERROR", "OPEN (3/3 failures)", "socket-permission-denied", "docker group"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFetchStatus_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := fetchStatus(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Error("expected error for 500")
	}
}
