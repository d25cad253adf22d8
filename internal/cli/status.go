package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/smashingtags/homelabarr-containers/internal/health"
)

var statusURL string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the Docker connection status of a running instance",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusURL, "url", "http://localhost:8080", "base URL of the running instance")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report, err := fetchStatus(ctx, http.DefaultClient, statusURL)
	if err != nil {
		slog.Error("Failed to fetch status", "url", statusURL, "error", err)
		os.Exit(1)
	}

	printStatus(os.Stdout, report)
	if report.Status == health.StatusError {
		os.Exit(1)
	}
}

func fetchStatus(ctx context.Context, client *http.Client, baseURL string) (*health.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(baseURL, "/")+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// 503 still carries a report.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var report health.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode health report: %w", err)
	}
	return &report, nil
}

func printStatus(out io.Writer, r *health.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintf(w, "STATUS\t%s\n", r.Status)
	_, _ = fmt.Fprintf(w, "SERVICE\t%s\n", r.Service)
	_, _ = fmt.Fprintf(w, "MESSAGE\t%s\n", r.Message)
	if r.Reason != "" && r.Reason != r.Message {
		_, _ = fmt.Fprintf(w, "REASON\t%s\n", r.Reason)
	}
	_, _ = fmt.Fprintf(w, "CONNECTED\t%t\n", r.Connection.Connected)
	_, _ = fmt.Fprintf(w, "BREAKER\t%s (%d/%d failures)\n",
		r.CircuitBreaker.State, r.CircuitBreaker.ConsecutiveFailures, r.CircuitBreaker.Threshold)

	if r.Retry != nil {
		next := "-"
		if r.Retry.NextRetryAt != nil {
			next = r.Retry.NextRetryAt.Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(w, "RETRY\t%d/%d (next %s)\n", r.Retry.Attempt, r.Retry.MaxAttempts, next)
	}
	if d := r.Connection.LastError; d != nil {
		_, _ = fmt.Fprintf(w, "LAST ERROR\t%s (%s, recoverable=%t)\n", d.Kind, d.Code, d.Recoverable)
	}
	if r.Resolution != "" {
		_, _ = fmt.Fprintf(w, "RESOLUTION\t%s\n", r.Resolution)
	}
	if r.Docker != nil {
		_, _ = fmt.Fprintf(w, "DOCKER\t%s (API %s)\n", r.Docker.Version, r.Docker.APIVersion)
	}
	_ = w.Flush()
}
