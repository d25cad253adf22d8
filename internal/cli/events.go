package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/smashingtags/homelabarr-containers/internal/control"
	"github.com/smashingtags/homelabarr-containers/internal/core/config"
)

var eventsLimit int

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recent connection events from the persistent journal",
	Run:   runEvents,
}

func init() {
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 20, "number of events to show")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Journal.Driver == config.DriverMemory {
		slog.Error("The memory journal lives inside the server process; query /health/detailed instead")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, _, err := control.OpenRepository(ctx, cfg.Journal)
	if err != nil {
		slog.Error("Failed to open journal", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = repo.Close()
	}()

	events, err := repo.Recent(ctx, eventsLimit)
	if err != nil {
		slog.Error("Failed to query events", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TIME\tTYPE\tSOURCE\tRETRY\tBREAKER\tKIND")
	for _, ev := range events {
		kind := "-"
		if ev.Diagnosis != nil {
			kind = string(ev.Diagnosis.Kind)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			ev.OccurredAt.Format(time.RFC3339), ev.Type, ev.Source, ev.RetryCount, ev.Breaker, kind)
	}
	_ = w.Flush()
}
