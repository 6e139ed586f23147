package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/normanking/metamonitor/internal/bus"
	"github.com/normanking/metamonitor/internal/cognitive/monitor"
	"github.com/normanking/metamonitor/internal/config"
	"github.com/normanking/metamonitor/internal/logging"
	"github.com/normanking/metamonitor/internal/metrics"
	"github.com/normanking/metamonitor/internal/report"
	"github.com/normanking/metamonitor/internal/session"
	"github.com/normanking/metamonitor/internal/transcript"
)

// replayBuffer is the per-subscriber queue size for replay runs.
const replayBuffer = 4096

// errInterventions signals --strict runs that raised at least one intervention.
var errInterventions = errors.New("interventions raised")

// ═══════════════════════════════════════════════════════════════════════════════
// ANALYZE COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func analyzeCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze one reasoning transcript",
		Long: `Analyze runs every thought of a transcript through one monitor session
and prints the per-thought signals followed by the final status.

Transcript formats (by extension):
  .jsonl         {"thought": "..."} per line
  .yaml / .yml   a list of thoughts
  other          plain text, thoughts separated by blank lines`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}
			tr, err := transcript.Load(args[0])
			if err != nil {
				return err
			}

			rep := analyzeTranscript(tr, cfg.Monitor, log)
			r := report.NewRenderer(renderer)
			if err := report.Write(cmd.OutOrStdout(), rep, format, r); err != nil {
				return err
			}
			if strict && len(rep.Status.InterventionHistory) > 0 {
				return errInterventions
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any intervention is raised")
	return cmd
}

// analyzeTranscript runs tr through a fresh monitor.
func analyzeTranscript(tr *transcript.Transcript, mc monitor.Config, logger zerolog.Logger) report.Report {
	m := monitor.New(mc, monitor.WithLogger(logging.Component(logger, "monitor").With().Str("transcript", tr.Name).Logger()))

	rep := report.Report{Source: tr.Name, Entries: make([]report.Entry, 0, len(tr.Thoughts))}
	for _, t := range tr.Thoughts {
		sig := m.AnalyzeThought(t.Text, t.Index)
		rep.Entries = append(rep.Entries, report.Entry{Index: t.Index, Thought: t.Text, Signal: sig})
	}
	rep.Status = m.Status()
	return rep
}

// ═══════════════════════════════════════════════════════════════════════════════
// REPLAY COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

type replayOptions struct {
	Paths    []string
	Parallel int
	// StorePath overrides the configured store; empty uses config.
	StorePath string
}

type replayResult struct {
	Reports   []report.Report
	Collector *metrics.Collector
	Registry  *prometheus.Registry
	Dropped   uint64
}

func replayCmd() *cobra.Command {
	var (
		opts       replayOptions
		metricsOut string
		details    bool
	)
	cmd := &cobra.Command{
		Use:   "replay <files...>",
		Short: "Replay many transcripts as concurrent sessions",
		Long: `Replay loads every transcript as its own session and analyzes them in
parallel through the session manager. Events are aggregated into a metrics
dashboard, optionally persisted to SQLite and exported in Prometheus text
format.

Examples:
  metamonitor replay logs/*.jsonl
  metamonitor replay a.txt b.yaml --metrics-out run.prom --store run.db`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts.Paths = args
			res, err := runReplay(ctx, cfg, log, opts)
			if err != nil {
				return err
			}

			if metricsOut != "" {
				if err := prometheus.WriteToTextfile(metricsOut, res.Registry); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
				log.Info().Str("path", metricsOut).Msg("metrics written")
			}

			return writeReplay(cmd.OutOrStdout(), res, format, details)
		},
	}
	cmd.Flags().IntVarP(&opts.Parallel, "parallel", "p", runtime.NumCPU(), "maximum transcripts analyzed at once")
	cmd.Flags().StringVar(&opts.StorePath, "store", "", "persist signals to this SQLite file (overrides config)")
	cmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write Prometheus metrics to this file")
	cmd.Flags().BoolVar(&details, "details", false, "print every thought, not only each session's status")
	return cmd
}

// runReplay analyzes every transcript in its own session and returns the
// per-transcript reports with the collector that aggregated them.
func runReplay(ctx context.Context, c *config.Config, logger zerolog.Logger, opts replayOptions) (*replayResult, error) {
	store, err := openStore(c.Store, opts.StorePath)
	if err != nil {
		return nil, err
	}
	if store != nil {
		defer store.Close()
	}

	b := bus.NewBusWithConfig(bus.DefaultHistorySize, replayBuffer)
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(b, store, reg, logger)
	if err := collector.Start(ctx); err != nil {
		b.Close()
		return nil, err
	}

	mgr := session.NewManager(c.Session, c.Monitor, session.WithBus(b), session.WithLogger(logger))
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		_ = mgr.Run(janitorCtx)
	}()

	reports := make([]report.Report, len(opts.Paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Parallel, 1))
	for i, path := range opts.Paths {
		g.Go(func() error {
			tr, err := transcript.Load(path)
			if err != nil {
				return err
			}
			id := fmt.Sprintf("%d-%s", i+1, tr.Name)
			rep := report.Report{Source: path, Session: id, Entries: make([]report.Entry, 0, len(tr.Thoughts))}
			for _, t := range tr.Thoughts {
				if err := gctx.Err(); err != nil {
					return err
				}
				sig, err := mgr.Analyze(id, t.Text, t.Index)
				if err != nil {
					return err
				}
				rep.Entries = append(rep.Entries, report.Entry{Index: t.Index, Thought: t.Text, Signal: sig})
			}
			if rep.Status, err = mgr.Status(id); err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}
	runErr := g.Wait()

	stopJanitor()
	<-janitorDone

	// Closing the bus drains queued events into the collector and store.
	if err := b.Close(); err != nil {
		logger.Warn().Err(err).Msg("close event bus")
	}
	collector.Stop()

	if runErr != nil {
		return nil, runErr
	}

	if dropped := b.Dropped(); dropped > 0 {
		logger.Warn().Uint64("dropped_events", dropped).Msg("event bus dropped deliveries; metrics and store are incomplete")
	}
	logger.Info().
		Int("transcripts", len(opts.Paths)).
		Int("sessions", mgr.Count()).
		Uint64("dropped_events", b.Dropped()).
		Msg("replay complete")

	return &replayResult{Reports: reports, Collector: collector, Registry: reg, Dropped: b.Dropped()}, nil
}

func openStore(sc config.StoreConfig, override string) (*metrics.Store, error) {
	path := override
	if path == "" {
		if !sc.Enabled {
			return nil, nil
		}
		path = sc.Path
	}
	store, err := metrics.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

func writeReplay(w io.Writer, res *replayResult, format report.Format, details bool) error {
	if format == report.FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Reports []report.Report `json:"reports"`
			Stats   metrics.Stats   `json:"stats"`
		}{res.Reports, res.Collector.Stats()})
	}

	r := report.NewRenderer(renderer)
	for _, rep := range res.Reports {
		if details {
			if _, err := io.WriteString(w, r.Render(rep)); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(w, "%s (%d thoughts)\n%s\n", rep.Source, len(rep.Entries), r.Status(rep.Status))
	}

	_, err := fmt.Fprintln(w, metrics.NewDashboard(res.Collector, renderer).Render())
	return err
}

// ═══════════════════════════════════════════════════════════════════════════════
// STORE COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func storeCmd() *cobra.Command {
	var (
		path  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect persisted monitoring data",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "SQLite file (default: configured store path)")

	cmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Show totals by phase and intervention kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStoreForRead(path)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			sum, err := store.Summary(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Store Summary:")
			fmt.Fprintln(out, "──────────────")
			fmt.Fprintf(out, "Sessions:      %d\n", sum.Sessions)
			fmt.Fprintf(out, "Thoughts:      %d\n", sum.Thoughts)
			fmt.Fprintf(out, "Interventions: %d\n", sum.Interventions)
			for _, kind := range slices.Sorted(maps.Keys(sum.ByKind)) {
				fmt.Fprintf(out, "  %-22s %d\n", kind, sum.ByKind[kind])
			}
			return nil
		},
	})

	sessionID := ""
	recent := &cobra.Command{
		Use:   "interventions",
		Short: "List the most recent interventions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStoreForRead(path)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			rows, err := store.RecentInterventions(ctx, sessionID, limit)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No interventions recorded")
				return nil
			}
			for _, row := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-20s #%-3d %-22s %s\n",
					row.CreatedAt.Format(time.DateTime), row.SessionID, row.ThoughtIndex, row.Kind, row.Reason)
			}
			return nil
		},
	}
	recent.Flags().IntVarP(&limit, "limit", "n", 20, "number of interventions to show")
	recent.Flags().StringVar(&sessionID, "session", "", "only show this session")
	cmd.AddCommand(recent)

	return cmd
}

func openStoreForRead(path string) (*metrics.Store, error) {
	if path == "" {
		path = cfg.Store.Path
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("store %s: %w", path, err)
	}
	return metrics.Open(path)
}
