// Package main is the entry point for the metamonitor CLI.
// metamonitor replays recorded reasoning transcripts through the
// metacognitive monitor and reports loops, drift and quality decline.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/normanking/metamonitor/internal/config"
	"github.com/normanking/metamonitor/internal/logging"
	"github.com/normanking/metamonitor/internal/report"
)

var (
	version   = "0.1.0"
	cfgPath   string
	verbose   bool
	noColor   bool
	formatArg string

	cfg       *config.Config
	log       zerolog.Logger
	logCloser io.Closer
	renderer  *lipgloss.Renderer
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "metamonitor",
		Short: "metamonitor - metacognitive monitoring for reasoning transcripts",
		Long: `metamonitor scores each step of a reasoning session and flags:
  • Circular reasoning (restating, cycling back, concept loops)
  • Distractor fixation (topic drift, detail spirals, topic hopping)
  • Quality degradation (shrinking vocabulary, incoherence, fatigue)

Analyze one transcript:   metamonitor analyze session.txt
Replay many in parallel:  metamonitor replay logs/*.jsonl --metrics-out run.prom
Configuration:            metamonitor config show`,
		SilenceUsage:       true,
		PersistentPreRunE:  initApp,
		PersistentPostRunE: closeApp,
	}

	// Global flags
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.metamonitor/config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().StringVarP(&formatArg, "format", "f", "text", "output format (text|json)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "metamonitor v%s\n", version)
		},
	})

	root.AddCommand(analyzeCmd())
	root.AddCommand(replayCmd())
	root.AddCommand(storeCmd())
	root.AddCommand(configCmd())

	return root
}

// ═══════════════════════════════════════════════════════════════════════════════
// INITIALIZATION
// ═══════════════════════════════════════════════════════════════════════════════

func initApp(cmd *cobra.Command, args []string) error {
	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFromPath(cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, logCloser, err = logging.New(cfg.Logging, logging.Options{
		Console: cmd.ErrOrStderr(),
		NoColor: noColor,
		Verbose: verbose,
	})
	if err != nil {
		return err
	}
	logging.SetGlobal(log)

	renderer = lipgloss.NewRenderer(cmd.OutOrStdout())
	if noColor {
		renderer.SetColorProfile(termenv.Ascii)
	}

	log.Debug().Str("config", configPath()).Msg("configuration loaded")
	return nil
}

func closeApp(cmd *cobra.Command, args []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

func configPath() string {
	if cfgPath != "" {
		return cfgPath
	}
	return config.DefaultPath()
}

func outputFormat() (report.Format, error) {
	return report.ParseFormat(formatArg)
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONFIG COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			m := cfg.Monitor
			fmt.Fprintln(out, "metamonitor Configuration:")
			fmt.Fprintln(out, "──────────────────────────")
			fmt.Fprintf(out, "Config Path:        %s\n", configPath())
			fmt.Fprintf(out, "History Capacity:   %d\n", m.HistoryCapacity)
			fmt.Fprintf(out, "Circular Threshold: %.2f\n", m.CircularThreshold)
			fmt.Fprintf(out, "Degrading Score:    %.2f\n", m.DegradingScore)
			fmt.Fprintf(out, "Declining Score:    %.2f\n", m.DecliningScore)
			fmt.Fprintf(out, "Clear On Reset:     %t\n", m.ClearInterventionsOnReset)
			fmt.Fprintf(out, "Session TTL:        %s\n", cfg.Session.TTL)
			fmt.Fprintf(out, "Max Sessions:       %d\n", cfg.Session.MaxSessions)
			fmt.Fprintf(out, "Store Enabled:      %t\n", cfg.Store.Enabled)
			fmt.Fprintf(out, "Store Path:         %s\n", cfg.Store.Path)
			fmt.Fprintf(out, "Log Level:          %s\n", cfg.Logging.Level)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), configPath())
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The file already exists at this point: loading creates it.
			if !force {
				fmt.Fprintf(cmd.OutOrStdout(), "Config file ready at %s (use --force to reset it)\n", configPath())
				return nil
			}
			if err := config.Default().SaveToPath(configPath()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", configPath())
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite the existing file with defaults")
	cmd.AddCommand(initCmd)

	return cmd
}
