package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dupeforge/dupeforge/internal/notify"
	"github.com/dupeforge/dupeforge/internal/queue"
	"github.com/dupeforge/dupeforge/internal/scheduler"
	"github.com/dupeforge/dupeforge/internal/selector"
)

var serveLogDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and job queue as a long-lived process",
	Long: `Starts dupeforge as a daemon: the Clock & Scheduler fires on the
configured cron expression, each tick enqueues due repositories and ready
repository groups onto the Job Queue, and the Event Bus fans progress and
completion events out to any configured notification channels.

Press Ctrl+C to stop gracefully; in-flight scans are allowed to finish.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveLogDir, "log-dir", "logs",
		"directory to write run logs and job history for later inspection")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Println("\nShutting down gracefully...")
		cancel()
	}()

	closeLog, err := setupServeFileLogger(serveLogDir)
	if err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	defer closeLog()

	a, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	dispatcher := scheduler.Dispatcher{Intra: a.orch, Inter: a.coord}
	q := queue.New(dispatcher, a.bus, queue.Options{
		MaxConcurrentScans: a.cfg.Scan.MaxConcurrentScans,
		MaxAttempts:        a.cfg.Scan.RetryAttempts,
		RetryDelay:         time.Duration(a.cfg.Scan.RetryDelayMs) * time.Millisecond,
		HistoryDir:         filepath.Join(serveLogDir, "jobs"),
	})

	sel := selector.New(a.reg)
	sched, err := scheduler.New(sel, q, scheduler.Options{
		Schedule:     a.cfg.Scan.Schedule,
		RunOnStartup: a.cfg.Scan.RunOnStartup,
		MaxRepos:     a.cfg.Scan.MaxRepositoriesPerNight,
		JobTimeout:   time.Duration(a.cfg.Scan.ScanTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}

	dispatcher2 := notify.NewDispatcher(a.cfg.Notify, a.bus)
	if dispatcher2.IsAnyConfigured() {
		go dispatcher2.Run(ctx)
	}

	sched.Start()
	defer sched.Stop()

	fmt.Printf("dupeforge serve starting\n")
	fmt.Printf("  Schedule   : %s\n", a.cfg.Scan.Schedule)
	fmt.Printf("  Max/night  : %d\n", a.cfg.Scan.MaxRepositoriesPerNight)
	fmt.Printf("  Concurrency: %d\n", a.cfg.Scan.MaxConcurrentScans)
	fmt.Printf("  Logs       : %s\n\n", serveLogDir)
	fmt.Println("Press Ctrl+C to stop gracefully.")

	<-ctx.Done()
	q.Wait()
	fmt.Println("Stopped.")
	return nil
}

func setupServeFileLogger(logDir string) (func(), error) {
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir %s: %w", logDir, err)
	}

	ts := time.Now().UTC().Format("20060102-150405")
	runLogPath := filepath.Join(logDir, fmt.Sprintf("serve-%s.log", ts))
	runFile, err := os.OpenFile(runLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening run log file: %w", err)
	}

	latestPath := filepath.Join(logDir, "serve.log")
	latestFile, err := os.OpenFile(latestPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = runFile.Close()
		return nil, fmt.Errorf("opening latest log file: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, runFile, latestFile), &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose,
	})
	slog.SetDefault(slog.New(handler))
	slog.SetLogLoggerLevel(level)

	return func() {
		_ = latestFile.Close()
		_ = runFile.Close()
	}, nil
}
