package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"icsreader/internal/config"
	"icsreader/internal/itinerary"
	appLog "icsreader/internal/log"
	"icsreader/internal/metrics"
	"icsreader/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	start       string
	end         string
	file        string
	configPath  string
	envFile     string
	logLevel    string
	listen      string
	serve       bool
	watch       bool
	writeConfig string
}

func main() {
	code := run(os.Args[1:], os.Stdout, os.Stderr)
	appLog.Sync()
	os.Exit(code)
}

// run is main without the process exit, returning the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	flags, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if err := config.LoadDotEnv(flags.envFile); err != nil {
		fmt.Fprintf(stderr, "icsreader: load env file: %v\n", err)
		return 1
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "icsreader: load config: %v\n", err)
		return 1
	}
	if err := conf.ApplyEnv(); err != nil {
		fmt.Fprintf(stderr, "icsreader: environment: %v\n", err)
		return 1
	}

	level := conf.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	lvl, err := appLog.ParseLevel(level)
	if err != nil {
		fmt.Fprintf(stderr, "icsreader: %v\n", err)
		return 1
	}
	appLog.SetLevel(lvl)

	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	if flags.writeConfig != "" {
		if err := conf.Save(flags.writeConfig); err != nil {
			fmt.Fprintf(stderr, "icsreader: write config: %v\n", err)
			return 1
		}
		appLog.Info("config written", "path", flags.writeConfig)
		return 0
	}

	if err := requireFlags(flags); err != nil {
		fmt.Fprintf(stderr, "icsreader: %v\n", err)
		return 1
	}

	appLog.Debug("effective config",
		"max_events", conf.MaxEvents,
		"occurrence_overflow", conf.OccurrenceOverflow,
		"weekly_step", conf.WeeklyStep,
		"verify", conf.Verify,
		"file", flags.file,
		"serve", flags.serve,
		"watch", flags.watch,
	)

	pipeline := itinerary.New(conf)

	if flags.serve {
		ctx, cancel := signalContext()
		defer cancel()
		m := metrics.New()
		srv := web.NewServer(conf, pipeline.WithMetrics(m), m, flags.file)
		if err := srv.ListenAndServe(ctx); err != nil {
			appLog.Error("http server failed", err, "listen", conf.Listen)
			return 1
		}
		return 0
	}

	win, err := itinerary.ParseWindow(flags.start, flags.end)
	if err != nil {
		fmt.Fprintf(stderr, "icsreader: %v\n", err)
		return 1
	}

	if flags.watch {
		ctx, cancel := signalContext()
		defer cancel()
		if err := watch(ctx, conf.Refresh, pipeline, win, flags.file, stdout); err != nil {
			fmt.Fprintf(stderr, "icsreader: %v\n", err)
			return 1
		}
		return 0
	}

	if err := pipeline.Run(context.Background(), win, flags.file, stdout); err != nil {
		appLog.Debug("run failed", "err", err)
		fmt.Fprintf(stderr, "icsreader: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (flagConfig, error) {
	var cfg flagConfig

	fs := flag.NewFlagSet("icsreader", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.start, "start", "", "First day of the window, YYYY/M/D")
	fs.StringVar(&cfg.end, "end", "", "Last day of the window, YYYY/M/D")
	fs.StringVar(&cfg.file, "file", "", "Calendar file path or http(s) URL")
	fs.StringVar(&cfg.configPath, "config", "", "Path to YAML config file (defaults when empty)")
	fs.StringVar(&cfg.envFile, "env-file", ".env", "Optional KEY=VALUE file loaded into the environment before ICSREADER_* overrides")
	fs.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	fs.StringVar(&cfg.listen, "listen", "", "HTTP listen address for --serve (overrides config)")
	fs.BoolVar(&cfg.serve, "serve", false, "Serve the itinerary over HTTP instead of printing it")
	fs.BoolVar(&cfg.watch, "watch", false, "Reprint the itinerary on the config refresh schedule")
	fs.StringVar(&cfg.writeConfig, "write-config", "", "Write the effective config to this path and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func requireFlags(f flagConfig) error {
	if f.file == "" {
		return errors.New("--file is required")
	}
	if f.serve {
		return nil
	}
	if f.start == "" {
		return errors.New("--start is required")
	}
	if f.end == "" {
		return errors.New("--end is required")
	}
	return nil
}

// watch prints the itinerary now and then on every tick of schedule until ctx
// is canceled. A failing tick is logged and the next one still runs.
func watch(ctx context.Context, schedule string, p *itinerary.Pipeline, win itinerary.Window, file string, out io.Writer) error {
	tick := func() {
		if err := p.Run(ctx, win, file, out); err != nil {
			appLog.Error("watch: run failed", err, "file", file)
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, tick); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	tick()
	c.Start()
	appLog.Info("watching", "file", file, "refresh", schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("watch stopped")
	return nil
}

// signalContext is canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
