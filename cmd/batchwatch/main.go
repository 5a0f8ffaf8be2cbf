package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/zoobzio/batchpipe"
	"github.com/zoobzio/batchpipe/config"
	"github.com/zoobzio/batchpipe/log"
)

const longHelp = `
Watch files and directories and print filesystem events in batches.

A batch is printed as one JSON line when it reaches --batch-size events,
or when --idle passes without a new event. Ctrl-C flushes the last
partial batch before exiting.
`

var exampleUsage = strings.TrimSpace(`
  batchwatch --path /var/log --batch-size 50 --idle 500ms
  batchwatch --config $HOME/.batchwatch/config.toml --once
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := config.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:          "batchwatch",
		Short:        "Print filesystem events in size- or idle-triggered batches",
		Long:         strings.TrimSpace(longHelp),
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = config.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && config.FileExists(cfgFile) {
				fc, err := config.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := config.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}
			if err := config.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return run(cmd.Context(), cfg)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.batchwatch/config.toml)")
	root.Flags().StringSliceVar(&cfg.Paths, "path", cfg.Paths, "file or directory to watch (repeatable)")
	root.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "events per batch")
	root.Flags().DurationVar(&cfg.IdleInterval, "idle", cfg.IdleInterval, "flush a partial batch after this much quiet")
	root.Flags().IntVar(&cfg.MailboxLimit, "mailbox-limit", cfg.MailboxLimit, "drop events once this many are queued (0 = unlimited)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	root.Flags().StringVar(&cfg.Name, "name", cfg.Name, "pipe name used in log lines")
	root.Flags().BoolVar(&cfg.Once, "once", cfg.Once, "exit after the first batch")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(parent context.Context, cfg config.Config) error {
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := log.NewConsoleAdapter(os.Stderr, level)

	pipe, err := batchpipe.NewFromConfig[Event](cfg.Pipe(),
		batchpipe.WithLogger(logger),
		batchpipe.WithName(cfg.Name),
		batchpipe.WithMailboxLimit(cfg.MailboxLimit),
	)
	if err != nil {
		return fmt.Errorf("create pipe: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, p := range cfg.Paths {
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pr := newPrinter(os.Stdout, logger, cfg.Once, stop)
	if _, err := pipe.Subscribe(pr.print); err != nil {
		return err
	}

	logger.Info("watching",
		log.Any("paths", cfg.Paths),
		log.Int("batch_size", cfg.BatchSize),
		log.Duration("idle", cfg.IdleInterval),
	)

	go pump(ctx, watcher.Events, watcher.Errors, pipe, batchpipe.RealClock, logger)

	// Wait is bounded by Complete, which pump calls once ctx is done.
	err = pipe.Wait(context.Background())
	stats := pipe.Stats()
	logger.Info("stopped",
		log.Uint64("submitted", stats.Submitted),
		log.Uint64("batches", stats.Batches),
		log.Uint64("discarded", stats.Discarded),
		log.Uint64("undelivered", stats.Undelivered),
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
