// Command agentgraph analyses agent dependency manifests.
//
// By default it prints a report for the manifest and exits non-zero when
// validation finds errors. With --web it serves the graph over HTTP and,
// with --watch, reloads it whenever the manifest changes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ritzau/agentgraph/pkg/agentgraph"
	"github.com/ritzau/agentgraph/pkg/config"
	"github.com/ritzau/agentgraph/pkg/logging"
	"github.com/ritzau/agentgraph/pkg/manifest"
	"github.com/ritzau/agentgraph/pkg/metrics"
	"github.com/ritzau/agentgraph/pkg/output"
	"github.com/ritzau/agentgraph/pkg/watcher"
	"github.com/ritzau/agentgraph/pkg/web"
	"github.com/spf13/pflag"
)

// errInvalidGraph makes the CLI exit with status 1 without logging twice.
var errInvalidGraph = errors.New("graph has validation errors")

func main() {
	flags := pflag.NewFlagSet("agentgraph", pflag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: agentgraph [flags] [manifest]\n\n")
		flags.PrintDefaults()
	}
	config.RegisterFlags(flags)
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if cfg.Manifest == "" && flags.NArg() > 0 {
		cfg.Manifest = flags.Arg(0)
	}

	if err := setupLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.WebMode {
		err = serve(ctx, cfg)
	} else {
		err = report(cfg)
	}
	if err != nil {
		if !errors.Is(err, errInvalidGraph) {
			logging.Error("agentgraph failed", "error", err)
		}
		stop()
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config) error {
	level := logging.LevelFromCount(cfg.VerboseCnt)
	if cfg.Verbosity != "" {
		parsed, err := logging.ParseLevel(cfg.Verbosity)
		if err != nil {
			return err
		}
		level = parsed
	}
	logging.Configure(os.Stderr, level, cfg.Log.JSON)
	return nil
}

// build loads the manifest and creates a manager with the configured policy.
func build(cfg *config.Config) (*agentgraph.Manager, error) {
	m, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return nil, err
	}
	g, err := m.Build(agentgraph.WithBottleneckPolicy(cfg.Policy()))
	if err != nil {
		return nil, fmt.Errorf("build graph from %s: %w", cfg.Manifest, err)
	}
	logging.Debug("manifest loaded", "manifest", cfg.Manifest, "agents", g.Len(), "dependencies", g.EdgeCount())
	return g, nil
}

func report(cfg *config.Config) error {
	if cfg.Manifest == "" {
		return errors.New("no manifest given (use --manifest or pass a path)")
	}

	g, err := build(cfg)
	if err != nil {
		return err
	}
	if err := output.Write(os.Stdout, cfg.Format, cfg.Manifest, g); err != nil {
		return err
	}
	if agentgraph.HasErrors(g.Validate()) {
		return errInvalidGraph
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	g := agentgraph.New(agentgraph.WithBottleneckPolicy(cfg.Policy()))
	if cfg.Manifest != "" {
		loaded, err := build(cfg)
		if err != nil {
			return err
		}
		g = loaded
	} else {
		logging.Info("no manifest given, starting with an empty graph")
	}

	server := web.NewServer(g)

	if cfg.Watch {
		if cfg.Manifest == "" {
			return errors.New("--watch needs a manifest")
		}
		if err := watch(ctx, cfg, server); err != nil {
			return err
		}
	}

	return server.Start(ctx, cfg.Port)
}

// watch reloads the manifest into server after each debounced change.
// A manifest that fails to load leaves the current graph in place.
func watch(ctx context.Context, cfg *config.Config, server *web.Server) error {
	fw, err := watcher.NewFileWatcher(cfg.Manifest)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	debouncer := watcher.NewDebouncer(fw.Events(), cfg.QuietPeriod(), cfg.MaxWait())
	debouncer.Start(ctx)

	go func() {
		for event := range debouncer.Output() {
			action := watcher.AnalyzeChanges(event)
			logging.Debug("manifest changed", "type", event.Type.String(), "action", action.String())
			if action != watcher.ActionReload {
				continue
			}

			g, err := build(cfg)
			metrics.RecordReload(err)
			if err != nil {
				logging.Warn("manifest reload failed, keeping current graph", "error", err)
				continue
			}
			server.SetManager(g)
			logging.Debug("manifest reloaded", "agents", g.Len(), "dependencies", g.EdgeCount())
		}
	}()

	logging.Info("watching manifest", "path", fw.Path())
	return nil
}
