package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/watchpath/internal/backend"
	"github.com/hejijunhao/watchpath/internal/config"
	"github.com/hejijunhao/watchpath/internal/engine"
	"github.com/hejijunhao/watchpath/internal/engine/prompt"
	"github.com/hejijunhao/watchpath/internal/pipeline"

	// Register backend implementations.
	_ "github.com/hejijunhao/watchpath/internal/backend/exec"
	_ "github.com/hejijunhao/watchpath/internal/backend/ollama"
)

// analyzeFlags mirror the config keys; only flags the user set override.
type analyzeFlags struct {
	backend     string
	model       string
	command     string
	endpoint    string
	timeout     time.Duration
	prompt      string
	chunkSize   int
	window      time.Duration
	workers     int
	rateLimit   float64
	maxSessions int
	output      string
	outputPath  string
	webhookURL  string
	verbosity   string
	pretty      bool
}

func newAnalyzeCmd(g *globalFlags) *cobra.Command {
	f := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze <access.log>",
		Short: "Analyze every session of a log through the model backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd, args[0])
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			initLogging(cfg)
			return runAnalyze(cmd.Context(), cfg)
		},
	}
	f.register(cmd)
	return cmd
}

// register binds the flags to cmd.
func (f *analyzeFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.backend, "backend", "", "model backend: exec or ollama")
	fl.StringVar(&f.model, "model", "", "model name")
	fl.StringVar(&f.command, "command", "", "executable for the exec backend")
	fl.StringVar(&f.endpoint, "endpoint", "", "server URL for the ollama backend")
	fl.DurationVar(&f.timeout, "timeout", 0, "per-session model timeout (0 = none)")
	fl.StringVar(&f.prompt, "prompt", "", "prompt template file (default: built-in)")
	fl.IntVar(&f.chunkSize, "chunk-size", 0, "max log lines sent per session")
	fl.DurationVar(&f.window, "window", 0, "session inactivity window")
	fl.IntVar(&f.workers, "workers", 0, "sessions analyzed concurrently")
	fl.Float64Var(&f.rateLimit, "rate-limit", 0, "max model calls per second (0 = unlimited)")
	fl.IntVar(&f.maxSessions, "max-sessions", 0, "analyze only the first N sessions (0 = all)")
	fl.StringVar(&f.output, "output", "", "comma-separated outputs: stdout, file, webhook")
	fl.StringVar(&f.outputPath, "output-path", "", "NDJSON file for the file output")
	fl.StringVar(&f.webhookURL, "webhook-url", "", "URL for the webhook output")
	fl.StringVar(&f.verbosity, "verbosity", "", "minimal, standard or full")
	fl.BoolVar(&f.pretty, "pretty", false, "indent stdout JSON")
}

func (f *analyzeFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	setIf(changed("backend"), &cfg.Backend.Provider, f.backend)
	setIf(changed("model"), &cfg.Backend.Model, f.model)
	setIf(changed("command"), &cfg.Backend.Command, f.command)
	setIf(changed("endpoint"), &cfg.Backend.Endpoint, f.endpoint)
	setIf(changed("timeout"), &cfg.Backend.Timeout, f.timeout)
	setIf(changed("prompt"), &cfg.Engine.PromptPath, f.prompt)
	setIf(changed("chunk-size"), &cfg.Engine.ChunkSize, f.chunkSize)
	setIf(changed("window"), &cfg.Engine.Window, f.window)
	setIf(changed("workers"), &cfg.Engine.Workers, f.workers)
	setIf(changed("rate-limit"), &cfg.Engine.RateLimit, f.rateLimit)
	setIf(changed("max-sessions"), &cfg.Engine.MaxSessions, f.maxSessions)
	setIf(changed("output"), &cfg.Output.Kind, f.output)
	setIf(changed("output-path"), &cfg.Output.Path, f.outputPath)
	setIf(changed("webhook-url"), &cfg.Output.WebhookURL, f.webhookURL)
	setIf(changed("verbosity"), &cfg.Output.Verbosity, f.verbosity)
	setIf(changed("pretty"), &cfg.Output.Pretty, f.pretty)
}

func setIf[T any](ok bool, dst *T, v T) {
	if ok {
		*dst = v
	}
}

func runAnalyze(ctx context.Context, cfg config.Config) error {
	b, err := backend.New(backend.Config{
		Provider: cfg.Backend.Provider,
		Model:    cfg.Backend.Model,
		Command:  cfg.Backend.Command,
		Endpoint: cfg.Backend.Endpoint,
		APIKey:   cfg.Backend.APIKey,
		Timeout:  cfg.Backend.Timeout,
		Extra:    cfg.Backend.Extra,
	})
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}

	tmpl, err := prompt.Load(cfg.Engine.PromptPath)
	if err != nil {
		return err
	}
	eng := engine.New(b,
		engine.WithTemplate(tmpl),
		engine.WithChunkSize(cfg.Engine.ChunkSize),
		engine.WithTimeout(cfg.Backend.Timeout),
	)

	out, err := buildOutput(cfg.Output)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{
		pipeline.WithWorkers(cfg.Engine.Workers),
		pipeline.WithWindow(cfg.Engine.Window),
		pipeline.WithRateLimit(cfg.Engine.RateLimit),
		pipeline.WithMaxSessions(cfg.Engine.MaxSessions),
	}
	if c, ok := b.(backend.Checker); ok {
		opts = append(opts, pipeline.WithHealthCheck(c))
	}
	p := pipeline.New(eng, out, opts...)
	defer func() {
		if err := p.Close(); err != nil {
			slog.Warn("closing output", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(os.Stderr, "\nreceived %v, finishing in-flight sessions...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("watchpath: starting",
		"backend", cfg.Backend.Provider,
		"model", cfg.Backend.Model,
		"workers", cfg.Engine.Workers,
		"output", cfg.Output.Kind,
	)
	sum, err := p.Run(ctx, cfg.LogPath)
	if errors.Is(err, context.Canceled) {
		slog.Warn("run interrupted", "delivered", sum.Delivered, "sessions", sum.Sessions)
	}
	if err != nil {
		return err
	}
	if sum.Degraded > 0 {
		slog.Warn("some sessions were analyzed without the model", "degraded", sum.Degraded, "sessions", sum.Sessions)
	}
	return nil
}
