package main

import (
	"fmt"
	"log/slog"

	"github.com/hejijunhao/watchpath/internal/config"
	"github.com/hejijunhao/watchpath/internal/output"
	"github.com/hejijunhao/watchpath/internal/output/async"
	"github.com/hejijunhao/watchpath/internal/output/file"
	"github.com/hejijunhao/watchpath/internal/output/multi"
	"github.com/hejijunhao/watchpath/internal/output/stdout"
	"github.com/hejijunhao/watchpath/internal/output/webhook"
)

// buildOutput assembles the configured destinations. The webhook runs behind
// an async wrapper so slow deliveries do not hold up analysis.
func buildOutput(cfg config.OutputConfig) (output.Output, error) {
	verbosity, err := output.ParseVerbosity(cfg.Verbosity)
	if err != nil {
		return nil, err
	}

	var outs []output.Output
	for _, kind := range cfg.Kinds() {
		switch kind {
		case "stdout":
			outs = append(outs, stdout.New(verbosity, cfg.Pretty))
		case "file":
			var opts []file.Option
			if cfg.MaxSize > 0 {
				opts = append(opts, file.WithMaxSize(cfg.MaxSize))
			}
			f, err := file.New(cfg.Path, verbosity, opts...)
			if err != nil {
				closeAll(outs)
				return nil, fmt.Errorf("output: %w", err)
			}
			outs = append(outs, f)
		case "webhook":
			wh := webhook.New(cfg.WebhookURL, webhook.WithVerbosity(verbosity))
			outs = append(outs, async.New(wh, async.WithOnError(func(err error) {
				slog.Warn("webhook delivery failed", "url", cfg.WebhookURL, "error", err)
			})))
		default:
			closeAll(outs)
			return nil, fmt.Errorf("output: unknown output %q", kind)
		}
	}

	switch len(outs) {
	case 0:
		return nil, fmt.Errorf("output: none configured")
	case 1:
		return outs[0], nil
	}
	return multi.New(outs...), nil
}

func closeAll(outs []output.Output) {
	for _, o := range outs {
		o.Close()
	}
}
