package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/watchpath/internal/config"
	"github.com/hejijunhao/watchpath/internal/logging"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "watchpath",
		Short: "Narrate anomalies in web access logs with a local language model",
		Long: `watchpath groups a combined-format access log into per-visitor sessions,
asks a language model to score and describe each session, and emits one JSON
payload per session. Heuristics fill in whenever the model output is unusable.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (TOML, YAML or JSON); env WATCHPATH_CONFIG")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(newAnalyzeCmd(g), newSessionsCmd(g))
	return root
}

// loadConfig resolves defaults, the config file and the environment, then
// the flags shared by every command.
func (g *globalFlags) loadConfig(cmd *cobra.Command, logPath string) (config.Config, error) {
	path := g.configPath
	if path == "" {
		path = os.Getenv("WATCHPATH_CONFIG")
	}

	cfg := config.Load()
	if path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return config.Config{}, err
		}
	}
	cfg.LogPath = logPath
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	return cfg, nil
}

func initLogging(cfg config.Config) {
	logging.Init(cfg.Output.WritesStdout(), logging.ParseLevel(cfg.LogLevel))
}
