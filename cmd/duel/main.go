// duel is an authoritative two-player fighting-game server.
//
// Usage:
//
//	duel serve                - Run the match server
//	duel stats [character]    - Show win/loss statistics
//	duel history              - Show recently finished matches
//	duel characters           - List the roster
//	duel bot                  - Connect a scripted fighter to a server
//
// Global flags:
//
//	--config <path>    - Configuration file (default: search ~/.duel and ./configs)
//	--log-level <lvl>  - Override log.level
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/duel/internal/config"
)

var (
	// Global flags
	flagConfig   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "duel",
	Short: "Duel - authoritative two-player fighting-game server",
	Long: `Duel runs the server side of a two-player fighting game: it accepts
exactly two players, walks them through character selection and a ready
check, then resolves combat on a fixed 50 ms tick until one player falls.

Available commands:
  serve       - Run the match server
  stats       - Win/loss statistics per character
  history     - Recently finished matches
  characters  - List the roster
  bot         - Connect a scripted fighter to a server

Examples:
  duel serve
  duel serve --addr 127.0.0.1:6000 --authority server
  duel stats Lucario
  duel bot --character Mewtwo`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(charactersCmd)
	rootCmd.AddCommand(botCmd)
}

// loadConfig reads the configuration and applies global flag overrides.
func loadConfig() (config.Config, config.Source, error) {
	cfg, src, err := config.Load(flagConfig)
	if err != nil {
		return cfg, src, err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return cfg, src, cfg.Validate()
}

func newLogger(cfg config.Config) (*log.Logger, error) {
	return cfg.Log.NewLogger(os.Stderr, "duel")
}
