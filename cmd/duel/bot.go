package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/duel/internal/bot"
)

var (
	flagBotAddr      string
	flagBotCharacter string
	flagBotMatches   int
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Connect a scripted fighter to a server",
	Long: `Connects a headless fighter that selects a character, readies up and
attacks whenever it can. Useful to smoke-test a server or to play against.

Examples:
  duel bot
  duel bot --addr 10.0.0.5:5555 --character Cinderace --matches 3`,
	Args: cobra.NoArgs,
	RunE: runBot,
}

func init() {
	def := bot.DefaultConfig()
	botCmd.Flags().StringVar(&flagBotAddr, "addr", def.Address, "Server address")
	botCmd.Flags().StringVar(&flagBotCharacter, "character", def.Character, "Character to play")
	botCmd.Flags().IntVar(&flagBotMatches, "matches", def.Matches, "Matches to play (0 = forever)")
}

func runBot(_ *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	botCfg := bot.DefaultConfig()
	botCfg.Address = flagBotAddr
	botCfg.Character = flagBotCharacter
	botCfg.Matches = flagBotMatches

	results, err := bot.New(botCfg, logger.With("component", "bot")).Run(ctx)
	wins := 0
	for _, r := range results {
		if r.Won() {
			wins++
		}
	}
	fmt.Printf("Played %d, won %d\n", len(results), wins)
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
