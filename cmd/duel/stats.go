package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/duel/internal/match"
	"github.com/vovakirdan/duel/internal/storage"
)

var statsCmd = &cobra.Command{
	Use:   "stats [character]",
	Short: "Show win/loss statistics",
	Long: `Display total games, wins, losses and win rate for a character,
or for the whole roster when no character is given.

Examples:
  duel stats
  duel stats Lucario`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStats,
}

func runStats(_ *cobra.Command, args []string) error {
	names := make([]string, 0, 4)
	if len(args) == 1 {
		name := args[0]
		if c, ok := match.LookupCharacter(name); ok {
			name = c.Name
		}
		names = append(names, name)
	} else {
		for _, c := range match.Roster() {
			names = append(names, c.Name)
		}
	}

	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		s, err := store.CharacterStats(ctx, name)
		if err != nil {
			return err
		}
		rows = append(rows, []string{
			s.Character,
			fmt.Sprint(s.Total),
			fmt.Sprint(s.Wins),
			fmt.Sprint(s.Losses),
			fmt.Sprintf("%.1f%%", s.WinRate),
		})
	}

	fmt.Println("Character Statistics")
	fmt.Println()
	printTable(os.Stdout, []string{"Character", "Games", "Wins", "Losses", "Win rate"}, rows)
	return nil
}

// openStore opens the configured match history database.
func openStore(ctx context.Context) (*storage.Store, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, storage.Config{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
		DSN:    cfg.Storage.DSN,
	})
}
