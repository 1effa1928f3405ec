package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/duel/internal/storage"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history [match-id]",
	Short: "Show recently finished matches",
	Long: `Display the most recent match results, newest first, or the details
of one match when its ID is given.

Examples:
  duel history
  duel history --limit 25
  duel history 3f0c2a9e-5b1d-4c1e-9a57-0d2f7e8b6c41`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 10, "Number of matches to show")
}

func runHistory(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		return showMatch(ctx, os.Stdout, store, args[0])
	}

	results, err := store.RecentMatches(ctx, flagHistoryLimit)
	if err != nil {
		return err
	}

	fmt.Println("Recent Matches")
	fmt.Println()

	if len(results) == 0 {
		fmt.Println("No matches recorded yet.")
		fmt.Println()
		fmt.Println("Start one with 'duel serve' and two clients.")
		return nil
	}

	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{
			r.EndedAt.Format("2006-01-02 15:04"),
			r.Player1Character,
			r.Player2Character,
			fmt.Sprintf("P%d (%s)", r.Winner, r.WinnerCharacter()),
			r.Duration.Round(time.Second).String(),
		}
	}
	printTable(os.Stdout, []string{"Date", "Player 1", "Player 2", "Winner", "Duration"}, rows)
	return nil
}

// showMatch prints the stored result of a single match.
func showMatch(ctx context.Context, w io.Writer, store *storage.Store, matchID string) error {
	r, err := store.MatchByID(ctx, matchID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no match with id %q", matchID)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Match %s\n\n", r.MatchID)
	fmt.Fprintf(w, "  Ended:     %s\n", r.EndedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Duration:  %s\n", r.Duration.Round(time.Second))
	fmt.Fprintf(w, "  Player 1:  %s\n", r.Player1Character)
	fmt.Fprintf(w, "  Player 2:  %s\n", r.Player2Character)
	fmt.Fprintf(w, "  Winner:    P%d (%s)\n", r.Winner, r.WinnerCharacter())
	return nil
}
