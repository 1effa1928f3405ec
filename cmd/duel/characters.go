package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/duel/internal/match"
)

var charactersCmd = &cobra.Command{
	Use:   "characters",
	Short: "List the roster",
	Long:  `Shows every selectable character and its special attack at full health.`,
	Args:  cobra.NoArgs,
	Run:   runCharacters,
}

func runCharacters(_ *cobra.Command, _ []string) {
	roster := match.Roster()

	// Specials are shown for a fresh attacker with the opponent at the
	// default spawn distance.
	attacker := match.PlayerSlot{Connected: true, X: 300, Health: match.MaxHealth}
	target := match.PlayerSlot{Connected: true, X: 700, Health: match.MaxHealth}

	rows := make([][]string, len(roster))
	for i, c := range roster {
		damage, reach := c.Special(&attacker, &target)
		rows[i] = []string{c.Name, fmt.Sprintf("%.0f", damage), fmt.Sprintf("%.0f", reach), c.Summary}
	}

	fmt.Println("Available characters:")
	fmt.Println()
	printTable(os.Stdout, []string{"Name", "Special", "Range", "Notes"}, rows)
	fmt.Println()
	fmt.Printf("Basic attack: %.0f damage, %.0f range, %v cooldown. Special cooldown: %v.\n",
		match.BasicDamage, match.BasicRange, match.BasicCooldown, match.SpecialCooldown)
}
