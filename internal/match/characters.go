package match

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Authority decides who computes attack damage and range.
type Authority string

const (
	// AuthorityClient trusts damage and range as sent by the attacker's client.
	AuthorityClient Authority = "client"
	// AuthorityServer ignores client values and uses the roster table.
	AuthorityServer Authority = "server"
)

// ParseAuthority validates an authority name. Empty means client.
func ParseAuthority(s string) (Authority, error) {
	switch Authority(strings.ToLower(strings.TrimSpace(s))) {
	case "", AuthorityClient:
		return AuthorityClient, nil
	case AuthorityServer:
		return AuthorityServer, nil
	default:
		return "", fmt.Errorf("match: unknown combat authority %q", s)
	}
}

// Basic attack and cooldowns used under server authority.
const (
	BasicDamage     = 10.0
	BasicRange      = 150.0
	BasicCooldown   = 500 * time.Millisecond
	SpecialCooldown = 3000 * time.Millisecond
)

// Character is a selectable fighter.
type Character struct {
	Name    string
	Summary string

	// special returns damage and range of the character's special attack.
	special func(attacker, target *PlayerSlot) (damage, reach float64)
}

// Special computes the special attack of c for the given slots.
func (c Character) Special(attacker, target *PlayerSlot) (damage, reach float64) {
	if c.special == nil {
		return BasicDamage, BasicRange
	}
	return c.special(attacker, target)
}

var roster = []Character{
	{
		Name:    "Lucario",
		Summary: "special grows stronger as Lucario loses health",
		special: func(attacker, _ *PlayerSlot) (float64, float64) {
			healthPct := float64(attacker.Health) / MaxHealth
			return 25 * (1 + (1 - healthPct)), 200
		},
	},
	{
		Name:    "Mewtwo",
		Summary: "long-range psychic blast",
		special: func(_, _ *PlayerSlot) (float64, float64) { return 30, 300 },
	},
	{
		Name:    "Zeraora",
		Summary: "fast close-range strike",
		special: func(_, _ *PlayerSlot) (float64, float64) { return 20, 150 },
	},
	{
		Name:    "Cinderace",
		Summary: "special hits harder the farther the opponent is",
		special: func(attacker, target *PlayerSlot) (float64, float64) {
			distance := math.Abs(attacker.X - target.X)
			return 22 * (1 + distance/250), 250
		},
	},
}

// Roster returns the selectable characters in display order.
func Roster() []Character {
	out := make([]Character, len(roster))
	copy(out, roster)
	return out
}

// LookupCharacter finds a roster entry by name, case-insensitively.
func LookupCharacter(name string) (Character, bool) {
	for _, c := range roster {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Character{}, false
}

// serverAttack computes the attack for act under server authority.
// It returns false when the attack is still on cooldown.
func serverAttack(attacker, target *PlayerSlot, act Action, now time.Time) (Attack, bool) {
	special := act.IsSpecialAttacking != nil && *act.IsSpecialAttacking

	if special {
		if !attacker.lastSpecial.IsZero() && now.Sub(attacker.lastSpecial) < SpecialCooldown {
			return Attack{}, false
		}
		attacker.lastSpecial = now

		damage, reach := BasicDamage, BasicRange
		if c, ok := LookupCharacter(attacker.Character); ok {
			damage, reach = c.Special(attacker, target)
		}
		return Attack{Damage: &damage, Range: &reach}, true
	}

	if !attacker.lastBasic.IsZero() && now.Sub(attacker.lastBasic) < BasicCooldown {
		return Attack{}, false
	}
	attacker.lastBasic = now

	damage, reach := BasicDamage, BasicRange
	return Attack{Damage: &damage, Range: &reach}, true
}
