package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/duel/internal/arena"
	"github.com/vovakirdan/duel/internal/match"
	"github.com/vovakirdan/duel/internal/protocol"
)

// Config controls how a bot fights.
type Config struct {
	Address   string
	Character string
	Matches   int     // matches to play before returning; 0 plays forever
	Speed     float64 // horizontal pixels per state update
}

// DefaultConfig returns a bot that plays one match as Lucario.
func DefaultConfig() Config {
	return Config{
		Address:   "127.0.0.1:5555",
		Character: "Lucario",
		Matches:   1,
		Speed:     15,
	}
}

// Result is the outcome of one match as seen by the bot.
type Result struct {
	Player int
	Winner int
}

// Won reports whether the bot won.
func (r Result) Won() bool {
	return r.Player == r.Winner
}

// Bot plays matches with a fixed script: close in on the opponent, face it,
// attack whenever the cooldown allows and prefer the special attack.
// Damage and range are computed client-side from the roster.
type Bot struct {
	config Config
	logger *log.Logger
	clock  func() time.Time

	lastBasic   time.Time
	lastSpecial time.Time
}

// New creates a bot. logger may be nil.
func New(cfg Config, logger *log.Logger) *Bot {
	if cfg.Speed <= 0 {
		cfg.Speed = DefaultConfig().Speed
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Bot{config: cfg, logger: logger, clock: time.Now}
}

// Run connects and plays until the configured number of matches is done,
// ctx is cancelled, or the connection fails.
func (b *Bot) Run(ctx context.Context) ([]Result, error) {
	client, err := Dial(ctx, b.config.Address)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	stop := context.AfterFunc(ctx, func() { client.Close() })
	defer stop()

	logger := b.logger.With("player", client.Player())
	logger.Info("connected", "character", b.config.Character)

	if err := b.lobby(client); err != nil {
		return nil, err
	}

	var results []Result
	for {
		msg, err := client.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return results, fmt.Errorf("bot: server closed the connection: %w", err)
			}
			return results, fmt.Errorf("bot: receive: %w", err)
		}

		switch m := msg.(type) {
		case protocol.MatchStart:
			logger.Info("match started")
			b.lastBasic, b.lastSpecial = time.Time{}, time.Time{}
			if err := b.step(client, m.State); err != nil {
				return results, err
			}
		case protocol.StateUpdate:
			if err := b.step(client, m.State); err != nil {
				return results, err
			}
		case protocol.GameOver:
			res := Result{Player: client.Player(), Winner: m.Winner}
			results = append(results, res)
			logger.Info("game over", "winner", m.Winner, "won", res.Won())
			if b.config.Matches > 0 && len(results) >= b.config.Matches {
				return results, nil
			}
			if err := client.Ready(); err != nil {
				return results, err
			}
		}
	}
}

func (b *Bot) lobby(client *Client) error {
	if err := client.SelectCharacter(b.config.Character); err != nil {
		return err
	}
	return client.Ready()
}

// step reacts to one full state snapshot.
func (b *Bot) step(client *Client, st protocol.State) error {
	action, ok := b.decide(client.Player(), st)
	if !ok {
		return nil
	}
	return client.Act(action)
}

// decide computes the next action for player from st.
func (b *Bot) decide(player int, st protocol.State) (protocol.PlayerAction, bool) {
	me, ok := st.Players[player]
	if !ok || me.IsDead {
		return protocol.PlayerAction{}, false
	}
	opp, ok := st.Players[3-player]
	if !ok || !opp.Connected || opp.IsDead {
		return protocol.PlayerAction{}, false
	}

	now := b.clock()
	attacker := slotFromState(me)
	target := slotFromState(opp)

	facing := opp.X > me.X
	attacker.FacingRight = facing

	special := b.lastSpecial.IsZero() || now.Sub(b.lastSpecial) >= match.SpecialCooldown
	damage, reach := match.BasicDamage, match.BasicRange
	if special {
		if c, ok := match.LookupCharacter(me.Character); ok {
			damage, reach = c.Special(&attacker, &target)
		}
	}

	x := me.X
	distance := math.Abs(opp.X - me.X)
	if distance > reach*0.8 {
		if facing {
			x += b.config.Speed
		} else {
			x -= b.config.Speed
		}
		x = arena.ClampX(x)
	}

	action := protocol.PlayerAction{
		X:           &x,
		FacingRight: &facing,
	}

	basicReady := b.lastBasic.IsZero() || now.Sub(b.lastBasic) >= match.BasicCooldown
	if math.Abs(opp.X-x) > reach || x == opp.X || !(special || basicReady) {
		no := false
		action.IsAttacking = &no
		action.IsSpecialAttacking = &no
		return action, true
	}

	yes := true
	action.Attack = &yes
	action.IsAttacking = &yes
	action.IsSpecialAttacking = &special
	action.Damage = &damage
	action.AttackRange = &reach
	if special {
		b.lastSpecial = now
	} else {
		b.lastBasic = now
	}
	return action, true
}

func slotFromState(p protocol.PlayerState) match.PlayerSlot {
	return match.PlayerSlot{
		Connected:   p.Connected,
		Character:   p.Character,
		X:           p.X,
		Y:           p.Y,
		Health:      p.Health,
		IsDead:      p.IsDead,
		FacingRight: p.FacingRight,
	}
}
