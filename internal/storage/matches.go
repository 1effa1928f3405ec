package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/duel/internal/match"
)

// MatchResult is one finished match as stored.
type MatchResult struct {
	ID               int64
	MatchID          string
	Winner           int
	Loser            int
	Player1Character string
	Player2Character string
	Duration         time.Duration
	EndedAt          time.Time
}

// WinnerCharacter returns the character the winner played.
func (r MatchResult) WinnerCharacter() string {
	if r.Winner == 1 {
		return r.Player1Character
	}
	return r.Player2Character
}

// CharacterStats aggregates the results of one character.
// A mirror match counts once for each side.
type CharacterStats struct {
	Character string
	Total     int
	Wins      int
	Losses    int
	WinRate   float64 // percent, 0 when no games were played
}

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("storage: not found")

// SaveCharacterSelection records the locked-in pair for a starting match.
func (s *Store) SaveCharacterSelection(ctx context.Context, sel match.Selection) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO character_selections (match_id, player1_character, player2_character, created_at_ms)
		 VALUES (?, ?, ?, ?)`),
		sel.MatchID, sel.Player1Character, sel.Player2Character, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save character selection: %w", err)
	}
	return nil
}

// RecordMatch stores the result of a finished match.
func (s *Store) RecordMatch(ctx context.Context, rec match.MatchRecord) error {
	endedAt := rec.EndedAt
	if endedAt.IsZero() {
		endedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO match_results
		 (match_id, winner, loser, player1_character, player2_character, duration_ms, ended_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		rec.MatchID, int(rec.Winner), int(rec.Loser),
		rec.Player1Character, rec.Player2Character,
		rec.Duration.Milliseconds(), endedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot record match: %w", err)
	}
	return nil
}

// Ensure Store implements the engine's persistence bridge.
var _ match.Recorder = (*Store)(nil)

// CharacterStats returns the win/loss record of a character.
func (s *Store) CharacterStats(ctx context.Context, name string) (CharacterStats, error) {
	stats := CharacterStats{Character: name}

	var asP1, asP2 int
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT
			COALESCE(SUM(CASE WHEN player1_character = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN player2_character = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN (winner = 1 AND player1_character = ?)
			                    OR (winner = 2 AND player2_character = ?) THEN 1 ELSE 0 END), 0)
		 FROM match_results`),
		name, name, name, name,
	).Scan(&asP1, &asP2, &stats.Wins)
	if err != nil {
		return stats, fmt.Errorf("storage: cannot get character stats: %w", err)
	}

	stats.Total = asP1 + asP2
	stats.Losses = stats.Total - stats.Wins
	if stats.Total > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.Total) * 100
	}
	return stats, nil
}

// RecentMatches returns the latest results, newest first.
func (s *Store) RecentMatches(ctx context.Context, limit int) ([]MatchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT id, match_id, winner, loser, player1_character, player2_character, duration_ms, ended_at_ms
		 FROM match_results
		 ORDER BY ended_at_ms DESC, id DESC
		 LIMIT ?`),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query matches: %w", err)
	}
	defer rows.Close()

	var results []MatchResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return results, nil
}

// MatchByID returns the result stored for matchID.
func (s *Store) MatchByID(ctx context.Context, matchID string) (MatchResult, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT id, match_id, winner, loser, player1_character, player2_character, duration_ms, ended_at_ms
		 FROM match_results
		 WHERE match_id = ?`),
		matchID,
	)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return MatchResult{}, ErrNotFound
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(sc scanner) (MatchResult, error) {
	var (
		r          MatchResult
		durationMS int64
		endedAtMS  int64
	)
	err := sc.Scan(&r.ID, &r.MatchID, &r.Winner, &r.Loser,
		&r.Player1Character, &r.Player2Character, &durationMS, &endedAtMS)
	if errors.Is(err, sql.ErrNoRows) {
		return r, err
	}
	if err != nil {
		return r, fmt.Errorf("storage: cannot scan row: %w", err)
	}
	r.Duration = time.Duration(durationMS) * time.Millisecond
	r.EndedAt = time.UnixMilli(endedAtMS)
	return r, nil
}
