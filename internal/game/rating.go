package game

import (
	"math"
	"strings"
)

// Reason is why a match ended, as reported by the client or decided by the server.
type Reason string

const (
	ReasonRegicide             Reason = "regicide"
	ReasonTimeout              Reason = "timeout"
	ReasonOpponentDisconnected Reason = "opponent_disconnected"
	ReasonSurrender            Reason = "surrender"
	ReasonAFK                  Reason = "afk"
	ReasonQuit                 Reason = "quit"
)

// Outcome is a game_over_report result, relative to the reporter.
type Outcome int

const (
	OutcomeWin Outcome = iota
	OutcomeLoss
	OutcomeDraw
)

func ParseOutcome(s string) (Outcome, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "win", "victory":
		return OutcomeWin, true
	case "loss", "lose", "defeat":
		return OutcomeLoss, true
	case "draw", "tie":
		return OutcomeDraw, true
	}
	return 0, false
}

// Band applies Delta when a measured value is at least Threshold. Bands are
// checked in order, so list them from the highest threshold down.
type Band struct {
	Threshold float64
	Delta     int
}

func pickBand(bands []Band, value float64) int {
	for _, b := range bands {
		if value >= b.Threshold {
			return b.Delta
		}
	}
	return 0
}

// RatingRules holds every constant of the rating formula.
type RatingRules struct {
	BaseAward      map[Reason]int
	DefaultAward   int
	UpsetBonus     []Band // by rating gap percent, winner was the underdog
	MinWinnerAward int

	ConductPenalty  map[Reason]int
	PlayedOutBase   int
	ScoreMitigation []Band // by loser/winner score ratio
	ReverseUpset    []Band // by rating gap percent, loser was the favorite
	MinLoserPenalty int
}

func DefaultRatingRules() RatingRules {
	return RatingRules{
		BaseAward: map[Reason]int{
			ReasonRegicide:             25,
			ReasonTimeout:              20,
			ReasonOpponentDisconnected: 20,
			ReasonSurrender:            18,
			ReasonAFK:                  18,
			ReasonQuit:                 18,
		},
		DefaultAward:   15,
		UpsetBonus:     []Band{{Threshold: 25, Delta: 10}, {Threshold: 10, Delta: 5}},
		MinWinnerAward: 5,

		ConductPenalty: map[Reason]int{
			ReasonOpponentDisconnected: -30,
			ReasonQuit:                 -30,
			ReasonAFK:                  -25,
			ReasonSurrender:            -20,
		},
		PlayedOutBase:   -20,
		ScoreMitigation: []Band{{Threshold: 0.8, Delta: 10}, {Threshold: 0.5, Delta: 5}},
		ReverseUpset:    []Band{{Threshold: 25, Delta: -6}, {Threshold: 10, Delta: -3}},
		MinLoserPenalty: -1,
	}
}

// gapPercent is how far the favorite out-rates the underdog, as a percentage
// of the favorite's rating.
func gapPercent(favorite, underdog int) float64 {
	if favorite <= 0 || favorite <= underdog {
		return 0
	}
	return float64(favorite-underdog) / float64(favorite) * 100
}

// WinnerDelta is always at least MinWinnerAward.
func (r RatingRules) WinnerDelta(winnerRating, loserRating int, reason Reason) int {
	delta, ok := r.BaseAward[reason]
	if !ok {
		delta = r.DefaultAward
	}
	if winnerRating < loserRating {
		delta += pickBand(r.UpsetBonus, gapPercent(loserRating, winnerRating))
	}
	if delta < r.MinWinnerAward {
		delta = r.MinWinnerAward
	}
	return delta
}

// LoserDelta is always negative. Conduct reasons cost a fixed penalty;
// played-out losses are softened by a close score and hardened when the
// loser was the favorite.
func (r RatingRules) LoserDelta(loserRating, winnerRating int, reason Reason, loserScore, winnerScore float64) int {
	if penalty, ok := r.ConductPenalty[reason]; ok {
		return penalty
	}

	delta := r.PlayedOutBase
	// A shutout (winner scored, loser did not) gets no mitigation; 58/0 costs the full base.
	if winnerScore > 0 {
		ratio := math.Max(loserScore, 0) / winnerScore
		delta += pickBand(r.ScoreMitigation, ratio)
	}
	if loserRating > winnerRating {
		delta += pickBand(r.ReverseUpset, gapPercent(loserRating, winnerRating))
	}
	if delta >= 0 {
		delta = r.MinLoserPenalty
	}
	return delta
}

// RankLabel names the tier a rating falls in.
func RankLabel(rating int) string {
	switch {
	case rating < 800:
		return "Bronze"
	case rating < 1100:
		return "Silver"
	case rating < 1400:
		return "Gold"
	case rating < 1700:
		return "Platinum"
	case rating < 2000:
		return "Diamond"
	default:
		return "Master"
	}
}
