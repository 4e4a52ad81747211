package game

import (
	"math"
	"time"
)

// QueueEntry is a player waiting for an opponent.
type QueueEntry struct {
	Conn     Conn
	Identity PlayerIdentity
	JoinedAt time.Time
}

// ToleranceRules widens the accepted rating gap the longer a pair has waited.
type ToleranceRules struct {
	BasePct float64
	StepPct float64
	MaxPct  float64
	Window  time.Duration
}

// At returns the tolerance percentage after waiting for wait.
func (t ToleranceRules) At(wait time.Duration) float64 {
	if wait < 0 {
		wait = 0
	}
	steps := 0.0
	if t.Window > 0 {
		steps = math.Floor(float64(wait) / float64(t.Window))
	}
	return math.Min(t.MaxPct, t.BasePct+t.StepPct*steps)
}

// Accepts reports whether ratings a and b are close enough to pair after wait.
func (t ToleranceRules) Accepts(a, b int, wait time.Duration) bool {
	avg := float64(a+b) / 2
	return math.Abs(float64(a-b)) <= avg*t.At(wait)/100
}

// Queues holds one arrival-ordered queue per mode. It is not safe for
// concurrent use; the Manager guards it.
type Queues struct {
	byMode map[Mode][]QueueEntry
}

func NewQueues() *Queues {
	q := &Queues{byMode: make(map[Mode][]QueueEntry)}
	for _, mode := range AllModes {
		q.byMode[mode] = nil
	}
	return q
}

// Purge removes every entry for identityID from every queue.
func (q *Queues) Purge(identityID string) bool {
	return q.removeWhere(func(e QueueEntry) bool { return e.Identity.ID == identityID })
}

// PurgeConn removes the entry owned by a specific connection.
func (q *Queues) PurgeConn(connID string) bool {
	return q.removeWhere(func(e QueueEntry) bool { return e.Conn.ID() == connID })
}

func (q *Queues) removeWhere(match func(QueueEntry) bool) bool {
	removed := false
	for mode, entries := range q.byMode {
		kept := entries[:0]
		for _, e := range entries {
			if match(e) {
				removed = true
				continue
			}
			kept = append(kept, e)
		}
		q.byMode[mode] = kept
	}
	return removed
}

func (q *Queues) Push(mode Mode, entry QueueEntry) {
	q.byMode[mode] = append(q.byMode[mode], entry)
}

// PopLive pops heads off the mode's queue until it finds a live opponent for
// identityID. Stale heads and the caller's own entries are dropped; dropped
// reports how many.
func (q *Queues) PopLive(mode Mode, identityID string, stale func(QueueEntry) bool) (opponent QueueEntry, dropped int, ok bool) {
	for len(q.byMode[mode]) > 0 {
		head := q.byMode[mode][0]
		q.byMode[mode] = q.byMode[mode][1:]
		if head.Identity.ID == identityID || stale(head) {
			dropped++
			continue
		}
		return head, dropped, true
	}
	return QueueEntry{}, dropped, false
}

// ScanAndPair finds the first pair, in arrival order, whose rating gap fits
// the tolerance reached by the longer waiter. Both entries are removed.
// Stale entries are pruned before scanning.
func (q *Queues) ScanAndPair(mode Mode, now time.Time, rules ToleranceRules, stale func(QueueEntry) bool) (a, b QueueEntry, ok bool) {
	entries := q.byMode[mode][:0]
	for _, e := range q.byMode[mode] {
		if !stale(e) {
			entries = append(entries, e)
		}
	}
	q.byMode[mode] = entries

	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			ei, ej := entries[i], entries[j]
			if ei.Identity.ID == ej.Identity.ID {
				continue
			}
			joined := ei.JoinedAt
			if ej.JoinedAt.Before(joined) {
				joined = ej.JoinedAt
			}
			if !rules.Accepts(ei.Identity.Rating, ej.Identity.Rating, now.Sub(joined)) {
				continue
			}

			rest := make([]QueueEntry, 0, len(entries)-2)
			rest = append(rest, entries[:i]...)
			rest = append(rest, entries[i+1:j]...)
			rest = append(rest, entries[j+1:]...)
			q.byMode[mode] = rest
			return ei, ej, true
		}
	}
	return QueueEntry{}, QueueEntry{}, false
}

// Contains reports which queue holds identityID, if any.
func (q *Queues) Contains(identityID string) (Mode, bool) {
	for _, mode := range AllModes {
		for _, e := range q.byMode[mode] {
			if e.Identity.ID == identityID {
				return mode, true
			}
		}
	}
	return "", false
}

func (q *Queues) Sizes() map[Mode]int {
	sizes := make(map[Mode]int, len(q.byMode))
	for mode, entries := range q.byMode {
		sizes[mode] = len(entries)
	}
	return sizes
}
