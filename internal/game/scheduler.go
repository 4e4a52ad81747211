package game

import "time"

// Timer is a pending one-shot callback. Stop on a fired timer is a no-op
// that returns false.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// roomTimer is the Manager's handle on a scheduled room callback. Callbacks
// compare pointers to tell a current timer from a replaced one.
type roomTimer struct {
	timer    Timer
	absentID string
}
