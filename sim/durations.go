package sim

import (
	"math"
	"time"
)

// Durations implements a ringbuffer of collected time durations with an
// optional reporting function and interval.
type Durations struct {
	Report      func(db *Durations, n int)
	ReportEvery int

	d    []time.Duration
	i    int
	seen int
}

// Init sizes the ring to hold n durations and sets the reporting policy.
func (db *Durations) Init(n, every int, report func(db *Durations, n int)) {
	if n < 1 {
		n = 1
	}
	db.d = make([]time.Duration, 0, n)
	db.i = 0
	db.seen = 0
	db.ReportEvery = every
	db.Report = report
}

// Collect records d, overwriting the oldest entry once the ring is full.
func (db *Durations) Collect(d time.Duration) {
	if db.d == nil {
		db.Init(1, 0, nil)
	}
	if len(db.d) < cap(db.d) {
		db.d = append(db.d, d)
	} else {
		db.d[db.i] = d
		db.i = (db.i + 1) % len(db.d)
	}
	db.seen++
	if db.Report != nil && db.ReportEvery > 0 && db.seen%db.ReportEvery == 0 {
		db.Report(db, db.seen)
	}
}

// Count returns how many durations the ring currently holds.
func (db *Durations) Count() int {
	return len(db.d)
}

// Seen returns how many durations were ever collected.
func (db *Durations) Seen() int {
	return db.seen
}

func (db *Durations) Total() time.Duration {
	var total time.Duration
	for _, d := range db.d {
		total += d
	}
	return total
}

func (db *Durations) Average() time.Duration {
	if len(db.d) == 0 {
		return 0
	}
	return time.Duration(math.Round(float64(db.Total()) / float64(db.Count())))
}
