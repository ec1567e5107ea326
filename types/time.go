package types

import (
	"fmt"
	"math"
	"time"
)

// Time is a block timestamp with one second resolution, the only clock
// consensus code is allowed to observe.
type Time uint32

const (
	// MaxTime is the "never" sentinel (e.g. cashout_time of a paid-out
	// comment in single-payout mode).
	MaxTime Time = math.MaxUint32
	MinTime Time = 0
)

func TimeFromUnix(sec int64) Time {
	if sec < 0 {
		return MinTime
	}
	if sec > math.MaxUint32 {
		return MaxTime
	}
	return Time(sec)
}

func (t Time) Unix() int64 { return int64(t) }

func (t Time) Add(d time.Duration) Time {
	return TimeFromUnix(t.Unix() + int64(d/time.Second))
}

func (t Time) AddSeconds(sec int64) Time { return TimeFromUnix(t.Unix() + sec) }

// SecondsSince returns t - earlier in seconds, negative if t precedes it.
func (t Time) SecondsSince(earlier Time) int64 { return t.Unix() - earlier.Unix() }

func (t Time) Before(u Time) bool { return t < u }
func (t Time) After(u Time) bool  { return t > u }

func (t Time) String() string {
	if t == MaxTime {
		return "never"
	}
	return fmt.Sprint(time.Unix(t.Unix(), 0).UTC().Format(time.RFC3339))
}

func MinOfTime(a, b Time) Time {
	if a < b {
		return a
	}
	return b
}

func MaxOfTime(a, b Time) Time {
	if a > b {
		return a
	}
	return b
}
