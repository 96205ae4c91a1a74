package value

import (
	"fmt"
	"time"
)

// Interval is a signed calendar offset. Every field carries its own sign.
type Interval struct {
	Years   int64
	Months  int64
	Days    int64
	Hours   int64
	Minutes int64
	Seconds int64
	Nanos   int64
}

// IntervalFromDuration splits d into hours, minutes, seconds and nanoseconds.
func IntervalFromDuration(d time.Duration) Interval {
	iv := Interval{Hours: int64(d / time.Hour)}
	d -= time.Duration(iv.Hours) * time.Hour
	iv.Minutes = int64(d / time.Minute)
	d -= time.Duration(iv.Minutes) * time.Minute
	iv.Seconds = int64(d / time.Second)
	d -= time.Duration(iv.Seconds) * time.Second
	iv.Nanos = int64(d)
	return iv
}

// IsZero reports whether every field is zero.
func (iv Interval) IsZero() bool { return iv == Interval{} }

// Modifiers returns the engine date modifiers, one per non-zero field,
// in order from years down to nanoseconds.
func (iv Interval) Modifiers() []string {
	var out []string
	add := func(n int64, unit string) {
		if n != 0 {
			out = append(out, fmt.Sprintf("%+d %s", n, unit))
		}
	}
	add(iv.Years, "years")
	add(iv.Months, "months")
	add(iv.Days, "days")
	add(iv.Hours, "hours")
	add(iv.Minutes, "minutes")
	add(iv.Seconds, "seconds")
	if iv.Nanos != 0 {
		sign, n := "+", iv.Nanos
		if n < 0 {
			sign, n = "-", -n
		}
		out = append(out, fmt.Sprintf("%s%d.%09d seconds", sign, n/1e9, n%1e9))
	}
	return out
}
