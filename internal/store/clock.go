package store

import "time"

// TimestampLayout formats record keys with microsecond precision, e.g.
// "2022-10-29 20:20:58.020261". Keys sort lexically in time order.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// Clock supplies the wall-clock time used for record keys.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the local wall clock.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Timestamp formats t as a record key.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
