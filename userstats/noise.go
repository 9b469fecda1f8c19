package userstats

// Bias is added by reporting nodes to every count they publish.
const Bias = 4.0

// StatsInterval is the only reporting interval accepted for counters.
const StatsInterval = DayMillis

// Fresh reports whether statistics ending at end are recent enough to be
// imported from a descriptor published at published.
func Fresh(published, end int64) bool {
	return published-end <= WeekMillis
}

// Correct removes the bias from a raw count. The second return value is
// false when the corrected count is not significant.
func Correct(raw int) (float64, bool) {
	v := float64(raw) - Bias
	return v, v > 0
}

// Usable reports whether a counter interval ending at end with the given
// length may be imported from a descriptor published at published.
func Usable(published, end, length int64) bool {
	return Fresh(published, end) && length == StatsInterval
}
