package userstats

import "github.com/hostnetbr/userstats/descriptor"

// RunningFlag marks entries that were up when a status was produced.
const RunningFlag = "Running"

// Window is the interval a status entry is counted as present for.
type Window struct {
	From int64
	To   int64
}

// ExactWindow is the validity window of a relay consensus.
func ExactWindow(validAfter, freshUntil int64) Window {
	return Window{From: validAfter, To: freshUntil}
}

// HourBucket returns the hour containing published. Statuses published
// later than half past the hour are not on time for their bucket and
// ok is false.
func HourBucket(published int64) (w Window, ok bool) {
	if published%HourMillis > HourMillis/2 {
		return Window{}, false
	}
	from := published / HourMillis * HourMillis
	return Window{From: from, To: from + HourMillis}, true
}

// Presence emits a zero-valued status row in w for every running entry.
func Presence(node NodeKind, w Window, entries []descriptor.StatusEntry) []Observation {
	var rows []Observation
	for _, e := range entries {
		if !e.Flags[RunningFlag] {
			continue
		}
		rows = append(rows, Observation{
			Fingerprint: e.Fingerprint,
			Node:        node,
			Metric:      MetricStatus,
			From:        w.From,
			To:          w.To,
		})
	}
	return rows
}
