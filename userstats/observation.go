package userstats

import "time"

// Observation is a single row destined for the imported table. From and
// To are milliseconds since the epoch, UTC.
type Observation struct {
	Fingerprint string
	Node        NodeKind
	Metric      string
	Country     string
	Transport   string
	Version     string
	From        int64
	To          int64
	Value       float64
}

// WithCategory returns a copy of o with the dimension for c set to label.
func (o Observation) WithCategory(c Category, label string) Observation {
	switch c {
	case Country:
		o.Country = label
	case Transport:
		o.Transport = label
	case Version:
		o.Version = label
	}
	return o
}

// Valid reports whether the row covers a non-inverted interval.
func (o Observation) Valid() bool {
	return o.From <= o.To
}

// DateTimeLayout is the layout used for interval bounds in output rows.
const DateTimeLayout = "2006-01-02 15:04:05"

// FormatMillis renders ms since the epoch in UTC using DateTimeLayout.
func FormatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(DateTimeLayout)
}
