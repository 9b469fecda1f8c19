package userstats

import (
	"errors"
	"fmt"
)

const (
	HourMillis = int64(60 * 60 * 1000)
	DayMillis  = 24 * HourMillis
	WeekMillis = 7 * DayMillis
)

// ErrMultipleDayBoundaries is returned by Split for intervals that cross
// more than one UTC midnight.
var ErrMultipleDayBoundaries = errors.New("interval crosses more than one day boundary")

// Span is a part of a reporting interval that lies within one UTC day.
type Span struct {
	From  int64
	To    int64
	Value float64
}

// Fraction returns the share of an interval of length total covered by s.
func (s Span) Fraction(total int64) float64 {
	return float64(s.To-s.From) / float64(total)
}

// Split cuts [start, end) at the UTC day boundary it crosses, if any, and
// scales value by each part's share of the whole interval. Parts of zero
// width are left out; an inverted interval yields nothing.
func Split(start, end int64, value float64) ([]Span, error) {
	if start >= end {
		return nil, nil
	}

	firstDay := start / DayMillis
	lastDay := (end - 1) / DayMillis
	switch lastDay - firstDay {
	case 0:
		return []Span{{From: start, To: end, Value: value}}, nil
	case 1:
	default:
		return nil, fmt.Errorf("[%s, %s): %w", FormatMillis(start), FormatMillis(end), ErrMultipleDayBoundaries)
	}

	total := float64(end - start)
	boundary := lastDay * DayMillis
	return []Span{
		{From: start, To: boundary, Value: value * float64(boundary-start) / total},
		{From: boundary, To: end, Value: value * float64(end-boundary) / total},
	}, nil
}
