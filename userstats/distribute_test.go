package userstats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrect(t *testing.T) {
	for raw := -2; raw <= 4; raw++ {
		v, ok := Correct(raw)
		assert.False(t, ok, "raw %d", raw)
		assert.LessOrEqual(t, v, 0.0)
	}
	v, ok := Correct(5)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestFresh(t *testing.T) {
	end := ms("2013-01-02T00:00:00Z")
	assert.True(t, Fresh(end+WeekMillis, end))
	assert.False(t, Fresh(end+WeekMillis+1, end))
	assert.True(t, Usable(end+WeekMillis, end, DayMillis))
	assert.False(t, Usable(end, end, DayMillis-1000))
}

func TestDistribute(t *testing.T) {
	shares := Distribute(90, Country, map[string]int{"us": 64, "de": 34, "fr": 4, "it": 1})
	assert.Equal(t, []Share{
		{Label: "de", Value: 30},
		{Label: "us", Value: 60},
	}, shares)
}

func TestDistributeConserves(t *testing.T) {
	tables := []map[string]int{
		{"a": 5, "b": 9, "c": 1000, "d": 17},
		{"<OR>": 12, "obfs2": 8, "obfs3": 100},
		{"v4": 1000, "v6": 12},
		{},
		{"x": 4, "y": 2},
	}
	for _, c := range []Category{Country, Transport, Version} {
		for _, freq := range tables {
			var sum float64
			for _, s := range Distribute(123.4, c, freq) {
				sum += s.Value
			}
			assert.InDelta(t, 123.4, sum, 1e-9)
		}
	}
}

func TestDistributeFallback(t *testing.T) {
	tests := []struct {
		category Category
		want     string
	}{
		{Country, "??"},
		{Transport, "<OR>"},
		{Version, "v4"},
	}
	for _, tt := range tests {
		t.Run(tt.category.String(), func(t *testing.T) {
			empty := Distribute(50, tt.category, nil)
			insignificant := Distribute(50, tt.category, map[string]int{"a": 4, "b": 3, "c": 0})
			assert.Equal(t, []Share{{Label: tt.want, Value: 50}}, empty)
			assert.Equal(t, empty, insignificant)
		})
	}
}
