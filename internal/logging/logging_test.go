package logging

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReplaceAttr(t *testing.T) {
	ts := time.Date(2013, 1, 2, 1, 0, 0, 123456789, time.FixedZone("CET", 3600))
	a := replaceAttr(nil, slog.Time(slog.TimeKey, ts))
	assert.Equal(t, "2013-01-02T00:00:00.123Z", a.Value.String())

	assert.True(t, replaceAttr(nil, slog.String("file", "")).Equal(slog.Attr{}))
	assert.Equal(t, "x", replaceAttr(nil, slog.String("file", "x")).Value.String())
}
