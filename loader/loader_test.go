package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const script = "BEGIN;\n" +
	"LOCK TABLE imported NOWAIT;\n" +
	"COPY imported (fingerprint, node, metric, country, transport, version, stats_start, stats_end, val) FROM stdin;\n" +
	"AAAA\trelay\tstatus\t\t\t\t2013-01-03 12:00:00\t2013-01-03 13:00:00\t0.0\n" +
	"BBBB\tbridge\tbytes\t\t\t\t2013-01-03 12:00:00\t2013-01-03 12:15:00\t10.0\n" +
	"\\.\n" +
	"SELECT merge();\n" +
	"SELECT aggregate();\n" +
	"TRUNCATE imported;\n" +
	"COMMIT;\n"

func TestParseScript(t *testing.T) {
	s, err := ParseScript(strings.NewReader(script))
	require.NoError(t, err)

	assert.Equal(t, "BEGIN;\nLOCK TABLE imported NOWAIT;\n", s.Head)
	assert.Equal(t, "COPY imported (fingerprint, node, metric, country, transport, version, stats_start, stats_end, val) FROM stdin", s.Copy)
	assert.Equal(t,
		"AAAA\trelay\tstatus\t\t\t\t2013-01-03 12:00:00\t2013-01-03 13:00:00\t0.0\n"+
			"BBBB\tbridge\tbytes\t\t\t\t2013-01-03 12:00:00\t2013-01-03 12:15:00\t10.0\n",
		string(s.Data))
	assert.Equal(t, "SELECT merge();\nSELECT aggregate();\nTRUNCATE imported;\nCOMMIT;\n", s.Tail)
}

func TestParseScriptMalformed(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"no copy", "BEGIN;\nCOMMIT;\n"},
		{"unterminated", "BEGIN;\nCOPY imported (a) FROM stdin;\nrow\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript(strings.NewReader(tt.script))
			assert.ErrorIs(t, err, ErrMalformedScript)
		})
	}
}
