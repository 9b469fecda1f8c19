// Package sqlscript writes observation rows as psql scripts that copy
// them into the imported table and fold them into the aggregates.
package sqlscript

import (
	"bufio"
	"errors"
	"fmt"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/hostnetbr/userstats/userstats"
)

const (
	Header = "BEGIN;\n" +
		"LOCK TABLE imported NOWAIT;\n" +
		"COPY imported (fingerprint, node, metric, country, transport, version, stats_start, stats_end, val) FROM stdin;\n"
	Trailer = "\\.\n" +
		"SELECT merge();\n" +
		"SELECT aggregate();\n" +
		"TRUNCATE imported;\n" +
		"COMMIT;\n"
)

var ErrFinalized = errors.New("script exporter already finalized")

type stream struct {
	file *os.File
	w    *bufio.Writer
	rows int
}

// Multiplexer routes rows to lazily created script files. In bulk mode
// there is one file per UTC date of the rows' start, otherwise a single
// file.
type Multiplexer struct {
	dir       string
	bulk      bool
	streams   map[string]*stream
	files     []string
	finalized bool
}

func NewMultiplexer(dir string, bulk bool) *Multiplexer {
	return &Multiplexer{dir: dir, bulk: bulk, streams: make(map[string]*stream)}
}

// FileName returns the script name a row starting at from belongs in.
func (m *Multiplexer) FileName(from string) string {
	if m.bulk {
		return fmt.Sprintf("userstats-%s.sql", from[:10])
	}
	return "userstats.sql"
}

// Export writes o to its script. Rows with inverted intervals are dropped.
func (m *Multiplexer) Export(o userstats.Observation) error {
	if m.finalized {
		return ErrFinalized
	}
	if !o.Valid() {
		return nil
	}
	from := userstats.FormatMillis(o.From)
	to := userstats.FormatMillis(o.To)

	s, err := m.stream(m.FileName(from))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(s.w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		o.Fingerprint, o.Node, o.Metric, o.Country, o.Transport, o.Version,
		from, to, FormatValue(o.Value))
	if err != nil {
		return fmt.Errorf("error writing row: %w", err)
	}
	s.rows++
	return nil
}

// FormatValue renders v with one decimal, rounding the shortest decimal
// representation of v half up. 0.25 becomes "0.3", not "0.2".
func FormatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	sign := ""
	if math.Signbit(v) {
		sign = "-"
	}
	whole, frac, _ := strings.Cut(strconv.FormatFloat(math.Abs(v), 'f', -1, 64), ".")
	frac += "00"

	digits := []byte(whole + frac[:1])
	if frac[1] >= '5' {
		i := len(digits) - 1
		for ; i >= 0 && digits[i] == '9'; i-- {
			digits[i] = '0'
		}
		if i < 0 {
			digits = append([]byte{'1'}, digits...)
		} else {
			digits[i]++
		}
	}
	n := len(digits) - 1
	return sign + string(digits[:n]) + "." + string(digits[n:])
}

func (m *Multiplexer) stream(name string) (*stream, error) {
	if s, ok := m.streams[name]; ok {
		return s, nil
	}
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating output dir: %w", err)
	}
	path := filepath.Join(m.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("error creating script: %w", err)
	}
	s := &stream{file: f, w: bufio.NewWriter(f)}
	if _, err := s.w.WriteString(Header); err != nil {
		f.Close()
		return nil, fmt.Errorf("error writing script header: %w", err)
	}
	m.streams[name] = s
	m.files = append(m.files, path)
	return s, nil
}

// Rows returns the number of rows written per script name.
func (m *Multiplexer) Rows() map[string]int {
	rows := make(map[string]int, len(m.streams))
	for name, s := range m.streams {
		rows[name] = s.rows
	}
	return rows
}

// Files returns the paths of all scripts created, sorted.
func (m *Multiplexer) Files() []string {
	return slices.Sorted(slices.Values(m.files))
}

// Close appends the trailer to every script and closes it. All scripts
// are closed even when some of them fail.
func (m *Multiplexer) Close() error {
	if m.finalized {
		return ErrFinalized
	}
	m.finalized = true

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(m.streams)) {
		if err := finalize(m.streams[name]); err != nil {
			errs = append(errs, fmt.Errorf("error finalizing %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Abort closes every script without its trailer. Scripts left behind end
// inside their COPY block and cannot commit when run.
func (m *Multiplexer) Abort() error {
	if m.finalized {
		return ErrFinalized
	}
	m.finalized = true

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(m.streams)) {
		s := m.streams[name]
		if err := errors.Join(s.w.Flush(), s.file.Close()); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func finalize(s *stream) error {
	_, err := s.w.WriteString(Trailer)
	if err == nil {
		err = s.w.Flush()
	}
	return errors.Join(err, s.file.Close())
}
