// Package transportcount counts running bridges by the pluggable
// transports they announce.
package transportcount

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/hostnetbr/userstats/descriptor"
	"github.com/hostnetbr/userstats/userstats"
)

// Row is the number of running bridges supporting Transport in the
// status published at Published.
type Row struct {
	Published time.Time
	Transport string
	Bridges   int
}

// Counter joins extra-info descriptors to server descriptors to status
// entries. Extra-infos must be added before the server descriptors that
// reference them, and both before statuses are counted.
type Counter struct {
	extraInfos map[string][]string
	servers    map[string][]string
}

func NewCounter() *Counter {
	return &Counter{
		extraInfos: make(map[string][]string),
		servers:    make(map[string][]string),
	}
}

func (c *Counter) AddExtraInfo(ei *descriptor.ExtraInfo) {
	if len(ei.Transports) == 0 {
		return
	}
	c.extraInfos[ei.Digest] = ei.Transports
}

func (c *Counter) AddServerDescriptor(sd *descriptor.ServerDescriptor) {
	if sd.ExtraInfoDigest == "" {
		return
	}
	if transports, ok := c.extraInfos[sd.ExtraInfoDigest]; ok {
		c.servers[sd.Digest] = transports
	}
}

// Count returns one row per transport seen among the running entries of
// s, ordered by transport.
func (c *Counter) Count(s *descriptor.BridgeStatus) []Row {
	bridges := make(map[string]int)
	for _, e := range s.Entries {
		if !e.Flags[userstats.RunningFlag] {
			continue
		}
		for _, t := range c.servers[e.Descriptor] {
			bridges[t]++
		}
	}

	rows := make([]Row, 0, len(bridges))
	for _, t := range slices.Sorted(maps.Keys(bridges)) {
		rows = append(rows, Row{Published: s.Published, Transport: t, Bridges: bridges[t]})
	}
	return rows
}

// Writer writes rows as CSV with a header line.
type Writer struct {
	w *csv.Writer
}

func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"published", "transport", "bridges"}); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}
	return &Writer{w: cw}, nil
}

func (w *Writer) Write(rows []Row) error {
	for _, r := range rows {
		rec := []string{r.Published.UTC().Format(userstats.DateTimeLayout), r.Transport, strconv.Itoa(r.Bridges)}
		if err := w.w.Write(rec); err != nil {
			return fmt.Errorf("error writing row: %w", err)
		}
	}
	return nil
}

func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}
