package userstats

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/hostnetbr/userstats/descriptor"
)

// Extract turns one descriptor reported by a node of the given kind into
// observation rows. Metrics are extracted independently: when one fails,
// the rows of the others are still returned alongside the error.
func Extract(node NodeKind, d descriptor.Descriptor) ([]Observation, error) {
	switch d := d.(type) {
	case *descriptor.ExtraInfo:
		var (
			resp []Observation
			err  error
		)
		switch node {
		case Relay:
			resp, err = RelayResponses(d)
		case Bridge:
			resp, err = BridgeResponses(d)
		}
		hist, herr := WriteHistory(node, d)
		return append(resp, hist...), errors.Join(err, herr)
	case *descriptor.Consensus:
		if node == Relay {
			return RelayPresence(d), nil
		}
	case *descriptor.BridgeStatus:
		if node == Bridge {
			return BridgePresence(d), nil
		}
	}
	return nil, nil
}

// RelayResponses attributes a relay's directory requests to the
// countries they came from.
func RelayResponses(ei *descriptor.ExtraInfo) ([]Observation, error) {
	if ei.DirreqV3Reqs == nil {
		return nil, nil
	}
	end := ei.DirreqStatsEnd.UnixMilli()
	length := ei.DirreqStatsInterval.Milliseconds()
	if !Usable(ei.Published.UnixMilli(), end, length) {
		return nil, nil
	}
	spans, err := Split(end-length, end, 1)
	if err != nil {
		return nil, fmt.Errorf("relay %s responses: %w", ei.Fingerprint, err)
	}

	base := Observation{Fingerprint: ei.Fingerprint, Node: Relay, Metric: MetricResponses}
	countries := slices.Sorted(maps.Keys(ei.DirreqV3Reqs))
	var rows []Observation
	for _, s := range spans {
		base.From, base.To = s.From, s.To
		var sum float64
		for _, country := range countries {
			reqs, ok := Correct(ei.DirreqV3Reqs[country])
			if !ok {
				continue
			}
			sum += reqs
			row := base.WithCategory(Country, country)
			row.Value = reqs * s.Value
			rows = append(rows, row)
		}
		total := base
		total.Value = sum * s.Value
		rows = append(rows, total)
	}
	return rows, nil
}

// BridgeResponses attributes a bridge's successful directory responses to
// countries, transports and IP versions of its clients.
func BridgeResponses(ei *descriptor.ExtraInfo) ([]Observation, error) {
	oks, found := ei.DirreqV3Resp["ok"]
	if !found {
		return nil, nil
	}
	end := ei.DirreqStatsEnd.UnixMilli()
	length := ei.DirreqStatsInterval.Milliseconds()
	if !Usable(ei.Published.UnixMilli(), end, length) {
		return nil, nil
	}
	resp, significant := Correct(oks)
	if !significant {
		return nil, nil
	}
	spans, err := Split(end-length, end, resp)
	if err != nil {
		return nil, fmt.Errorf("bridge %s responses: %w", ei.Fingerprint, err)
	}

	breakdowns := []struct {
		category Category
		freq     map[string]int
	}{
		{Country, ei.BridgeIPs},
		{Transport, ei.BridgeIPTransports},
		{Version, ei.BridgeIPVersions},
	}

	base := Observation{Fingerprint: ei.Fingerprint, Node: Bridge, Metric: MetricResponses}
	var rows []Observation
	for _, s := range spans {
		base.From, base.To = s.From, s.To
		total := base
		total.Value = s.Value
		rows = append(rows, total)
		for _, b := range breakdowns {
			for _, share := range Distribute(s.Value, b.category, b.freq) {
				row := base.WithCategory(b.category, share.Label)
				row.Value = share.Value
				rows = append(rows, row)
			}
		}
	}
	return rows, nil
}

// WriteHistory converts the directory-request write history into byte
// rows, one per day-aligned part of every history interval.
func WriteHistory(node NodeKind, ei *descriptor.ExtraInfo) ([]Observation, error) {
	h := ei.DirreqWriteHistory
	if h == nil || !Fresh(ei.Published.UnixMilli(), h.End.UnixMilli()) {
		return nil, nil
	}
	length := h.Interval.Milliseconds()

	base := Observation{Fingerprint: ei.Fingerprint, Node: node, Metric: MetricBytes}
	var rows []Observation
	for _, v := range h.Entries() {
		end := v.End.UnixMilli()
		spans, err := Split(end-length, end, float64(v.Bytes))
		if err != nil {
			return nil, fmt.Errorf("%s %s write history: %w", node, ei.Fingerprint, err)
		}
		for _, s := range spans {
			row := base
			row.From, row.To, row.Value = s.From, s.To, s.Value
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// RelayPresence marks running relays present for the consensus validity.
func RelayPresence(c *descriptor.Consensus) []Observation {
	w := ExactWindow(c.ValidAfter.UnixMilli(), c.FreshUntil.UnixMilli())
	return Presence(Relay, w, c.Entries)
}

// BridgePresence marks running bridges present for the hour the status
// was published in.
func BridgePresence(s *descriptor.BridgeStatus) []Observation {
	w, ok := HourBucket(s.Published.UnixMilli())
	if !ok {
		return nil
	}
	return Presence(Bridge, w, s.Entries)
}
