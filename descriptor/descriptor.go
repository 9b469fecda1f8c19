// Package descriptor decodes the directory documents the importer needs
// and reads them from directories and tarballs.
package descriptor

import "time"

// Descriptor is one decoded document. The concrete types are *ExtraInfo,
// *Consensus, *BridgeStatus and *ServerDescriptor.
type Descriptor interface {
	isDescriptor()
}

// ExtraInfo is a relay or bridge extra-info descriptor. Count tables are
// nil when the descriptor does not carry the line.
type ExtraInfo struct {
	Nickname    string
	Fingerprint string
	Published   time.Time
	Digest      string

	DirreqStatsEnd      time.Time
	DirreqStatsInterval time.Duration
	DirreqV3Reqs        map[string]int
	DirreqV3Resp        map[string]int
	BridgeIPs           map[string]int
	BridgeIPVersions    map[string]int
	BridgeIPTransports  map[string]int
	DirreqWriteHistory  *BandwidthHistory

	Transports []string
}

// BandwidthHistory holds byte counts for consecutive intervals of equal
// length, oldest first. The last interval ends at End.
type BandwidthHistory struct {
	End      time.Time
	Interval time.Duration
	Values   []int64
}

// BandwidthValue is the byte count of the interval ending at End.
type BandwidthValue struct {
	End   time.Time
	Bytes int64
}

// Entries returns the history values paired with their interval ends.
func (h *BandwidthHistory) Entries() []BandwidthValue {
	out := make([]BandwidthValue, len(h.Values))
	for i, v := range h.Values {
		back := time.Duration(len(h.Values)-1-i) * h.Interval
		out[i] = BandwidthValue{End: h.End.Add(-back), Bytes: v}
	}
	return out
}

// StatusEntry is a router entry in a consensus or bridge network status.
type StatusEntry struct {
	Nickname    string
	Fingerprint string
	Descriptor  string
	Flags       map[string]bool
}

// Consensus is a relay network-status consensus.
type Consensus struct {
	ValidAfter time.Time
	FreshUntil time.Time
	Entries    []StatusEntry
}

// BridgeStatus is a sanitized bridge network status.
type BridgeStatus struct {
	Published time.Time
	Entries   []StatusEntry
}

// ServerDescriptor is a relay or bridge server descriptor.
type ServerDescriptor struct {
	Nickname        string
	Fingerprint     string
	Published       time.Time
	Digest          string
	ExtraInfoDigest string
}

func (*ExtraInfo) isDescriptor()        {}
func (*Consensus) isDescriptor()        {}
func (*BridgeStatus) isDescriptor()     {}
func (*ServerDescriptor) isDescriptor() {}
