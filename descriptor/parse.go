package descriptor

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	ErrUnknownType = errors.New("unknown descriptor type")
	errMalformed   = errors.New("malformed line")
)

type docType int

const (
	typeUnknown docType = iota
	typeExtraInfo
	typeServerDescriptor
	typeConsensus
	typeVote
	typeBridgeStatus
)

var annotationTypes = map[string]docType{
	"extra-info":                 typeExtraInfo,
	"bridge-extra-info":          typeExtraInfo,
	"server-descriptor":          typeServerDescriptor,
	"bridge-server-descriptor":   typeServerDescriptor,
	"network-status-consensus-3": typeConsensus,
	"network-status-vote-3":      typeVote,
	"bridge-network-status":      typeBridgeStatus,
}

// Parse decodes the contents of one descriptor file. Files holding
// extra-info or server descriptors may contain several of them. Votes
// are recognized and skipped.
func Parse(data []byte) ([]Descriptor, error) {
	data, annotation := stripAnnotations(data)
	switch detectType(annotation, data) {
	case typeExtraInfo:
		return parseEach(data, "extra-info ", parseExtraInfo)
	case typeServerDescriptor:
		return parseEach(data, "router ", parseServerDescriptor)
	case typeConsensus:
		c, err := parseConsensus(data)
		if err != nil {
			return nil, err
		}
		return []Descriptor{c}, nil
	case typeBridgeStatus:
		s, err := parseBridgeStatus(data)
		if err != nil {
			return nil, err
		}
		return []Descriptor{s}, nil
	case typeVote:
		return nil, nil
	}
	return nil, ErrUnknownType
}

func stripAnnotations(data []byte) ([]byte, string) {
	var annotation string
	for bytes.HasPrefix(data, []byte("@")) {
		line, rest, _ := bytes.Cut(data, []byte("\n"))
		if fields := strings.Fields(string(line)); annotation == "" && len(fields) > 1 && fields[0] == "@type" {
			annotation = fields[1]
		}
		data = rest
	}
	return data, annotation
}

func detectType(annotation string, data []byte) docType {
	if t, ok := annotationTypes[annotation]; ok {
		return t
	}
	first, _, _ := bytes.Cut(data, []byte("\n"))
	kw, _ := keyword(string(first))
	switch kw {
	case "extra-info":
		return typeExtraInfo
	case "router":
		return typeServerDescriptor
	case "network-status-version":
		if bytes.Contains(data, []byte("\nvote-status consensus")) {
			return typeConsensus
		}
		return typeVote
	case "published":
		return typeBridgeStatus
	}
	return typeUnknown
}

func parseEach(data []byte, prefix string, parse func([]byte) (Descriptor, error)) ([]Descriptor, error) {
	var starts []int
	for i := 0; i < len(data); {
		if bytes.HasPrefix(data[i:], []byte(prefix)) {
			starts = append(starts, i)
		}
		j := bytes.IndexByte(data[i:], '\n')
		if j < 0 {
			break
		}
		i += j + 1
	}
	if len(starts) == 0 {
		return nil, fmt.Errorf("no %q line: %w", strings.TrimSpace(prefix), errMalformed)
	}

	descs := make([]Descriptor, 0, len(starts))
	for n, start := range starts {
		end := len(data)
		if n+1 < len(starts) {
			end = starts[n+1]
		}
		d, err := parse(data[start:end])
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// digest is the SHA-1 of a descriptor up to and including its
// router-signature line, in uppercase hex. Sanitized bridge descriptors
// replace it with their router-digest line.
func digest(chunk []byte) string {
	const sig = "\nrouter-signature\n"
	if i := bytes.Index(chunk, []byte(sig)); i >= 0 {
		chunk = chunk[:i+len(sig)]
	}
	sum := sha1.Sum(chunk)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func lines(chunk []byte) []string {
	return strings.Split(strings.ReplaceAll(string(chunk), "\r", ""), "\n")
}

func keyword(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

func parseExtraInfo(chunk []byte) (Descriptor, error) {
	ei := &ExtraInfo{Digest: digest(chunk)}
	for _, line := range lines(chunk) {
		kw, args := keyword(line)
		var err error
		switch kw {
		case "extra-info":
			if len(args) < 2 {
				err = errMalformed
				break
			}
			ei.Nickname = args[0]
			ei.Fingerprint = strings.ToUpper(args[1])
		case "published":
			ei.Published, err = parseTime(args)
		case "dirreq-stats-end":
			ei.DirreqStatsEnd, ei.DirreqStatsInterval, err = parseTimeInterval(args)
		case "dirreq-v3-reqs":
			ei.DirreqV3Reqs, err = parseCounts(args)
		case "dirreq-v3-resp":
			ei.DirreqV3Resp, err = parseCounts(args)
		case "bridge-ips":
			ei.BridgeIPs, err = parseCounts(args)
		case "bridge-ip-versions":
			ei.BridgeIPVersions, err = parseCounts(args)
		case "bridge-ip-transports":
			ei.BridgeIPTransports, err = parseCounts(args)
		case "dirreq-write-history":
			ei.DirreqWriteHistory, err = parseHistory(args)
		case "router-digest":
			ei.Digest, err = routerDigest(args)
		case "transport":
			if len(args) > 0 {
				ei.Transports = append(ei.Transports, args[0])
			}
		}
		if err != nil {
			return nil, fmt.Errorf("extra-info %s: %s: %w", ei.Fingerprint, kw, err)
		}
	}
	if ei.Fingerprint == "" {
		return nil, fmt.Errorf("extra-info without identity: %w", errMalformed)
	}
	return ei, nil
}

func parseServerDescriptor(chunk []byte) (Descriptor, error) {
	sd := &ServerDescriptor{Digest: digest(chunk)}
	for _, line := range lines(chunk) {
		kw, args := keyword(line)
		var err error
		switch kw {
		case "router":
			if len(args) < 1 {
				err = errMalformed
				break
			}
			sd.Nickname = args[0]
		case "fingerprint":
			sd.Fingerprint = strings.ToUpper(strings.Join(args, ""))
		case "published":
			sd.Published, err = parseTime(args)
		case "router-digest":
			sd.Digest, err = routerDigest(args)
		case "extra-info-digest":
			if len(args) < 1 {
				err = errMalformed
				break
			}
			sd.ExtraInfoDigest = strings.ToUpper(args[0])
		}
		if err != nil {
			return nil, fmt.Errorf("server descriptor %s: %s: %w", sd.Nickname, kw, err)
		}
	}
	return sd, nil
}

func parseConsensus(data []byte) (*Consensus, error) {
	c := &Consensus{}
	var p entryParser
	for _, line := range lines(data) {
		kw, args := keyword(line)
		handled, err := p.line(kw, args)
		if !handled {
			switch kw {
			case "valid-after":
				c.ValidAfter, err = parseTime(args)
			case "fresh-until":
				c.FreshUntil, err = parseTime(args)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("consensus: %s: %w", kw, err)
		}
	}
	if c.ValidAfter.IsZero() || c.FreshUntil.IsZero() {
		return nil, fmt.Errorf("consensus without validity: %w", errMalformed)
	}
	c.Entries = p.entries
	return c, nil
}

func parseBridgeStatus(data []byte) (*BridgeStatus, error) {
	s := &BridgeStatus{}
	var p entryParser
	for _, line := range lines(data) {
		kw, args := keyword(line)
		handled, err := p.line(kw, args)
		if !handled && kw == "published" {
			s.Published, err = parseTime(args)
		}
		if err != nil {
			return nil, fmt.Errorf("bridge status: %s: %w", kw, err)
		}
	}
	if s.Published.IsZero() {
		return nil, fmt.Errorf("bridge status without published line: %w", errMalformed)
	}
	s.Entries = p.entries
	return s, nil
}

type entryParser struct {
	entries []StatusEntry
}

func (p *entryParser) line(kw string, args []string) (bool, error) {
	switch kw {
	case "r":
		if len(args) < 2 {
			return true, errMalformed
		}
		fp, err := decodeDigest(args[1])
		if err != nil {
			return true, err
		}
		e := StatusEntry{Nickname: args[0], Fingerprint: fp, Flags: make(map[string]bool)}
		// Microdescriptor consensuses carry no descriptor digest.
		if len(args) >= 8 {
			if e.Descriptor, err = decodeDigest(args[2]); err != nil {
				return true, err
			}
		}
		p.entries = append(p.entries, e)
		return true, nil
	case "s":
		if len(p.entries) == 0 {
			return true, errMalformed
		}
		flags := p.entries[len(p.entries)-1].Flags
		for _, f := range args {
			flags[f] = true
		}
		return true, nil
	}
	return false, nil
}

func routerDigest(args []string) (string, error) {
	if len(args) < 1 {
		return "", errMalformed
	}
	return strings.ToUpper(args[0]), nil
}

func decodeDigest(s string) (string, error) {
	b, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return "", fmt.Errorf("decoding %q: %w", s, err)
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

func parseTime(args []string) (time.Time, error) {
	if len(args) < 2 {
		return time.Time{}, errMalformed
	}
	t, err := time.Parse(timeLayout, args[0]+" "+args[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time: %w", err)
	}
	return t, nil
}

// parseTimeInterval parses "YYYY-MM-DD HH:MM:SS (NSEC s)".
func parseTimeInterval(args []string) (time.Time, time.Duration, error) {
	if len(args) < 4 || !strings.HasPrefix(args[2], "(") || args[3] != "s)" {
		return time.Time{}, 0, errMalformed
	}
	t, err := parseTime(args)
	if err != nil {
		return time.Time{}, 0, err
	}
	secs, err := strconv.Atoi(strings.TrimPrefix(args[2], "("))
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("parsing interval: %w", err)
	}
	return t, time.Duration(secs) * time.Second, nil
}

func parseHistory(args []string) (*BandwidthHistory, error) {
	end, interval, err := parseTimeInterval(args)
	if err != nil {
		return nil, err
	}
	h := &BandwidthHistory{End: end, Interval: interval}
	if len(args) < 5 {
		return h, nil
	}
	for _, v := range strings.Split(args[4], ",") {
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing history value: %w", err)
		}
		h.Values = append(h.Values, n)
	}
	return h, nil
}

// parseCounts parses "key=N,key=N,...". An empty list yields an empty,
// non-nil map.
func parseCounts(args []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(args) == 0 {
		return counts, nil
	}
	for _, kv := range strings.Split(args[0], ",") {
		if kv == "" {
			continue
		}
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("%q: %w", kv, errMalformed)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parsing count %q: %w", kv, err)
		}
		counts[k] = n
	}
	return counts, nil
}
