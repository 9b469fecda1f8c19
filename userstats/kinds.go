package userstats

import "fmt"

// NodeKind is the kind of node that reported a snapshot.
type NodeKind int

const (
	Relay NodeKind = iota
	Bridge
)

func (k NodeKind) String() string {
	switch k {
	case Relay:
		return "relay"
	case Bridge:
		return "bridge"
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// Metric names as written to the imported table.
const (
	MetricResponses = "responses"
	MetricBytes     = "bytes"
	MetricStatus    = "status"
)

// Category is one of the breakdowns responses can be attributed to.
type Category int

const (
	Country Category = iota
	Transport
	Version
)

func (c Category) String() string {
	switch c {
	case Country:
		return "country"
	case Transport:
		return "transport"
	case Version:
		return "version"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Sentinel is the label that receives all responses when a frequency
// table carries no usable counts.
func (c Category) Sentinel() string {
	switch c {
	case Country:
		return "??"
	case Transport:
		return "<OR>"
	case Version:
		return "v4"
	}
	panic(fmt.Sprintf("userstats: unknown category %d", int(c)))
}
