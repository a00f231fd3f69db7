package common

import (
	"encoding/json"
	"time"
)

// RouteCode - Route source code, as shown by Cisco-like devices.
type RouteCode string

// Known route codes. Anything else is unclassified.
const (
	RouteCodeConnected        RouteCode = "C"
	RouteCodeStatic           RouteCode = "S"
	RouteCodeEIGRP            RouteCode = "D"
	RouteCodeRIP              RouteCode = "R"
	RouteCodeCandidateDefault RouteCode = "*"
	RouteCodeUnclassified     RouteCode = ""
)

// RouteClass - Broad classification of a route code.
type RouteClass string

// Route classes.
const (
	RouteClassConnected        RouteClass = "connected"
	RouteClassStatic           RouteClass = "static"
	RouteClassDynamic          RouteClass = "dynamic"
	RouteClassCandidateDefault RouteClass = "candidate_default"
	RouteClassUnclassified     RouteClass = "unclassified"
)

// Class - Classify the code.
func (code RouteCode) Class() RouteClass {
	switch code {
	case RouteCodeConnected:
		return RouteClassConnected
	case RouteCodeStatic:
		return RouteClassStatic
	case RouteCodeEIGRP, RouteCodeRIP:
		return RouteClassDynamic
	case RouteCodeCandidateDefault:
		return RouteClassCandidateDefault
	}
	return RouteClassUnclassified
}

// RouteEntry - One route extracted from a routing table dump.
// Linux-like routes only carry the line.
type RouteEntry struct {
	Code    RouteCode `json:"code,omitempty"`
	Network string    `json:"network,omitempty"` // CIDR
	Line    string    `json:"line"`
}

// InterfaceStatus - Operational status of an interface.
type InterfaceStatus string

// Interface statuses. The built-in "show interfaces" parser only yields up or down,
// unknown is left for registered dialects whose output does not state a status.
const (
	InterfaceStatusUp      InterfaceStatus = "up"
	InterfaceStatusDown    InterfaceStatus = "down"
	InterfaceStatusUnknown InterfaceStatus = "unknown"
)

// Interface counter names.
const (
	CounterPacketsIn  = "packets_in"
	CounterPacketsOut = "packets_out"
)

// InterfaceRecord - Status and counters for one interface.
type InterfaceRecord struct {
	Name     string            `json:"name"`
	Status   InterfaceStatus   `json:"status"`
	Counters map[string]uint64 `json:"counters"`
}

// DevicePair - Ordered (source, target) pair of device identifiers.
type DevicePair struct {
	Source string
	Target string
}

// ConnectivityMatrix - Reachability for ordered device pairs. Never contains self-pairs.
type ConnectivityMatrix struct {
	entries map[DevicePair]bool
}

// NewConnectivityMatrix - Create an empty matrix.
func NewConnectivityMatrix() *ConnectivityMatrix {
	return &ConnectivityMatrix{entries: make(map[DevicePair]bool)}
}

// Set - Record reachability from source to target. Self-pairs are ignored.
func (matrix *ConnectivityMatrix) Set(source string, target string, reachable bool) {
	if source == target {
		return
	}
	matrix.entries[DevicePair{Source: source, Target: target}] = reachable
}

// Get - Get reachability from source to target and whether the pair was probed.
func (matrix *ConnectivityMatrix) Get(source string, target string) (bool, bool) {
	reachable, found := matrix.entries[DevicePair{Source: source, Target: target}]
	return reachable, found
}

// Len - Number of pairs.
func (matrix *ConnectivityMatrix) Len() int {
	return len(matrix.entries)
}

// Pairs - Copy of all entries.
func (matrix *ConnectivityMatrix) Pairs() map[DevicePair]bool {
	pairs := make(map[DevicePair]bool, len(matrix.entries))
	for pair, reachable := range matrix.entries {
		pairs[pair] = reachable
	}
	return pairs
}

// MarshalJSON - Encode as nested source -> target -> reachable objects.
func (matrix *ConnectivityMatrix) MarshalJSON() ([]byte, error) {
	nested := make(map[string]map[string]bool)
	for pair, reachable := range matrix.entries {
		targets, found := nested[pair.Source]
		if !found {
			targets = make(map[string]bool)
			nested[pair.Source] = targets
		}
		targets[pair.Target] = reachable
	}
	return json.Marshal(nested)
}

// UnmarshalJSON - Decode the nested form written by MarshalJSON.
func (matrix *ConnectivityMatrix) UnmarshalJSON(data []byte) error {
	var nested map[string]map[string]bool
	if err := json.Unmarshal(data, &nested); err != nil {
		return err
	}
	matrix.entries = make(map[DevicePair]bool)
	for source, targets := range nested {
		for target, reachable := range targets {
			matrix.Set(source, target, reachable)
		}
	}
	return nil
}

// SnapshotKind - What a snapshot payload contains.
type SnapshotKind string

// Snapshot kinds.
const (
	SnapshotKindRoutingTable SnapshotKind = "routing_table"
	SnapshotKindInterfaces   SnapshotKind = "interfaces"
	SnapshotKindConnectivity SnapshotKind = "connectivity"
)

// Snapshot - Immutable timestamped record of collected state.
// Payload is []RouteEntry, []InterfaceRecord or *ConnectivityMatrix, depending on the kind.
type Snapshot struct {
	Time     time.Time
	DeviceID string
	Kind     SnapshotKind
	CycleID  string // Optional
	Payload  interface{}
}
