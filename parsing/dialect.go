// Package parsing turns raw command output from devices into structured records.
// Parsing is best-effort: lines that don't match are dropped, never reported as errors.
package parsing

import (
	"sync"

	"dev.hon.one/routewatch/common"
)

// RouteParser - Extract routes from routing table output.
type RouteParser func(text string) []common.RouteEntry

// InterfaceParser - Extract interfaces from interface statistics output.
type InterfaceParser func(text string) []common.InterfaceRecord

// Dialect - Commands and parsers for one device kind.
type Dialect struct {
	RoutingTableCommand string
	InterfacesCommand   string
	ParseRoutes         RouteParser
	ParseInterfaces     InterfaceParser
}

var dialectsMutex sync.RWMutex
var dialects = map[common.DeviceKind]Dialect{
	common.DeviceKindCisco: {
		RoutingTableCommand: "show ip route",
		InterfacesCommand:   "show interfaces",
		ParseRoutes:         ParseCiscoRoutes,
		ParseInterfaces:     ParseInterfaceStatistics,
	},
	common.DeviceKindLinux: {
		RoutingTableCommand: "ip route show",
		InterfacesCommand:   "show interfaces",
		ParseRoutes:         ParseLinuxRoutes,
		ParseInterfaces:     ParseInterfaceStatistics,
	},
}

// RegisterDialect - Add or replace the dialect for a device kind.
func RegisterDialect(kind common.DeviceKind, dialect Dialect) {
	dialectsMutex.Lock()
	defer dialectsMutex.Unlock()
	dialects[kind] = dialect
}

// LookupDialect - Get the dialect for a device kind.
func LookupDialect(kind common.DeviceKind) (Dialect, bool) {
	dialectsMutex.RLock()
	defer dialectsMutex.RUnlock()
	dialect, found := dialects[kind]
	return dialect, found
}

// ParseRoutingTable - Parse routing table output using the parser for the kind.
// Unknown kinds give no entries.
func ParseRoutingTable(text string, kind common.DeviceKind) []common.RouteEntry {
	dialect, found := LookupDialect(kind)
	if !found || dialect.ParseRoutes == nil {
		return nil
	}
	return dialect.ParseRoutes(text)
}
