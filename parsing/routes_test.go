package parsing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev.hon.one/routewatch/common"
)

const ciscoRouteOutput = `Codes: C - connected, S - static, R - RIP, M - mobile, B - BGP
       D - EIGRP, EX - EIGRP external, O - OSPF, IA - OSPF inter area
       * - candidate default, U - per-user static route, o - ODR

Gateway of last resort is 10.0.0.1 to network 0.0.0.0

C    192.168.1.0/24 is directly connected, FastEthernet0/0
S    10.10.0.0/16 [1/0] via 192.168.1.254
D    172.16.0.0/12 [90/2172416] via 192.168.1.2, 00:01:02, Serial0/1
R    10.20.0.0/16 [120/1] via 192.168.1.3, 00:00:12, FastEthernet0/0
S*   0.0.0.0/0 [1/0] via 10.0.0.1
O    10.30.0.0/16 [110/2] via 192.168.1.4, 00:00:12, FastEthernet0/0
     10.0.0.0/8 is variably subnetted, 2 subnets, 2 masks
C    300.1.1.0/24 is directly connected, Loopback0
`

func TestParseRoutingTable_Empty(t *testing.T) {
	for _, kind := range []common.DeviceKind{common.DeviceKindCisco, common.DeviceKindLinux, "unknown"} {
		assert.Empty(t, ParseRoutingTable("", kind), string(kind))
	}
}

func TestParseRoutingTable_UnknownKind(t *testing.T) {
	assert.Empty(t, ParseRoutingTable(ciscoRouteOutput, "junos"))
}

func TestParseCiscoRoutes_SingleLine(t *testing.T) {
	routes := ParseRoutingTable("C    192.168.1.0/24 is directly connected, FastEthernet0/0", common.DeviceKindCisco)
	require.Len(t, routes, 1)
	assert.Equal(t, common.RouteCodeConnected, routes[0].Code)
	assert.Equal(t, "192.168.1.0/24", routes[0].Network)
	assert.Equal(t, "C    192.168.1.0/24 is directly connected, FastEthernet0/0", routes[0].Line)
}

func TestParseCiscoRoutes_NoMatch(t *testing.T) {
	tests := []string{
		"Gateway of last resort is not set",
		"     10.0.0.0/8 is variably subnetted, 2 subnets, 2 masks",
		"X    10.0.0.0/8 via 1.1.1.1",
		"C    not-a-prefix",
		"C    300.1.1.0/24 is directly connected, Loopback0",
	}
	for _, line := range tests {
		assert.Empty(t, ParseCiscoRoutes(line), line)
	}
}

func TestParseCiscoRoutes_Table(t *testing.T) {
	routes := ParseRoutingTable(ciscoRouteOutput, common.DeviceKindCisco)

	var got []common.RouteEntry
	for _, route := range routes {
		got = append(got, common.RouteEntry{Code: route.Code, Network: route.Network})
	}
	assert.Equal(t, []common.RouteEntry{
		{Code: "C", Network: "192.168.1.0/24"},
		{Code: "S", Network: "10.10.0.0/16"},
		{Code: "D", Network: "172.16.0.0/12"},
		{Code: "R", Network: "10.20.0.0/16"},
		{Code: "*", Network: "0.0.0.0/0"},
	}, got)
}

func TestParseCiscoRoutes_CandidateDefault(t *testing.T) {
	tests := []string{
		"*    0.0.0.0/0 [1/0] via 10.0.0.1",
		"S*   0.0.0.0/0 [1/0] via 10.0.0.1",
		"D*   0.0.0.0/0 [170/2560] via 10.0.0.2, 00:01:02, Serial0/1",
	}
	for _, line := range tests {
		routes := ParseCiscoRoutes(line)
		require.Len(t, routes, 1, line)
		assert.Equal(t, common.RouteCodeCandidateDefault, routes[0].Code, line)
		assert.Equal(t, common.RouteClassCandidateDefault, routes[0].Code.Class(), line)
		assert.Equal(t, "0.0.0.0/0", routes[0].Network, line)
	}
}

func TestParseCiscoRoutes_CRLF(t *testing.T) {
	routes := ParseCiscoRoutes("C    10.1.0.0/24 is directly connected, Ethernet0\r\nS    10.2.0.0/24 [1/0] via 10.1.0.1\r\n")
	require.Len(t, routes, 2)
	assert.Equal(t, "S    10.2.0.0/24 [1/0] via 10.1.0.1", routes[1].Line)
}

func TestParseLinuxRoutes(t *testing.T) {
	text := "default via 10.0.0.1 dev eth0\n" +
		"10.0.0.0/24 dev eth0 proto kernel scope link src 10.0.0.5\n" +
		"  172.17.0.0/16 dev docker0 proto kernel scope link src 172.17.0.1 linkdown  \n" +
		"unreachable 192.0.2.0/24\n" +
		"blackhole 198.51.100.0/24 devnull\n" +
		"\n"

	routes := ParseRoutingTable(text, common.DeviceKindLinux)
	assert.Equal(t, []common.RouteEntry{
		{Line: "default via 10.0.0.1 dev eth0"},
		{Line: "10.0.0.0/24 dev eth0 proto kernel scope link src 10.0.0.5"},
		{Line: "172.17.0.0/16 dev docker0 proto kernel scope link src 172.17.0.1 linkdown"},
	}, routes)
}

func TestParseLinuxRoutes_Default(t *testing.T) {
	routes := ParseLinuxRoutes("default via 10.0.0.1 dev eth0")
	require.Len(t, routes, 1)
	assert.Equal(t, "default via 10.0.0.1 dev eth0", routes[0].Line)
	assert.Empty(t, routes[0].Code)
	assert.Empty(t, routes[0].Network)

	assert.Empty(t, ParseLinuxRoutes("local 127.0.0.1 table local"))
}

func TestParseRoutingTable_Idempotent(t *testing.T) {
	assert.Equal(t,
		ParseRoutingTable(ciscoRouteOutput, common.DeviceKindCisco),
		ParseRoutingTable(ciscoRouteOutput, common.DeviceKindCisco))
}

func TestRegisterDialect(t *testing.T) {
	const kind common.DeviceKind = "test_static"
	RegisterDialect(kind, Dialect{
		RoutingTableCommand: "dump routes",
		InterfacesCommand:   "dump interfaces",
		ParseRoutes: func(text string) []common.RouteEntry {
			return []common.RouteEntry{{Line: text}}
		},
		ParseInterfaces: func(text string) []common.InterfaceRecord {
			return []common.InterfaceRecord{{Name: text, Status: common.InterfaceStatusUnknown, Counters: map[string]uint64{}}}
		},
	})

	dialect, found := LookupDialect(kind)
	require.True(t, found)
	assert.Equal(t, "dump routes", dialect.RoutingTableCommand)
	assert.Equal(t, []common.RouteEntry{{Line: "x"}}, ParseRoutingTable("x", kind))
	assert.Equal(t, common.InterfaceStatusUnknown, dialect.ParseInterfaces("lo")[0].Status)

	_, found = LookupDialect("never_registered")
	assert.False(t, found)
}
