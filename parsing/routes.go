package parsing

import (
	"net"
	"regexp"
	"strings"

	"dev.hon.one/routewatch/common"
)

// Code and/or candidate default marker, then the prefix. "S*" is a candidate default.
var ciscoRouteRegex = regexp.MustCompile(`^([CDRS])?(\*)?\s+(\d+\.\d+\.\d+\.\d+/\d+)`)

// ParseCiscoRoutes - Parse "show ip route" output into code and network.
func ParseCiscoRoutes(text string) []common.RouteEntry {
	var routes []common.RouteEntry
	for _, line := range splitLines(text) {
		result := ciscoRouteRegex.FindStringSubmatch(line)
		if result == nil || (result[1] == "" && result[2] == "") {
			continue
		}
		// Shaped like a prefix is not enough, e.g. 300.1.1.1/24
		if _, _, err := net.ParseCIDR(result[3]); err != nil {
			continue
		}
		code := common.RouteCode(result[1])
		if result[2] != "" {
			code = common.RouteCodeCandidateDefault
		}
		routes = append(routes, common.RouteEntry{
			Code:    code,
			Network: result[3],
			Line:    strings.TrimSpace(line),
		})
	}
	return routes
}

// ParseLinuxRoutes - Parse "ip route show" output. Routes are kept as raw lines.
func ParseLinuxRoutes(text string) []common.RouteEntry {
	var routes []common.RouteEntry
	for _, line := range splitLines(text) {
		if !hasAnyField(line, "via", "dev") {
			continue
		}
		routes = append(routes, common.RouteEntry{
			Line: strings.TrimSpace(line),
		})
	}
	return routes
}

func hasAnyField(line string, tokens ...string) bool {
	for _, field := range strings.Fields(line) {
		for _, token := range tokens {
			if field == token {
				return true
			}
		}
	}
	return false
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(text, "\r", ""), "\n")
}
