package parsing

import (
	"regexp"
	"strconv"
	"strings"

	"dev.hon.one/routewatch/common"
)

var packetsInputRegex = regexp.MustCompile(`(\d+) packets input`)
var packetsOutputRegex = regexp.MustCompile(`(\d+) packets output`)

// ParseInterfaceStatistics - Parse "show interfaces" output, one record per interface block in order of appearance.
func ParseInterfaceStatistics(text string) []common.InterfaceRecord {
	var interfaces []common.InterfaceRecord
	var current *common.InterfaceRecord

	for _, line := range splitLines(text) {
		switch {
		case strings.Contains(line, "Ethernet") || strings.Contains(line, "Serial"):
			if current != nil {
				interfaces = append(interfaces, *current)
			}
			status := common.InterfaceStatusDown
			if strings.Contains(line, "up") {
				status = common.InterfaceStatusUp
			}
			current = &common.InterfaceRecord{
				Name:     strings.Fields(line)[0],
				Status:   status,
				Counters: make(map[string]uint64),
			}
		case current != nil && strings.Contains(line, "packets input"):
			setCounter(current, common.CounterPacketsIn, packetsInputRegex, line)
		case current != nil && strings.Contains(line, "packets output"):
			setCounter(current, common.CounterPacketsOut, packetsOutputRegex, line)
		}
	}

	if current != nil {
		interfaces = append(interfaces, *current)
	}
	return interfaces
}

func setCounter(record *common.InterfaceRecord, name string, regex *regexp.Regexp, line string) {
	result := regex.FindStringSubmatch(line)
	if result == nil {
		return
	}
	value, err := strconv.ParseUint(result[1], 10, 64)
	if err != nil {
		return
	}
	record.Counters[name] = value
}
