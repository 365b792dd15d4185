package scanner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tphakala/proxnode/internal/observation"
)

const cwlapPrefix = "+CWLAP:"

// parseCWLAP parses one ESP-AT access point line:
//
//	+CWLAP:(<ecn>,"<ssid>",<rssi>,"<mac>",<channel>,...)
//
// Quoted fields may contain backslash-escaped quotes, commas and
// backslashes.
func parseCWLAP(line string) (observation.Observation, error) {
	body, ok := strings.CutPrefix(strings.TrimSpace(line), cwlapPrefix)
	if !ok {
		return observation.Observation{}, fmt.Errorf("not a CWLAP line: %q", line)
	}
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "(") || !strings.HasSuffix(body, ")") {
		return observation.Observation{}, fmt.Errorf("malformed CWLAP line: %q", line)
	}

	fields, err := splitATFields(body[1 : len(body)-1])
	if err != nil {
		return observation.Observation{}, fmt.Errorf("malformed CWLAP line %q: %w", line, err)
	}
	if len(fields) < 5 {
		return observation.Observation{}, fmt.Errorf("CWLAP line has %d fields, need 5: %q", len(fields), line)
	}

	rssi, err := strconv.Atoi(fields[2])
	if err != nil {
		return observation.Observation{}, fmt.Errorf("bad rssi %q: %w", fields[2], err)
	}
	channel, err := strconv.Atoi(fields[4])
	if err != nil {
		return observation.Observation{}, fmt.Errorf("bad channel %q: %w", fields[4], err)
	}

	return observation.Observation{
		BSSID:   fields[3],
		SSID:    fields[1],
		RSSI:    rssi,
		Channel: channel,
	}.Normalize(), nil
}

// splitATFields splits a comma separated AT response, unquoting quoted
// fields.
func splitATFields(s string) ([]string, error) {
	var (
		fields  []string
		cur     strings.Builder
		inQuote bool
		escaped bool
	)

	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && inQuote:
			escaped = true
		case r == '"':
			inQuote = !inQuote
		case r == ',' && !inQuote:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote || escaped {
		return nil, fmt.Errorf("unterminated quoted field")
	}
	fields = append(fields, strings.TrimSpace(cur.String()))
	return fields, nil
}
