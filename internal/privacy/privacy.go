// Package privacy scrubs identifying data from text that leaves the node
// through error telemetry: credentials, aggregator and broker URLs, and
// the hardware addresses of nearby devices.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strings"

	"github.com/tphakala/proxnode/internal/logger"
)

var (
	urlPattern = regexp.MustCompile(`\b(?:https?|mqtts?|tcp|ssl|wss?)://\S+`)
	macPattern = regexp.MustCompile(`(?i)\b([0-9a-f]{2}[:-][0-9a-f]{2}[:-][0-9a-f]{2})[:-][0-9a-f]{2}[:-][0-9a-f]{2}[:-][0-9a-f]{2}\b`)
)

// ScrubMessage replaces URLs with AnonymizeURL, redacts remaining
// credentials and masks hardware addresses with MaskMAC.
func ScrubMessage(message string) string {
	message = urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
	message = logger.RedactSensitiveData(message)
	return macPattern.ReplaceAllStringFunc(message, MaskMAC)
}

// AnonymizeURL returns a stable token for rawURL that keeps the scheme,
// the kind of host and the port, and hashes everything else. Equal URLs
// give equal tokens, so repeated failures still group together.
func AnonymizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		sum := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", sum[:8])
	}

	parts := []string{u.Scheme, categorizeHost(u.Hostname())}
	if p := u.Port(); p != "" {
		parts = append(parts, "port-"+p)
	}
	if path := strings.Trim(u.Path, "/"); path != "" {
		parts = append(parts, path)
	}
	sum := sha256.Sum256([]byte(u.Hostname() + "|" + strings.Join(parts, ":")))
	return fmt.Sprintf("%s://%s/url-%x", u.Scheme, categorizeHost(u.Hostname()), sum[:6])
}

// MaskMAC keeps the vendor prefix of a hardware address and hides the
// device part. Input that is not a MAC address is returned unchanged.
func MaskMAC(addr string) string {
	m := macPattern.FindStringSubmatch(addr)
	if m == nil || m[0] != addr {
		return addr
	}
	return m[1] + ":xx:xx:xx"
}

// categorizeHost replaces a host with its kind.
func categorizeHost(host string) string {
	if host == "localhost" {
		return "localhost"
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		switch {
		case addr.IsLoopback():
			return "localhost"
		case addr.IsPrivate(), addr.IsLinkLocalUnicast():
			return "private-ip"
		default:
			return "public-ip"
		}
	}
	if i := strings.LastIndexByte(host, '.'); i >= 0 && i < len(host)-1 {
		return "domain-" + strings.ToLower(host[i+1:])
	}
	return "unknown-host"
}
