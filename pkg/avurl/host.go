package avurl

import (
	"fmt"
	"net"
	"strings"
	"unicode"
)

// ValidateHost accepts a dotted-quad IPv4, an IPv6 literal or an RFC 1123 hostname.
func ValidateHost(raw string) error {
	switch {
	case looksLikeIPv4(raw):
		if ip := net.ParseIP(raw); ip == nil || ip.To4() == nil {
			return fmt.Errorf("bad IP: '%s'", raw)
		}
	case strings.Contains(raw, ":"):
		if ip := net.ParseIP(raw); ip == nil || ip.To4() != nil {
			return fmt.Errorf("bad IPv6: '%s'", raw)
		}
	default:
		if !validHostname(raw) {
			return fmt.Errorf("bad hostname: '%s'", raw)
		}
	}
	return nil
}

func looksLikeIPv4(raw string) bool {
	octets := strings.Split(raw, ".")
	if len(octets) != 4 {
		return false
	}
	for _, o := range octets {
		if o == "" {
			return false
		}
		for _, r := range o {
			if !unicode.IsDigit(r) {
				return false
			}
		}
	}
	return true
}

func validHostname(raw string) bool {
	if len(raw) > 253 {
		return false
	}
	for _, label := range strings.Split(raw, ".") {
		if len(label) < 1 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-') {
				return false
			}
		}
	}
	return true
}
