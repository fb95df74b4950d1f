// Package avurl parses media URLs the way FFmpeg/GStreamer URI handlers see
// them and reports problems that would only surface once the external engine
// runs the generated pipeline.
package avurl

import (
	"errors"
	"fmt"
	"strconv"
)

type URL struct {
	Scheme   string `json:"scheme"`
	Userinfo string `json:"userinfo"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	Path     string `json:"path"`
}

// Parse splits raw into its components and validates host and port.
func Parse(raw string) (*URL, error) {
	p := split(raw)

	// split/join must round-trip; anything else is a bug in split
	if raw != p.join() {
		return nil, errors.New("unable to parse URL")
	}

	if p.junk != "" {
		return nil, errors.New("invalid URL")
	}

	if p.host != "" {
		if err := ValidateHost(p.host); err != nil {
			return nil, err
		}
	}

	if p.port != "" && !isPort(p.port) {
		return nil, fmt.Errorf("bad port: '%s'", p.port)
	}

	return &URL{
		Scheme:   p.scheme,
		Userinfo: p.userinfo,
		Host:     p.host,
		Port:     p.port,
		Path:     p.path,
	}, nil
}

// isPort reports whether s is a decimal port in 0..65535 without leading zeros.
func isPort(s string) bool {
	if len(s) > 1 && s[0] == '0' {
		return false
	}
	port, err := strconv.Atoi(s)
	if err != nil {
		return false
	}
	return port >= 0 && port <= 65535
}
