package avurl

import (
	"fmt"
	"strings"
)

// rtmp2sink only speaks RTMP(S).
var sinkSchemes = map[string]struct{}{
	"rtmp":  {},
	"rtmps": {},
}

// CheckSink returns human-readable warnings for an RTMP sink base URL.
// An empty result means nothing looked wrong; it never blocks generation.
func CheckSink(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{"url is empty"}
	}
	u, err := Parse(raw)
	if err != nil {
		return []string{fmt.Sprintf("url does not parse: %s", err)}
	}

	var warns []string
	switch {
	case u.Scheme == "":
		warns = append(warns, "url has no scheme")
	default:
		if _, ok := sinkSchemes[strings.ToLower(u.Scheme)]; !ok {
			warns = append(warns, fmt.Sprintf("scheme %q is not supported by rtmp2sink", u.Scheme))
		}
	}
	if u.Host == "" {
		warns = append(warns, "url has no host")
	}
	if strings.HasSuffix(u.Path, "/") {
		warns = append(warns, "url ends with '/', sink address will contain '//'")
	}
	return warns
}

// CheckSource returns warnings for a playlist entry consumed by uridecodebin,
// which requires an absolute URI.
func CheckSource(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{"uri is empty"}
	}
	u, err := Parse(raw)
	if err != nil {
		return []string{fmt.Sprintf("uri does not parse: %s", err)}
	}
	if u.Scheme == "" {
		return []string{"uri has no scheme (uridecodebin needs e.g. file:///, http://, rtmp://)"}
	}
	if u.Scheme != "file" && u.Host == "" {
		return []string{fmt.Sprintf("%s uri has no host", u.Scheme)}
	}
	return nil
}
