package avurl

import "strings"

// parts is the raw decomposition of a media URL plus the punctuation needed
// to re-join it byte-for-byte.
type parts struct {
	scheme   string
	userinfo string
	host     string
	port     string
	path     string // path, query and fragment, leading delimiter included

	hasScheme bool
	slashes   int
	hasAt     bool
	brackets  bool
	hasPort   bool
	junk      string // text between ']' and the path
}

// split decomposes raw the way FFmpeg's av_url_split does, without its
// buffer truncation. The port is kept verbatim ("123abc" stays "123abc").
func split(raw string) (p parts) {
	colon := strings.IndexByte(raw, ':')
	if colon == -1 {
		// Bare path or filename.
		p.path = raw
		return
	}

	p.hasScheme = true
	p.scheme = raw[:colon]
	i := colon + 1
	for n := 0; n < 2 && i < len(raw) && raw[i] == '/'; n++ {
		p.slashes++
		i++
	}
	if i == len(raw) {
		return
	}

	end := i + strcspn(raw[i:], "/?#")
	p.path = raw[end:]
	if end == i {
		return
	}

	// userinfo runs up to the last '@' inside the authority
	for {
		at := strings.IndexByte(raw[i:end], '@')
		if at == -1 {
			break
		}
		p.hasAt = true
		p.userinfo = raw[colon+1+p.slashes : i+at]
		i += at + 1
		if i == len(raw) {
			return
		}
	}

	authority := raw[i:end]
	switch {
	case strings.HasPrefix(authority, "[") && strings.IndexByte(authority, ']') != -1:
		p.brackets = true
		rb := strings.IndexByte(authority, ']')
		p.host = authority[1:rb]
		rest := authority[rb+1:]
		if strings.HasPrefix(rest, ":") {
			p.hasPort = true
			p.port = rest[1:]
		} else {
			p.junk = rest
		}
	case strings.IndexByte(authority, ':') != -1:
		c := strings.IndexByte(authority, ':')
		p.hasPort = true
		p.host = authority[:c]
		p.port = authority[c+1:]
	default:
		p.host = authority
	}
	return
}

// join is the inverse of split.
func (p parts) join() string {
	var b strings.Builder
	b.WriteString(p.scheme)
	if p.hasScheme {
		b.WriteByte(':')
	}
	b.WriteString(strings.Repeat("/", p.slashes))
	b.WriteString(p.userinfo)
	if p.hasAt {
		b.WriteByte('@')
	}
	if p.brackets {
		b.WriteString("[" + p.host + "]")
	} else {
		b.WriteString(p.host)
	}
	if p.hasPort {
		b.WriteByte(':')
	}
	b.WriteString(p.port)
	b.WriteString(p.junk)
	b.WriteString(p.path)
	return b.String()
}

func strcspn(s, reject string) int {
	if idx := strings.IndexAny(s, reject); idx != -1 {
		return idx
	}
	return len(s)
}
