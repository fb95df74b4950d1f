package session

import "strings"

// Slug returns a file-name friendly form of the session name: lower case
// ASCII letters and digits separated by single dashes. Names that yield
// nothing fall back to "session-" plus the first 8 characters of the ID.
func (s *Session) Slug() string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s.Name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			dash = false
			sb.WriteRune(r)
		default:
			dash = true
		}
	}
	if sb.Len() > 0 {
		return sb.String()
	}
	id := s.ID
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		return "session"
	}
	return "session-" + id
}
