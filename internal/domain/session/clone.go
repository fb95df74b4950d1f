package session

// Clone returns a deep copy of the receiver. Slices are reallocated so the
// copy can be mutated without touching the original.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.VideoPlaylist = cloneStrings(s.VideoPlaylist)
	out.AudioPlaylist = cloneStrings(s.AudioPlaylist)
	if s.Destinations != nil {
		out.Destinations = make([]Destination, len(s.Destinations))
		copy(out.Destinations, s.Destinations)
	}
	return &out
}

// --- helpers ---

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
