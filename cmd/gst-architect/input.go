package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edirooss/gst-architect/internal/domain/session"
)

// loadSessions reads a YAML or JSON file holding either one session or a
// {sessions: [...]} document. Omitted fields take the editor defaults.
func loadSessions(path string) ([]*session.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSessions(data)
}

func parseSessions(data []byte) ([]*session.Session, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse sessions: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, errors.New("parse sessions: empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("parse sessions: expected a mapping")
	}

	var nodes []*yaml.Node
	if list := mappingValue(root, "sessions"); list != nil {
		if list.Kind != yaml.SequenceNode {
			return nil, errors.New("parse sessions: sessions must be a list")
		}
		nodes = list.Content
	} else {
		nodes = []*yaml.Node{root}
	}
	if len(nodes) == 0 {
		return nil, errors.New("parse sessions: no sessions")
	}

	out := make([]*session.Session, 0, len(nodes))
	for i, n := range nodes {
		s := session.New(fmt.Sprintf("Session %d", i+1))
		if err := n.Decode(s); err != nil {
			return nil, fmt.Errorf("sessions[%d]: %w", i, err)
		}
		dests, err := parseDestinations(mappingValue(n, "destinations"))
		if err != nil {
			return nil, fmt.Errorf("sessions[%d]: %w", i, err)
		}
		if dests != nil {
			s.Destinations = dests
		}
		out = append(out, s)
	}
	return out, nil
}

// parseDestinations decodes each destination over an active one with a
// fresh ID. A nil node leaves the session defaults in place.
func parseDestinations(list *yaml.Node) ([]session.Destination, error) {
	if list == nil {
		return nil, nil
	}
	if list.Tag == "!!null" {
		return []session.Destination{}, nil
	}
	if list.Kind != yaml.SequenceNode {
		return nil, errors.New("destinations must be a list")
	}
	out := make([]session.Destination, 0, len(list.Content))
	for i, n := range list.Content {
		d := session.NewDestination("New Destination", "rtmp://", "")
		if err := n.Decode(&d); err != nil {
			return nil, fmt.Errorf("destinations[%d]: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// validateAll rejects the first invalid session.
func validateAll(sessions []*session.Session) error {
	for i, s := range sessions {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("sessions[%d] %q: %w", i, s.Name, err)
		}
	}
	return nil
}

// loadValid is loadSessions followed by validateAll.
func loadValid(path string) ([]*session.Session, error) {
	sessions, err := loadSessions(path)
	if err != nil {
		return nil, err
	}
	if err := validateAll(sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
