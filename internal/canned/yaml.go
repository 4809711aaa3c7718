package canned

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileCatalog struct {
	Messages []Message `yaml:"messages"`
}

// FileSource reads canned messages from a YAML file:
//
//	messages:
//	  - id: welcome
//	    title: Welcome
//	    shortcut: wel
//	    body: "Welcome! How can I help?"
//	    active: true
type FileSource struct {
	path string
}

// NewFileSource creates a YAML-backed source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// List implements Source. A missing file yields an empty catalog.
func (s *FileSource) List(ctx context.Context, opts ListOptions) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read canned file: %w", err)
	}
	items, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return filterActive(items, opts), nil
}

// ParseYAML decodes and validates a canned-message document. Messages
// without an ID get one derived from their shortcut or title.
func ParseYAML(data []byte) ([]Message, error) {
	var doc fileCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse canned yaml: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Messages))
	for i := range doc.Messages {
		m := &doc.Messages[i]
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("message %d: %w", i+1, err)
		}
		if m.ID == "" {
			m.ID = slug(m.Shortcut, m.Title)
		}
		if _, dup := seen[m.ID]; dup {
			return nil, fmt.Errorf("message %d: duplicate id %q", i+1, m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return doc.Messages, nil
}

// EncodeYAML renders messages in the file format read by FileSource.
func EncodeYAML(items []Message) ([]byte, error) {
	return yaml.Marshal(fileCatalog{Messages: items})
}

func slug(candidates ...string) string {
	for _, c := range candidates {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		var b strings.Builder
		for _, r := range c {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
				b.WriteRune(r)
			case r == ' ', r == '-', r == '_':
				b.WriteRune('-')
			}
		}
		if s := strings.Trim(b.String(), "-"); s != "" {
			return s
		}
	}
	return "message"
}
