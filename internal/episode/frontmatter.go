package episode

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const separator = "---"

// ErrNoFrontMatter is returned by Parse when the document has no opening separator.
var ErrNoFrontMatter = errors.New("front matter: missing opening separator")

// Marshal encodes the episode as a YAML front-matter block followed by its body.
func Marshal(e *Episode) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(separator + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(e); err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}

	buf.WriteString(separator + "\n")
	buf.WriteString(strings.TrimLeft(e.Body, "\r\n"))
	return buf.Bytes(), nil
}

// Parse decodes a front-matter document. Leading blank lines of the body are dropped.
func Parse(data []byte) (*Episode, error) {
	text := strings.TrimPrefix(string(data), "\ufeff")

	first, rest, ok := cutLine(text)
	if !ok || strings.TrimSpace(first) != separator {
		return nil, ErrNoFrontMatter
	}

	var header strings.Builder
	for {
		line, next, more := cutLine(rest)
		if strings.TrimRight(line, "\r") == separator {
			rest = next
			break
		}
		if !more {
			return nil, errors.New("front matter: missing closing separator")
		}
		header.WriteString(line)
		header.WriteByte('\n')
		rest = next
	}

	e := &Episode{}
	if err := yaml.Unmarshal([]byte(header.String()), e); err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}
	e.Body = strings.TrimLeft(rest, "\r\n")
	return e, nil
}

// cutLine splits s at the first newline. more is false when s had no newline.
func cutLine(s string) (line, rest string, more bool) {
	line, rest, more = strings.Cut(s, "\n")
	if !more && line == "" {
		return "", "", false
	}
	return line, rest, true
}
