// Package episode defines the durable episode record and the derivations
// (slug, excerpt) computed from its fields.
package episode

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Episode is the local, durable record of one podcast episode.
// Field order is the key order of the stored front matter.
type Episode struct {
	// Number is the sequence number assigned while paging the catalog.
	Number int `yaml:"number" json:"number"`

	// Identifier is the archive item key; one record per identifier.
	Identifier string `yaml:"identifier" json:"identifier"`

	Title   string     `yaml:"title" json:"title"`
	Subject StringList `yaml:"subject" json:"subject"`

	// Downloads is the only field updated after creation.
	Downloads uint64 `yaml:"downloads" json:"downloads"`

	// Filename is the original audio file name inside the archive item.
	Filename string `yaml:"filename" json:"filename"`

	// Datetime is the catalog publish date.
	Datetime time.Time `yaml:"datetime" json:"datetime"`

	Version int `yaml:"version" json:"version"`

	// Size is the audio size in bytes.
	Size int64 `yaml:"size" json:"size"`

	// Length is the audio duration in whole seconds.
	Length int64 `yaml:"length" json:"length"`

	// Mtime is the audio modification time (unix seconds) from the manifest.
	Mtime int64 `yaml:"mtime,omitempty" json:"mtime,omitempty"`

	Excerpt string `yaml:"excerpt" json:"excerpt"`
	Slug    string `yaml:"slug" json:"slug"`

	// Body is the free text after the front matter.
	Body string `yaml:"-" json:"body,omitempty"`
}

// FileName returns the canonical record file name for the episode.
func (e *Episode) FileName() string {
	return FileNameFor(e.Identifier)
}

// FileNameFor returns the canonical record file name for identifier.
func FileNameFor(identifier string) string {
	return identifier + ".md"
}

// Derive fills slug and excerpt when they are absent.
// Reports whether anything was computed.
func (e *Episode) Derive() bool {
	changed := false
	if e.Slug == "" {
		e.Slug = Slugify(e.Title)
		changed = e.Slug != ""
	}
	if e.Excerpt == "" {
		e.Excerpt = Excerpt(e.Body)
		changed = changed || e.Excerpt != ""
	}
	return changed
}

// StringList decodes from either a single string or a list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*s = nil
			return nil
		}
		*s = StringList{value.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("subject: expected string or list, got %v", value.Tag)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = StringList{one}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("subject: expected string or list: %w", err)
	}
	*s = list
	return nil
}
