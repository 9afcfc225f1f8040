// Package repository persists generated scraper artifacts and resolves them
// by domain or URL. An artifact is executable code stored under
// scrapers/<key>.py, indexed by a metadata object under metadata/<key>.json;
// both live in the tiered blob store.
package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// SchemaVersion is written into every new metadata record.
const SchemaVersion = "1.0"

// ScraperType distinguishes standalone scrapers from the two halves of a
// list/content pipeline.
type ScraperType string

const (
	// TypeSingle extracts fields from one page.
	TypeSingle ScraperType = "single"
	// TypeList extracts article URLs from a listing page.
	TypeList ScraperType = "list"
	// TypeContent extracts fields from an article page of a pipeline.
	TypeContent ScraperType = "content"
)

// Valid reports whether t is one of the known scraper types.
func (t ScraperType) Valid() bool {
	switch t {
	case TypeSingle, TypeList, TypeContent:
		return true
	}
	return false
}

// SelectorEntry is one field/selector pair of a selector map.
type SelectorEntry struct {
	Field string
	Spec  json.RawMessage
}

// SelectorMap is an ordered mapping from field name to selector spec. Order
// matters: the metadata `fields` list reproduces it, and generated scrapers
// emit fields in the same sequence. It marshals as a JSON object whose keys
// keep insertion order.
type SelectorMap []SelectorEntry

// NewSelectorMap builds a selector map from alternating field names and
// plain string selector specs.
func NewSelectorMap(pairs ...string) SelectorMap {
	if len(pairs)%2 != 0 {
		panic("NewSelectorMap requires field/selector pairs")
	}
	m := make(SelectorMap, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		spec, _ := json.Marshal(pairs[i+1])
		m = append(m, SelectorEntry{Field: pairs[i], Spec: spec})
	}
	return m
}

// Fields returns the field names in insertion order.
func (m SelectorMap) Fields() []string {
	fields := make([]string, 0, len(m))
	for _, e := range m {
		fields = append(fields, e.Field)
	}
	return fields
}

// MarshalJSON renders the map as a JSON object preserving entry order.
func (m SelectorMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Field)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(e.Spec) == 0 {
			buf.WriteString("null")
		} else {
			buf.Write(e.Spec)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping keys in document order.
func (m *SelectorMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("selectors: expected JSON object")
	}

	var entries SelectorMap
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("selectors: expected string key")
		}
		var spec json.RawMessage
		if err := dec.Decode(&spec); err != nil {
			return err
		}
		entries = append(entries, SelectorEntry{Field: key, Spec: spec})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = entries
	return nil
}

// ScraperMetadata is the index record stored alongside every artifact.
// Field order mirrors the persisted JSON layout.
type ScraperMetadata struct {
	Domain        string      `json:"domain"`
	SiteName      string      `json:"site_name"`
	ScraperType   ScraperType `json:"scraper_type"`
	URLPattern    string      `json:"url_pattern"`
	ExampleURL    string      `json:"example_url"`
	Fields        []string    `json:"fields"`
	Selectors     SelectorMap `json:"selectors"`
	CreatedAt     time.Time   `json:"created_at"`
	LastValidated time.Time   `json:"last_validated"`
	Version       string      `json:"version"`
}

// LookupDomain returns the domain in the form resolver lookups expect:
// the list and content halves of a pipeline carry their type suffix, a
// single-page scraper is the bare domain.
func (m ScraperMetadata) LookupDomain() string {
	if m.ScraperType == TypeList || m.ScraperType == TypeContent {
		return m.Domain + "_" + string(m.ScraperType)
	}
	return m.Domain
}

// MatchesURL tests url against the record's pattern, anchored at the start.
// An empty pattern never matches.
func (m ScraperMetadata) MatchesURL(url string) bool {
	if m.URLPattern == "" {
		return false
	}
	re, err := regexp.Compile(`\A(?:` + m.URLPattern + `)`)
	if err != nil {
		return false
	}
	return re.MatchString(url)
}

// htmlEscapeUndo reverses the escaping encoding/json applies when it
// compacts MarshalJSON output. SetEscapeHTML does not reach that path, so
// selector specs routed through SelectorMap would otherwise persist with
// \u003c style sequences.
var htmlEscapeUndo = strings.NewReplacer(
	`\u003c`, "<",
	`\u003e`, ">",
	`\u0026`, "&",
)

// EncodeMetadata renders a metadata record as pretty-printed UTF-8 JSON.
// HTML escaping is disabled so selectors like "a > .title" and non-ASCII
// site names survive as literal characters.
func EncodeMetadata(m ScraperMetadata) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode metadata for %s: %w", m.Domain, err)
	}
	return []byte(htmlEscapeUndo.Replace(buf.String())), nil
}

// DecodeMetadata parses a stored metadata object.
func DecodeMetadata(data []byte) (ScraperMetadata, error) {
	var m ScraperMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return ScraperMetadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}
