package fetch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/autoscraper/scrapervault/internal/repository"
)

// maxSampleLength bounds the text captured per match in a probe report.
const maxSampleLength = 120

// SelectorProbe is one field's CSS extraction rule. Specs stored as a bare
// string mean "text of the first match"; object specs may name an attribute
// and ask for all matches.
type SelectorProbe struct {
	Field     string
	Selector  string
	Attribute string
	All       bool
}

// SelectorResult reports how a probe fared against a document.
type SelectorResult struct {
	Field    string   `json:"field"`
	Selector string   `json:"selector"`
	Matches  int      `json:"matches"`
	Samples  []string `json:"samples,omitempty"`
	Error    string   `json:"error,omitempty"`
}

type objectSpec struct {
	Selector  string `json:"selector"`
	Attribute string `json:"attribute"`
	All       bool   `json:"all"`
}

// ParseProbe decodes a stored selector spec into a probe.
func ParseProbe(field string, raw json.RawMessage) (SelectorProbe, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return SelectorProbe{}, fmt.Errorf("selector for field %q is empty", field)
	}
	if trimmed[0] == '"' {
		var selector string
		if err := json.Unmarshal(trimmed, &selector); err != nil {
			return SelectorProbe{}, fmt.Errorf("selector for field %q: %w", field, err)
		}
		return SelectorProbe{Field: field, Selector: selector}, nil
	}

	var spec objectSpec
	if err := json.Unmarshal(trimmed, &spec); err != nil {
		return SelectorProbe{}, fmt.Errorf("selector for field %q: %w", field, err)
	}
	if spec.Selector == "" {
		return SelectorProbe{}, fmt.Errorf("selector for field %q has no selector key", field)
	}
	return SelectorProbe{
		Field:     field,
		Selector:  spec.Selector,
		Attribute: spec.Attribute,
		All:       spec.All,
	}, nil
}

// ProbeSelectors runs every selector in the map against the document body
// and reports match counts and sample values in the map's field order.
// Individual selector problems land in the per-field result, not the error.
func ProbeSelectors(body []byte, selectors repository.SelectorMap) ([]SelectorResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	results := make([]SelectorResult, 0, len(selectors))
	for _, entry := range selectors {
		probe, err := ParseProbe(entry.Field, entry.Spec)
		if err != nil {
			results = append(results, SelectorResult{
				Field: entry.Field,
				Error: err.Error(),
			})
			continue
		}
		results = append(results, runProbe(doc, probe))
	}
	return results, nil
}

func runProbe(doc *goquery.Document, probe SelectorProbe) SelectorResult {
	result := SelectorResult{
		Field:    probe.Field,
		Selector: probe.Selector,
	}

	sel := doc.Find(probe.Selector)
	result.Matches = sel.Length()
	if result.Matches == 0 {
		return result
	}

	limit := 1
	if probe.All {
		limit = result.Matches
	}
	sel.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= limit {
			return false
		}
		result.Samples = append(result.Samples, sampleValue(s, probe.Attribute))
		return true
	})
	return result
}

func sampleValue(s *goquery.Selection, attribute string) string {
	var value string
	if attribute != "" {
		value, _ = s.Attr(attribute)
	} else {
		value = s.Text()
	}
	value = strings.TrimSpace(value)
	if len(value) > maxSampleLength {
		value = value[:maxSampleLength]
	}
	return value
}
