package fetch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoscraper/scrapervault/internal/repository"
)

const sampleHTML = `<html><body>
<h1 class="title">  Carbonara  </h1>
<ul class="ingredients">
  <li>Eggs</li>
  <li>Guanciale</li>
  <li>Pecorino</li>
</ul>
<a class="recipe-link" href="/recipes/1">One</a>
<a class="recipe-link" href="/recipes/2">Two</a>
</body></html>`

func TestParseProbe(t *testing.T) {
	probe, err := ParseProbe("title", json.RawMessage(`"h1.title"`))
	require.NoError(t, err)
	assert.Equal(t, SelectorProbe{Field: "title", Selector: "h1.title"}, probe)

	probe, err = ParseProbe("links", json.RawMessage(`{"selector": "a.recipe-link", "attribute": "href", "all": true}`))
	require.NoError(t, err)
	assert.Equal(t, "a.recipe-link", probe.Selector)
	assert.Equal(t, "href", probe.Attribute)
	assert.True(t, probe.All)

	_, err = ParseProbe("bad", json.RawMessage(`{"attribute": "href"}`))
	require.Error(t, err)

	_, err = ParseProbe("empty", json.RawMessage(``))
	require.Error(t, err)
}

func TestProbeSelectors(t *testing.T) {
	selectors := repository.SelectorMap{
		{Field: "title", Spec: json.RawMessage(`"h1.title"`)},
		{Field: "ingredients", Spec: json.RawMessage(`{"selector": ".ingredients li", "all": true}`)},
		{Field: "links", Spec: json.RawMessage(`{"selector": "a.recipe-link", "attribute": "href", "all": true}`)},
		{Field: "missing", Spec: json.RawMessage(`".does-not-exist"`)},
	}

	results, err := ProbeSelectors([]byte(sampleHTML), selectors)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "title", results[0].Field)
	assert.Equal(t, 1, results[0].Matches)
	assert.Equal(t, []string{"Carbonara"}, results[0].Samples)

	assert.Equal(t, 3, results[1].Matches)
	assert.Equal(t, []string{"Eggs", "Guanciale", "Pecorino"}, results[1].Samples)

	assert.Equal(t, []string{"/recipes/1", "/recipes/2"}, results[2].Samples)

	assert.Equal(t, 0, results[3].Matches)
	assert.Empty(t, results[3].Samples)
}

func TestProbeSelectorsFirstMatchOnly(t *testing.T) {
	selectors := repository.SelectorMap{
		{Field: "link", Spec: json.RawMessage(`{"selector": "a.recipe-link", "attribute": "href"}`)},
	}
	results, err := ProbeSelectors([]byte(sampleHTML), selectors)
	require.NoError(t, err)

	assert.Equal(t, 2, results[0].Matches)
	assert.Equal(t, []string{"/recipes/1"}, results[0].Samples)
}

func TestProbeSelectorsBadSpecIsPerField(t *testing.T) {
	selectors := repository.SelectorMap{
		{Field: "broken", Spec: json.RawMessage(`{"attribute": "href"}`)},
		{Field: "title", Spec: json.RawMessage(`"h1.title"`)},
	}
	results, err := ProbeSelectors([]byte(sampleHTML), selectors)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.NotEmpty(t, results[0].Error)
	assert.Equal(t, 1, results[1].Matches)
}
