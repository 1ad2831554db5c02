package groundrag

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flarexio/groundrag/vector"
)

func TestBuildReportJSONUnmarshal(t *testing.T) {
	assert := assert.New(t)

	input := `{
		"discovered": 3,
		"indexed": 2,
		"skipped": 1,
		"chunks": 7,
		"elapsed": "1.5s"
	}`

	var report BuildReport
	if err := json.Unmarshal([]byte(input), &report); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(3, report.Discovered)
	assert.Equal(7, report.Chunks)
	assert.Equal(1500*time.Millisecond, report.Elapsed.Duration())

	bs, err := json.Marshal(&report)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Contains(string(bs), `"elapsed":"1.5s"`)
}

func TestChunkDocumentRoundTrip(t *testing.T) {
	assert := assert.New(t)

	chunk := Chunk{
		ID:         ChunkID("guide", 2),
		DocumentID: "guide",
		Source:     "guide.pdf",
		Index:      2,
		Text:       "chunk text",
	}

	doc := ChunkToDocument(chunk)
	assert.Equal("guide_2", doc.ID)
	assert.Equal("guide.pdf", doc.Metadata[MetadataSource])

	doc.Similarity = 0.5

	result := DocumentToResult(doc)
	assert.Equal(Result{Text: "chunk text", Source: "guide.pdf", Chunk: 2, Similarity: 0.5}, result)
}

func TestDocumentToResultWithoutMetadata(t *testing.T) {
	result := DocumentToResult(vector.Document{ID: "x_0", Content: "text"})

	assert.Equal(t, "", result.Source)
	assert.Equal(t, 0, result.Chunk)
}

func TestExcerpt(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("abc", Excerpt("  abc \n", 10))
	assert.Equal("ab", Excerpt("abc", 2))
	assert.Equal("héll", Excerpt("héllo", 4))
	assert.Equal("abc", Excerpt("abc", 0))
}

func TestFormatCitations(t *testing.T) {
	assert := assert.New(t)

	results := []Result{
		{Text: "first excerpt", Source: "a.pdf"},
		{Text: "  second excerpt  ", Source: "b.pdf"},
		{Text: "third"},
	}

	expected := "[1] Source: a.pdf\nfirst excerpt\n\n" +
		"[2] Source: b.pdf\nsecond excerpt\n\n" +
		"[3] Source: unknown\nthird"

	assert.Equal(expected, FormatCitations(results, 1500))
}

func TestFormatCitationsTruncates(t *testing.T) {
	results := []Result{
		{Text: strings.Repeat("x", 2000), Source: "long.pdf"},
	}

	text := FormatCitations(results, DefaultExcerptLimit)

	assert.Equal(t, len("[1] Source: long.pdf\n")+DefaultExcerptLimit, len(text))
}
