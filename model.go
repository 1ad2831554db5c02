package groundrag

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flarexio/groundrag/vector"
)

var (
	ErrCorpusNotFound = errors.New("corpus directory not found")
	ErrInvalidQuery   = errors.New("invalid query")
	ErrVectorDBNotSet = errors.New("vector database not set")
	ErrServiceClosed  = errors.New("service closed")
)

const (
	MetadataSource = "source"
	MetadataChunk  = "chunk"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateBuilding      State = "building"
	StateReady         State = "ready"
)

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

// Chunk is a window of a document's text, the unit of embedding and retrieval.
type Chunk struct {
	ID         string
	DocumentID string
	Source     string
	Index      int
	Text       string
}

// ChunkID is stable for a given document and sequence number, which is what
// makes re-indexing idempotent.
func ChunkID(docID string, seq int) string {
	return docID + "_" + strconv.Itoa(seq)
}

func ChunkToDocument(chunk Chunk) vector.Document {
	return vector.Document{
		ID:      chunk.ID,
		Content: chunk.Text,
		Metadata: map[string]string{
			MetadataSource: chunk.Source,
			MetadataChunk:  strconv.Itoa(chunk.Index),
		},
	}
}

type Result struct {
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	Chunk      int     `json:"chunk"`
	Similarity float32 `json:"similarity"`
}

func DocumentToResult(doc vector.Document) Result {
	result := Result{
		Text:       doc.Content,
		Source:     doc.Metadata[MetadataSource],
		Similarity: doc.Similarity,
	}

	if n, err := strconv.Atoi(doc.Metadata[MetadataChunk]); err == nil {
		result.Chunk = n
	}

	return result
}

type BuildReport struct {
	Discovered int      `json:"discovered"`
	Indexed    int      `json:"indexed"`
	Skipped    int      `json:"skipped"`
	Empty      int      `json:"empty"`
	Failed     []string `json:"failed,omitempty"`
	Chunks     int      `json:"chunks"`
	Elapsed    Duration `json:"elapsed"`
}

type Status struct {
	State     State        `json:"state"`
	CorpusDir string       `json:"corpus_dir,omitempty"`
	IndexDir  string       `json:"index_dir,omitempty"`
	Entries   int          `json:"entries"`
	LastBuild *BuildReport `json:"last_build,omitempty"`
}

// Excerpt trims text and cuts it to at most limit characters.
func Excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 {
		return text
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit])
}

// FormatCitations renders results as a numbered list of sources and excerpts.
func FormatCitations(results []Result, limit int) string {
	entries := make([]string, len(results))
	for i, result := range results {
		source := result.Source
		if source == "" {
			source = "unknown"
		}

		entries[i] = fmt.Sprintf("[%d] Source: %s\n%s", i+1, source, Excerpt(result.Text, limit))
	}

	return strings.Join(entries, "\n\n")
}
