// Package chunker splits extracted document text into overlapping windows.
package chunker

const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 200
)

// Chunk splits text into windows of size characters, each starting
// size-overlap characters after the previous one. The step never drops
// below one character, so an overlap at or above size still terminates.
func Chunk(text string, size, overlap int) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	if size <= 0 {
		return []string{text}
	}

	if overlap < 0 {
		overlap = 0
	}

	chunks := make([]string, 0, n/size+1)

	start := 0
	for start < n {
		end := start + size
		if end > n {
			end = n
		}

		chunks = append(chunks, string(runes[start:end]))

		start = max(start+size-overlap, start+1)
	}

	return chunks
}
