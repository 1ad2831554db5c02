package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkEmpty(t *testing.T) {
	assert.Empty(t, Chunk("", 100, 10))
}

func TestChunkDefaults(t *testing.T) {
	assert := assert.New(t)

	text := strings.Repeat("a", 3000)
	chunks := Chunk(text, DefaultChunkSize, DefaultChunkOverlap)

	assert.Len(chunks, 3)
	assert.Len(chunks[0], 1200)
	assert.Len(chunks[1], 1200)
	assert.Len(chunks[2], 1000)
}

func TestChunkCoverageAndOverlap(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		size    int
		overlap int
	}{
		{"no overlap", 1000, 100, 0},
		{"small overlap", 1234, 100, 10},
		{"half overlap", 777, 50, 25},
		{"shorter than window", 40, 100, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			for i := 0; i < tt.length; i++ {
				b.WriteByte(byte('a' + i%26))
			}
			text := b.String()

			chunks := Chunk(text, tt.size, tt.overlap)
			assert.NotEmpty(t, chunks)

			step := tt.size - tt.overlap
			assert.Len(t, chunks, (tt.length+step-1)/step)

			for i, c := range chunks {
				start := i * step
				end := min(start+tt.size, tt.length)
				assert.Equal(t, text[start:end], c, "chunk %d", i)

				if i < len(chunks)-1 && end < tt.length {
					assert.Equal(t, tt.overlap, end-(start+step), "overlap after chunk %d", i)
				}
			}

			last := chunks[len(chunks)-1]
			assert.True(t, strings.HasSuffix(text, last), "chunks must reach end of text")
		})
	}
}

func TestChunkOverlapNotSmallerThanSize(t *testing.T) {
	assert := assert.New(t)

	text := strings.Repeat("x", 50)

	chunks := Chunk(text, 10, 10)
	assert.Len(chunks, 50, "step falls back to one character")

	chunks = Chunk(text, 10, 500)
	assert.Len(chunks, 50)
	assert.Equal("x", chunks[49])
}

func TestChunkMultibyte(t *testing.T) {
	assert := assert.New(t)

	text := strings.Repeat("é", 25)
	chunks := Chunk(text, 10, 2)

	for _, c := range chunks {
		assert.LessOrEqual(len([]rune(c)), 10)
		assert.True(strings.Trim(c, "é") == "", "chunk must contain whole runes")
	}

	assert.Len(chunks, 4)
}

func TestChunkNonPositiveSize(t *testing.T) {
	assert.Equal(t, []string{"abc"}, Chunk("abc", 0, 0))
}
