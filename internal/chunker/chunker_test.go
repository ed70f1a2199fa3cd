package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcript-rag-backend/models"
)

func TestChunkRejectsBadParams(t *testing.T) {
	_, err := Chunk("some text", 0, 0)
	require.Error(t, err)

	_, err = Chunk("some text", 100, 100)
	require.Error(t, err)

	_, err = Chunk("some text", 100, 150)
	require.Error(t, err)

	_, err = Chunk("some text", 100, -1)
	require.Error(t, err)
}

func TestChunkNormalizesWhitespace(t *testing.T) {
	chunks, err := Chunk("hello\n\n  world\tagain\r\n", 100, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world again", chunks[0])
}

func TestChunkEmptyText(t *testing.T) {
	chunks, err := Chunk("", 100, 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = Chunk("   \n\t  ", 100, 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkShortTextSingleChunk(t *testing.T) {
	chunks, err := Chunk("short transcript", 3000, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short transcript", chunks[0])
}

// A 10,000-character text with no sentence boundaries splits into exactly
// four chunks at size 3000 / overlap 100, and every adjacent pair shares its
// 100-character seam.
func TestChunkCoverageAndOverlap(t *testing.T) {
	text := strings.Repeat("a", 10000)

	chunks, err := Chunk(text, 3000, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	assert.Len(t, chunks[0], 3000)
	assert.Len(t, chunks[1], 3000)
	assert.Len(t, chunks[2], 3000)
	assert.Len(t, chunks[3], 1300)

	for i := 0; i < len(chunks)-1; i++ {
		tail := chunks[i][len(chunks[i])-100:]
		head := chunks[i+1][:100]
		assert.Equal(t, tail, head, "chunks %d and %d must overlap", i, i+1)
	}

	// Total characters equal the text length plus one overlap per seam.
	totalLen := 0
	for _, c := range chunks {
		totalLen += len(c)
	}
	assert.Equal(t, len(text)+3*100, totalLen)
}

// Repeated short sentences at a small chunk size: the run terminates, every
// chunk is non-empty, and every non-final chunk ends at a sentence boundary.
func TestChunkSentenceBoundaries(t *testing.T) {
	text := strings.Repeat("A. B. C. ", 50)

	chunks, err := Chunk(text, 20, 5)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		require.NotEmpty(t, chunk, "chunk %d", i)
		if i < len(chunks)-1 {
			assert.True(t, strings.HasSuffix(chunk, "."), "chunk %d (%q) should end at a sentence boundary", i, chunk)
		}
	}
}

// A period just past the proposed end extends the chunk; one behind the end
// never shrinks it.
func TestChunkBoundaryExtensionOnlyGrows(t *testing.T) {
	text := strings.Repeat("a", 30) + "." + strings.Repeat("a", 30)

	chunks, err := Chunk(text, 25, 5)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Len(t, chunks[0], 31, "first chunk should extend to the period at offset 30")
	assert.True(t, strings.HasSuffix(chunks[0], "."))

	for i, chunk := range chunks {
		assert.GreaterOrEqual(t, len(chunk), 1, "chunk %d", i)
		if i < len(chunks)-1 {
			assert.GreaterOrEqual(t, len(chunk), 25-5, "extension must never shrink a chunk below size minus overlap")
		}
	}
}

// Sizes count runes: a seam landing inside a multi-byte character must not
// split it.
func TestChunkMultiByteSafe(t *testing.T) {
	text := strings.Repeat("é", 40)

	chunks, err := Chunk(text, 5, 1)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		require.True(t, utf8.ValidString(chunk), "chunk %d (%q) must be valid UTF-8", i, chunk)
	}
	assert.Equal(t, 5, utf8.RuneCountInString(chunks[0]))
}

// Stripping each chunk's leading overlap reconstructs the normalized text
// exactly, for multi-byte content with sentence boundaries.
func TestChunkMultiByteCoverage(t *testing.T) {
	text := strings.Repeat("日本語の文があります。", 30)

	chunks, err := Chunk(text, 10, 2)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	rebuilt := []rune(chunks[0])
	for _, chunk := range chunks[1:] {
		require.True(t, utf8.ValidString(chunk))
		runes := []rune(chunk)
		require.Greater(t, len(runes), 2)
		rebuilt = append(rebuilt, runes[2:]...)
	}
	assert.Equal(t, text, string(rebuilt))
}

// A period behind the proposed end must not mask one ahead of it within the
// window.
func TestChunkExtendsPastTrailingPeriod(t *testing.T) {
	text := strings.Repeat("a", 6) + "." + strings.Repeat("a", 5) + "." + strings.Repeat("a", 30)

	chunks, err := Chunk(text, 10, 2)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Equal(t, "aaaaaa.aaaaa.", chunks[0], "the period ahead of the boundary wins even with one behind it")
}

func TestChunkTerminatesOnPathologicalOverlap(t *testing.T) {
	// Overlap one below chunk size is legal but maximally slow; the loop
	// must still finish.
	chunks, err := Chunk(strings.Repeat("x", 50), 5, 4)
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
}

func TestChunkDeterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 200)

	first, err := Chunk(text, 512, 50)
	require.NoError(t, err)
	second, err := Chunk(text, 512, 50)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPolicyParamsFor(t *testing.T) {
	policy := Policy{
		ByType: map[models.DocumentType]Params{
			models.TypeSimulation: {ChunkSize: 3000, Overlap: 100},
		},
		Default: Params{ChunkSize: 512, Overlap: 50},
	}

	assert.Equal(t, Params{ChunkSize: 3000, Overlap: 100}, policy.ParamsFor(models.TypeSimulation))
	assert.Equal(t, Params{ChunkSize: 512, Overlap: 50}, policy.ParamsFor(models.TypeTechnical))
	assert.Equal(t, Params{ChunkSize: 512, Overlap: 50}, policy.ParamsFor(models.TypeTranscript))
}
