// Package chunker splits transcript text into overlapping chunks for
// embedding. Chunk boundaries prefer sentence ends when one is close by.
package chunker

import (
	"fmt"
	"strings"

	"transcript-rag-backend/models"
)

// boundaryWindow is how far ahead of a proposed chunk end the chunker looks
// for a sentence-ending period.
const boundaryWindow = 20

// Params are the chunking knobs for one document type.
type Params struct {
	ChunkSize int
	Overlap   int
}

// Policy maps document types to chunking parameters. Types without an entry
// use Default.
type Policy struct {
	ByType  map[models.DocumentType]Params
	Default Params
}

// ParamsFor returns the parameters for the given document type.
func (p Policy) ParamsFor(t models.DocumentType) Params {
	if params, ok := p.ByType[t]; ok {
		return params
	}
	return p.Default
}

// Chunk splits text into chunks of roughly chunkSize characters, each
// overlapping the previous by overlap characters. Whitespace runs are
// collapsed to single spaces first, so newlines and tabs never influence
// boundaries. Sizes and offsets count runes, not bytes, so multi-byte text
// is never split mid-character.
//
// A non-final chunk is extended to end just after a period found within
// boundaryWindow characters ahead of its proposed end. Extension only ever
// grows a chunk; a period behind the proposed end never shrinks one.
func Chunk(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap %d must be in [0, %d)", overlap, chunkSize)
	}

	cleaned := []rune(strings.Join(strings.Fields(text), " "))
	if len(cleaned) == 0 {
		return nil, nil
	}

	var chunks []string
	start := 0
	for {
		end := start + chunkSize
		if end >= len(cleaned) {
			chunks = append(chunks, string(cleaned[start:]))
			return chunks, nil
		}

		end = sentenceEnd(cleaned, end)
		if end >= len(cleaned) {
			chunks = append(chunks, string(cleaned[start:]))
			return chunks, nil
		}

		chunks = append(chunks, string(cleaned[start:end]))
		start = end - overlap
	}
}

// sentenceEnd looks for the first period in [end, end+boundaryWindow) and
// returns the offset just past it. Returns end when none is close enough.
func sentenceEnd(text []rune, end int) int {
	to := end + boundaryWindow
	if to > len(text) {
		to = len(text)
	}
	for i := end; i < to; i++ {
		if text[i] == '.' {
			return i + 1
		}
	}
	return end
}
