package knowledge

import (
	"fmt"
	"maps"
	"strconv"

	"github.com/tmc/langchaingo/textsplitter"
)

// Chunking defaults.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Separators tried in order by the recursive splitter.
var Separators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// Splitter cuts documents into overlapping chunks.
type Splitter struct {
	inner textsplitter.RecursiveCharacter
}

// NewSplitter builds a recursive character splitter measuring length in
// runes.
func NewSplitter(size, overlap int) *Splitter {
	return &Splitter{inner: textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators(Separators),
	)}
}

// Split returns one document per chunk. Each chunk carries a copy of the
// source metadata plus its chunk index. IDs are derived from doc.ID when set.
func (s *Splitter) Split(doc Document) ([]Document, error) {
	parts, err := s.inner.SplitText(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}
	out := make([]Document, 0, len(parts))
	for i, p := range parts {
		meta := maps.Clone(doc.Metadata)
		if meta == nil {
			meta = map[string]string{}
		}
		meta[MetaChunk] = strconv.Itoa(i)
		chunk := Document{Content: p, Metadata: meta}
		if doc.ID != "" {
			chunk.ID = fmt.Sprintf("%s-c%d", doc.ID, i)
		}
		out = append(out, chunk)
	}
	return out, nil
}
