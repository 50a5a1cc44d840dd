// Package knowledge is the RAG knowledge base: a chromem-go vector
// collection of methodology chunks, JSONL ingestion, a bounded query cache
// and the helpers that turn search hits into prompt context.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/abhisek/riskbot/internal/llm"
)

// DefaultCollection is the collection holding the methodology chunks.
const DefaultCollection = "bank_risk_methodology"

// Metadata keys written at ingestion.
const (
	MetaType            = "type"
	MetaSource          = "source"
	MetaLine            = "line_number"
	MetaTopic           = "topic"
	MetaDifficulty      = "difficulty"
	MetaRelatedQuestion = "related_question"
	MetaChunk           = "chunk"
)

// Document types.
const (
	TypeQuestion = "question"
	TypeAnswer   = "answer"
	TypeQAPair   = "qa_pair"
)

// SourceMethodology marks documents ingested from the methodology file.
const SourceMethodology = "methodology_jsonl"

// Document is a text chunk with string metadata.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
	// Similarity is set on search results only.
	Similarity float32
}

// Searcher finds documents similar to a query. filter matches metadata
// exactly and may be nil.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, filter map[string]string) ([]Document, error)
}

// Store is a chromem-go backed knowledge collection.
type Store struct {
	db         *chromem.DB
	name       string
	embed      chromem.EmbeddingFunc
	collection *chromem.Collection
	splitter   *Splitter
	logger     *slog.Logger
}

// Options configures Open.
type Options struct {
	// Path is the persistence directory. Empty keeps the store in memory.
	Path       string
	Collection string
	Embed      llm.EmbedFunc
	Splitter   *Splitter
	Logger     *slog.Logger
}

// Open opens or creates the collection. Persistent stores are gzip
// compressed.
func Open(opts Options) (*Store, error) {
	if opts.Embed == nil {
		return nil, errors.New("knowledge: embedding function is required")
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Splitter == nil {
		opts.Splitter = NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
	}

	var db *chromem.DB
	if opts.Path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(opts.Path, true)
		if err != nil {
			return nil, fmt.Errorf("open vector store %s: %w", opts.Path, err)
		}
	}

	s := &Store{
		db:       db,
		name:     opts.Collection,
		embed:    chromem.EmbeddingFunc(opts.Embed),
		splitter: opts.Splitter,
		logger:   opts.Logger,
	}
	if err := s.openCollection(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) openCollection() error {
	c, err := s.db.GetOrCreateCollection(s.name, nil, s.embed)
	if err != nil {
		return fmt.Errorf("open collection %s: %w", s.name, err)
	}
	s.collection = c
	return nil
}

// Count returns the number of stored chunks.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Search returns up to limit chunks ordered by similarity. limit is clamped
// to the collection size and an empty collection yields no documents.
func (s *Store) Search(ctx context.Context, query string, limit int, filter map[string]string) ([]Document, error) {
	n := min(limit, s.collection.Count())
	if n <= 0 || query == "" {
		return nil, nil
	}

	var where map[string]string
	if len(filter) > 0 {
		where = filter
	}
	results, err := s.collection.Query(ctx, query, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.name, err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, Document{
			ID:         r.ID,
			Content:    r.Content,
			Metadata:   r.Metadata,
			Similarity: r.Similarity,
		})
	}
	s.logger.DebugContext(ctx, "knowledge search",
		slog.String("query", truncate(query, 50)),
		slog.Int("results", len(docs)))
	return docs, nil
}

// AddDocument splits content into chunks and stores each one with a copy of
// metadata.
func (s *Store) AddDocument(ctx context.Context, content string, metadata map[string]string) error {
	chunks, err := s.splitter.Split(Document{Content: content, Metadata: metadata})
	if err != nil {
		return err
	}
	id := uuid.NewString()
	for i := range chunks {
		chunks[i].ID = fmt.Sprintf("%s-%d", id, i)
	}
	return s.AddChunks(ctx, chunks, 1)
}

// AddChunks stores already split documents. Embeddings are computed with
// the given concurrency.
func (s *Store) AddChunks(ctx context.Context, docs []Document, concurrency int) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]chromem.Document, 0, len(docs))
	for _, d := range docs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		batch = append(batch, chromem.Document{ID: d.ID, Content: d.Content, Metadata: d.Metadata})
	}
	if err := s.collection.AddDocuments(ctx, batch, max(concurrency, 1)); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Reset drops and recreates the collection.
func (s *Store) Reset() error {
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("delete collection %s: %w", s.name, err)
	}
	return s.openCollection()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
