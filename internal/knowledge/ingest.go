package knowledge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Record is one methodology line.
type Record struct {
	Prompt   string         `json:"prompt"`
	Response string         `json:"response"`
	Metadata map[string]any `json:"metadata"`
}

// Report summarizes a pass over a JSONL file.
type Report struct {
	TotalLines   int
	ValidLines   int
	InvalidLines int
	Errors       []string
	// Documents is the number of documents before chunking.
	Documents int
	Chunks    int
}

// ParseJSONL reads methodology records and expands every valid line into
// its question, answer and qa_pair documents. Blank lines are skipped.
// Invalid lines are counted and reported, never fatal.
func ParseJSONL(r io.Reader) ([]Document, Report, error) {
	var (
		docs   []Document
		report Report
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		report.TotalLines++

		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			report.InvalidLines++
			report.Errors = append(report.Errors, fmt.Sprintf("Строка %d: ошибка JSON - %v", line, err))
			continue
		}
		if rec.Prompt == "" || rec.Response == "" {
			report.InvalidLines++
			report.Errors = append(report.Errors, fmt.Sprintf("Строка %d: отсутствуют обязательные поля", line))
			continue
		}
		report.ValidLines++
		docs = append(docs, recordDocuments(rec, line)...)
	}
	if err := sc.Err(); err != nil {
		return nil, report, fmt.Errorf("read jsonl: %w", err)
	}
	report.Documents = len(docs)
	return docs, report, nil
}

func recordDocuments(rec Record, line int) []Document {
	base := stringMetadata(rec.Metadata)
	base[MetaSource] = SourceMethodology
	base[MetaLine] = strconv.Itoa(line)

	with := func(typ string, extra ...string) map[string]string {
		m := make(map[string]string, len(base)+2)
		for k, v := range base {
			m[k] = v
		}
		m[MetaType] = typ
		for i := 0; i+1 < len(extra); i += 2 {
			m[extra[i]] = extra[i+1]
		}
		return m
	}

	return []Document{
		{ID: fmt.Sprintf("l%d-question", line), Content: "Вопрос: " + rec.Prompt, Metadata: with(TypeQuestion)},
		{ID: fmt.Sprintf("l%d-answer", line), Content: "Ответ: " + rec.Response, Metadata: with(TypeAnswer, MetaRelatedQuestion, rec.Prompt)},
		{ID: fmt.Sprintf("l%d-qa", line), Content: rec.Prompt + "\n\n" + rec.Response, Metadata: with(TypeQAPair)},
	}
}

// stringMetadata flattens JSON metadata values into strings. Integral
// numbers lose their fraction so difficulty 2 filters as "2".
func stringMetadata(in map[string]any) map[string]string {
	out := make(map[string]string, len(in)+4)
	for k, v := range in {
		switch t := v.(type) {
		case nil:
		case string:
			out[k] = t
		case float64:
			if t == float64(int64(t)) {
				out[k] = strconv.FormatInt(int64(t), 10)
			} else {
				out[k] = strconv.FormatFloat(t, 'f', -1, 64)
			}
		case bool:
			out[k] = strconv.FormatBool(t)
		default:
			b, _ := json.Marshal(t)
			out[k] = string(b)
		}
	}
	return out
}

// ValidateJSONL checks a methodology file without touching the store.
func ValidateJSONL(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	_, report, err := ParseJSONL(f)
	return report, err
}

const ingestBatch = 64

// Ingest parses path, chunks every document and stores the chunks. With
// reset the collection is emptied first. Batches are embedded in parallel.
func (s *Store) Ingest(ctx context.Context, path string, reset bool, workers int) (Report, []Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	docs, report, err := ParseJSONL(f)
	if err != nil {
		return report, nil, err
	}

	var chunks []Document
	for _, d := range docs {
		parts, err := s.splitter.Split(d)
		if err != nil {
			return report, nil, err
		}
		chunks = append(chunks, parts...)
	}
	report.Chunks = len(chunks)

	if reset {
		if err := s.Reset(); err != nil {
			return report, nil, err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for start := 0; start < len(chunks); start += ingestBatch {
		batch := chunks[start:min(start+ingestBatch, len(chunks))]
		g.Go(func() error {
			return s.AddChunks(gctx, batch, 1)
		})
	}
	if err := g.Wait(); err != nil {
		return report, nil, err
	}

	s.logger.InfoContext(ctx, "knowledge base ingested",
		slog.String("file", path),
		slog.Int("documents", report.Documents),
		slog.Int("chunks", report.Chunks),
		slog.Int("invalid_lines", report.InvalidLines))
	return report, chunks, nil
}
