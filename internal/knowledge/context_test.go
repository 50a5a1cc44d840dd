package knowledge

import (
	"context"
	"strings"
	"testing"
)

// filterSearcher returns docs matching every filter entry.
type filterSearcher struct {
	docs    []Document
	filters []map[string]string
}

func (f *filterSearcher) Search(_ context.Context, _ string, limit int, filter map[string]string) ([]Document, error) {
	f.filters = append(f.filters, filter)
	var out []Document
	for _, d := range f.docs {
		ok := true
		for k, v := range filter {
			if d.Metadata[k] != v {
				ok = false
			}
		}
		if ok {
			out = append(out, d)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func TestContextForQuestion_FallsBackWithoutDifficulty(t *testing.T) {
	fs := &filterSearcher{docs: []Document{
		{Content: "RTO задается для каждого процесса.", Metadata: map[string]string{MetaSource: SourceMethodology, MetaTopic: "Показатели", MetaDifficulty: "2"}},
		{Content: "Без метаданных."},
	}}
	b := NewBase(fs, nil)

	text, docs, err := b.ContextForQuestion(context.Background(), "RTO", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fs.filters) != 2 || fs.filters[0][MetaDifficulty] != "4" || fs.filters[1] != nil {
		t.Fatalf("filters = %v", fs.filters)
	}
	if len(docs) != 2 {
		t.Fatalf("docs = %d", len(docs))
	}
	want := "RTO задается для каждого процесса.\n(Источник: methodology_jsonl, Тема: Показатели, Уровень: 2)\n\n---\n\nБез метаданных.\n(Источник: Неизвестно)"
	if text != want {
		t.Fatalf("context =\n%q\nwant\n%q", text, want)
	}
}

func TestContextForQuestion_UsesDifficultyMatch(t *testing.T) {
	fs := &filterSearcher{docs: []Document{
		{Content: "уровень 2", Metadata: map[string]string{MetaDifficulty: "2"}},
	}}
	b := NewBase(fs, nil)
	text, _, _ := b.ContextForQuestion(context.Background(), "RTO", 2)
	if len(fs.filters) != 1 {
		t.Fatalf("expected one search, got %d", len(fs.filters))
	}
	if !strings.HasPrefix(text, "уровень 2") {
		t.Fatalf("context = %q", text)
	}
}

func TestRelatedQuestions(t *testing.T) {
	q := func(text string) Document {
		return Document{Content: "Вопрос: " + text, Metadata: map[string]string{MetaType: TypeQuestion}}
	}
	fs := &filterSearcher{docs: []Document{
		q("Что такое RTO?"),
		q("Как рассчитать MTPD?"),
		q("Как рассчитать MTPD?"),
		q("Что такое BIA?"),
		{Content: "Ответ: не вопрос", Metadata: map[string]string{MetaType: TypeAnswer}},
	}}
	b := NewBase(fs, nil)

	got, err := b.RelatedQuestions(context.Background(), "Что такое RTO?", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Как рассчитать MTPD?", "Что такое BIA?"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestContextForQuestion_Limit(t *testing.T) {
	var docs []Document
	for range 10 {
		docs = append(docs, Document{Content: "RTO"})
	}
	fs := &filterSearcher{docs: docs}

	_, got, err := NewBase(fs, nil).WithLimit(5).ContextForQuestion(context.Background(), "RTO", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("docs = %d, want 5", len(got))
	}

	_, got, _ = NewBase(fs, nil).WithLimit(0).ContextForQuestion(context.Background(), "RTO", 0)
	if len(got) != ContextLimit {
		t.Fatalf("docs = %d, want %d", len(got), ContextLimit)
	}
}
