package knowledge

// Stats counts documents by type, topic and difficulty.
type Stats struct {
	TotalDocuments int
	ByType         map[string]int
	ByTopic        map[string]int
	ByDifficulty   map[string]int
}

// Statistics aggregates document metadata. Missing keys count as "unknown".
func Statistics(docs []Document) Stats {
	st := Stats{
		TotalDocuments: len(docs),
		ByType:         map[string]int{},
		ByTopic:        map[string]int{},
		ByDifficulty:   map[string]int{},
	}
	for _, d := range docs {
		st.ByType[metaOr(d.Metadata, MetaType)]++
		st.ByTopic[metaOr(d.Metadata, MetaTopic)]++
		st.ByDifficulty[metaOr(d.Metadata, MetaDifficulty)]++
	}
	return st
}

func metaOr(m map[string]string, key string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return "unknown"
}
