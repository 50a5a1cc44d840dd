package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/abhisek/riskbot/internal/knowledge"
	"github.com/abhisek/riskbot/internal/ui/theme"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.jsonl]",
	Short: "Load the methodology JSONL into the vector store",
	Long: `Parse the methodology JSONL file, split every document into chunks and
store the embedded chunks in the knowledge base. Defaults to knowledge.data_file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Bool("reset", false, "Empty the collection before ingesting")
	ingestCmd.Flags().Bool("validate", false, "Only validate the file, do not ingest")
	ingestCmd.Flags().Int("workers", 4, "Parallel embedding batches")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := cfg.Knowledge.DataFile
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no data file: pass a path or set knowledge.data_file")
	}
	reset, _ := cmd.Flags().GetBool("reset")
	validateOnly, _ := cmd.Flags().GetBool("validate")
	workers, _ := cmd.Flags().GetInt("workers")

	if validateOnly {
		report, err := knowledge.ValidateJSONL(path)
		if err != nil {
			return err
		}
		printReport(path, report)
		return nil
	}

	ctx := cmd.Context()
	kb, err := openKnowledge(ctx)
	if err != nil {
		return err
	}
	report, chunks, err := kb.Ingest(ctx, path, reset, workers)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", path, err)
	}
	printReport(path, report)

	stats := knowledge.Statistics(chunks)
	fmt.Println()
	fmt.Println(theme.Heading("Chunks by type"))
	printCounts(stats.ByType)
	fmt.Println()
	fmt.Println(theme.Heading("Chunks by difficulty"))
	printCounts(stats.ByDifficulty)
	fmt.Println()
	fmt.Println(theme.KV("Collection size", kb.Count()))
	return nil
}

func printReport(path string, r knowledge.Report) {
	fmt.Println(theme.Heading("Ingestion report"))
	fmt.Println(theme.KV("File", path))
	fmt.Println(theme.KV("Lines", r.TotalLines))
	fmt.Println(theme.KV("Valid", r.ValidLines))
	fmt.Println(theme.KV("Invalid", r.InvalidLines))
	if r.Documents > 0 {
		fmt.Println(theme.KV("Documents", r.Documents))
		fmt.Println(theme.KV("Chunks", r.Chunks))
	}
	for _, e := range r.Errors {
		fmt.Println(theme.Warn.Render("  " + e))
	}
}

func printCounts(m map[string]int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Println(theme.KV(k, m[k]))
	}
}
