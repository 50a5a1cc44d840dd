package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/riskbot/internal/knowledge"
	"github.com/abhisek/riskbot/internal/ui/theme"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		level, _ := cmd.Flags().GetInt("difficulty")
		query := strings.Join(args, " ")

		ctx := cmd.Context()
		kb, err := openKnowledge(ctx)
		if err != nil {
			return err
		}

		var filter map[string]string
		if level > 0 {
			filter = map[string]string{knowledge.MetaDifficulty: strconv.Itoa(level)}
		}
		docs, err := kb.Search(ctx, query, limit, filter)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Println("No documents found.")
			return nil
		}

		fmt.Println(theme.Heading(fmt.Sprintf("%d results for %q (%s)", len(docs), query, knowledge.ClassifyQuery(query))))
		for i, d := range docs {
			fmt.Println()
			fmt.Printf("%s  %s  %s\n",
				theme.Value.Render(fmt.Sprintf("#%d", i+1)),
				theme.Label.Render(fmt.Sprintf("similarity %.3f", d.Similarity)),
				theme.Hint.Render(d.Metadata[knowledge.MetaType]+" / "+d.Metadata[knowledge.MetaTopic]))
			fmt.Println(theme.Card.Render(truncate(d.Content, 400)))
		}
		fmt.Println()
		fmt.Println(theme.KV("Confidence", fmt.Sprintf("%.2f", knowledge.Confidence(docs))))
		return nil
	},
}

func init() {
	searchCmd.Flags().IntP("limit", "n", 5, "Number of results")
	searchCmd.Flags().Int("difficulty", 0, "Only chunks tagged with this level (1-5)")
}
