package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/riskbot/internal/difficulty"
	"github.com/abhisek/riskbot/internal/knowledge"
	"github.com/abhisek/riskbot/internal/llm"
	"github.com/abhisek/riskbot/internal/questiongen"
	"github.com/abhisek/riskbot/internal/ui/theme"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview generated questions for a level (no database)",
	Long: `Generate and interactively answer questions for one difficulty level.

This is a stateless developer tool: no learner, no session, no progress. LLM
calls are not recorded. Useful for evaluating question quality against the
current knowledge base and provider.`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().Int("level", 1, "Difficulty level (1-5)")
	previewCmd.Flags().String("topic", "", "Topic focus")
	previewCmd.Flags().Int("count", 5, "Number of questions to generate")
}

func runPreview(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetInt("level")
	topic, _ := cmd.Flags().GetString("topic")
	count, _ := cmd.Flags().GetInt("count")

	if level < difficulty.MinLevel || level > difficulty.MaxLevel {
		return fmt.Errorf("invalid level %d: must be %d..%d", level, difficulty.MinLevel, difficulty.MaxLevel)
	}

	ctx := llm.WithPurpose(cmd.Context(), llm.PurposePreview)
	provider := openProvider(ctx, nil)

	var search knowledge.Searcher
	if kb, err := openKnowledge(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "knowledge base unavailable:", err)
	} else {
		search = kb
	}

	gen := questiongen.New(provider, search, cfg.QuestionConfig(), logger)
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println(theme.Heading(fmt.Sprintf("Level %s, %d questions", difficulty.Label(level), count)))
	fmt.Println()

	var correct int
	for i := 1; i <= count; i++ {
		res := gen.Generate(ctx, questiongen.Input{Difficulty: level, Topic: topic})
		q := res.Question

		source := string(res.Source)
		if res.Reason != "" {
			source += " (" + string(res.Stage) + ": " + res.Reason + ")"
		}
		fmt.Printf("── Question %d/%d ── %s\n", i, count, theme.Hint.Render(source))
		fmt.Println(theme.Value.Render(q.Text))
		for j, opt := range q.Options {
			fmt.Printf("  %d) %s\n", j+1, opt)
		}

		fmt.Print("\nYour answer (1-4): ")
		if !scanner.Scan() {
			fmt.Println("\n(input closed)")
			break
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			fmt.Println("(skipped)")
			fmt.Println()
			continue
		}

		// Options are shown 1-based; the evaluator is 0-based.
		idx := questiongen.InvalidAnswer
		if n, err := strconv.Atoi(answer); err == nil {
			idx = questiongen.ParseAnswer(strconv.Itoa(n - 1))
		}
		if questiongen.Evaluate(idx, q.Correct) {
			correct++
			fmt.Println(theme.Verdict(true), "Correct!")
		} else {
			fmt.Println(theme.Verdict(false), "Wrong. Answer:", q.CorrectOption())
		}
		if q.Explanation != "" {
			fmt.Println(theme.Hint.Render("Explanation: " + q.Explanation))
		}
		fmt.Println()
	}

	fmt.Printf("── Summary: %d/%d correct ──\n", correct, count)
	return nil
}
