package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/riskbot/internal/difficulty"
	"github.com/abhisek/riskbot/internal/ui/theme"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics and the leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		top, _ := cmd.Flags().GetInt("top")
		ctx := cmd.Context()

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		g, err := st.Stats().Global(ctx)
		if err != nil {
			return fmt.Errorf("global stats: %w", err)
		}

		fmt.Println(theme.Heading("Learning statistics"))
		fmt.Println(theme.KV("Users", g.Users))
		fmt.Println(theme.KV("Sessions", g.Sessions))
		fmt.Println(theme.KV("Active sessions", g.ActiveSessions))
		fmt.Println(theme.KV("Attempts", g.Attempts))
		fmt.Println(theme.KV("Correct rate", fmt.Sprintf("%s %.1f%%", theme.Bar(g.CorrectRate, 20), g.CorrectRate)))
		fmt.Println(theme.KV("LLM requests", g.LLMRequests))
		fmt.Println(theme.KV("Fallback questions", fmt.Sprintf("%.1f%%", g.FallbackRate)))

		board, err := st.Progress().Leaderboard(ctx, top)
		if err != nil {
			return fmt.Errorf("leaderboard: %w", err)
		}
		if len(board) == 0 {
			return nil
		}
		fmt.Println()
		fmt.Println(theme.Heading("Leaderboard"))
		fmt.Printf("%-4s  %-24s  %-16s  %8s  %8s\n", "#", "Learner", "Level", "Lessons", "Score")
		for _, e := range board {
			fmt.Printf("%-4d  %-24s  %-16s  %8d  %7.1f%%\n",
				e.Rank, truncate(e.Name, 24), difficulty.Label(e.Level), e.CompletedLessons, e.AverageScore)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().Int("top", 10, "Leaderboard size")
}
