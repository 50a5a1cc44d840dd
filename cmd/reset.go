package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset learner data",
	Long: `Delete every learner, session, attempt, progress row, chat message and
notification along with the LLM request log. The catalog is kept. With
--knowledge the vector store collection is emptied too.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		withKnowledge, _ := cmd.Flags().GetBool("knowledge")
		if !yes {
			return errors.New("refusing to reset without --yes")
		}
		ctx := cmd.Context()

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Reset(ctx); err != nil {
			return fmt.Errorf("reset store: %w", err)
		}
		fmt.Println("Learner data deleted.")

		if withKnowledge {
			kb, err := openKnowledge(ctx)
			if err != nil {
				return err
			}
			if err := kb.Reset(); err != nil {
				return fmt.Errorf("reset knowledge base: %w", err)
			}
			fmt.Println("Knowledge base emptied.")
		}
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
	resetCmd.Flags().Bool("knowledge", false, "Also empty the knowledge base")
}
