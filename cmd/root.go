package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abhisek/riskbot/internal/config"
	"github.com/abhisek/riskbot/internal/logging"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "riskbot",
	Short: "Adaptive Telegram training bot for bank continuity risk",
	Long: `riskbot teaches bank business continuity risk management over Telegram.
It generates questions from the methodology knowledge base, adapts difficulty
to each learner and tracks lesson progress.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Directory containing config.yaml")
	rootCmd.PersistentFlags().String("db", "", "Database URL or SQLite path (overrides DATABASE_URL)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves configuration and the logger for every command. The
// --db flag has the highest priority.
func loadConfig(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("config")
	c, err := config.Load(dir)
	if err != nil {
		return err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		c.Database.URL = db
	}
	cfg = c
	logger = logging.New(c.Log, c.App.Env)
	slog.SetDefault(logger)
	return nil
}
