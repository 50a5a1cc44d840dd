package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/riskbot/internal/achievements"
	"github.com/abhisek/riskbot/internal/assistant"
	"github.com/abhisek/riskbot/internal/bot"
	"github.com/abhisek/riskbot/internal/curriculum"
	"github.com/abhisek/riskbot/internal/knowledge"
	"github.com/abhisek/riskbot/internal/metrics"
	"github.com/abhisek/riskbot/internal/questiongen"
	"github.com/abhisek/riskbot/internal/reminder"
	"github.com/abhisek/riskbot/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Telegram bot, reminder scheduler and analytics server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd)
	},
}

// runBot wires every component and supervises the poller, the reminder
// scheduler and the analytics server until SIGINT or SIGTERM.
func runBot(cmd *cobra.Command) error {
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := curriculum.Seed(ctx, st.Catalog(), logger); err != nil {
		return fmt.Errorf("seed curriculum: %w", err)
	}

	provider := openProvider(ctx, st.Events())

	kb, err := openKnowledge(ctx)
	if err != nil {
		return err
	}
	if kb.Count() == 0 {
		logger.WarnContext(ctx, "knowledge base is empty, run `riskbot ingest` to load the methodology")
	}
	search, err := knowledge.NewCachedSearcher(kb, cfg.Knowledge.CacheSize)
	if err != nil {
		return err
	}
	queries, err := knowledge.NewQueryProcessor(knowledge.NewBase(search, logger).WithLimit(cfg.Knowledge.TopK), cfg.Knowledge.CacheSize)
	if err != nil {
		return err
	}

	contexts, closeContexts, err := openDialogue(ctx)
	if err != nil {
		return err
	}
	defer closeContexts()

	sessions := session.New(session.Deps{
		Users:     st.Users(),
		Sessions:  st.Sessions(),
		Attempts:  st.Attempts(),
		Progress:  st.Progress(),
		Catalog:   st.Catalog(),
		Questions: questiongen.New(provider, search, cfg.QuestionConfig(), logger),
		Contexts:  contexts,
		Logger:    logger,
	}, session.Config{
		QuestionsPerLesson: cfg.Lesson.QuestionsPerLesson,
		PassThreshold:      cfg.Lesson.PassThreshold,
	})

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = cfg.Telegram.Debug
	logger.InfoContext(ctx, "authorized on telegram", slog.String("bot", api.Self.UserName))

	b := bot.New(bot.Deps{
		API:                  api,
		Users:                st.Users(),
		Progress:             st.Progress(),
		Attempts:             st.Attempts(),
		Catalog:              st.Catalog(),
		Sessions:             sessions,
		Assistant:            assistant.NewService(provider, queries, st.Chat(), cfg.AssistantConfig(), logger),
		Achievements:         achievements.NewService(st.Progress()),
		Methodology:          search,
		Logger:               logger,
		MaxConcurrentUpdates: cfg.Telegram.MaxConcurrentUpdates,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Poll(gctx, api, cfg.Telegram.PollTimeout)
	})
	if cfg.Reminder.Enabled {
		sched := reminder.New(st.Users(), st.Notifications(), b, reminder.Config{
			Interval:   time.Duration(cfg.Reminder.IntervalHours) * time.Hour,
			CheckEvery: cfg.Reminder.CheckEvery,
		}, logger)
		g.Go(func() error {
			return sched.Run(gctx)
		})
	}
	if cfg.Analytics.Enabled {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Analytics.Port, metrics.NewRouter(st.Stats(), st, logger), logger)
		})
	}

	err = g.Wait()
	logger.Info("riskbot stopped")
	return err
}
