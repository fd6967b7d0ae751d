package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"avatar-engine-be/internal/bootstrap"
	"avatar-engine-be/internal/config"
	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/mapper"
	"avatar-engine-be/internal/repository/implementation"
	"avatar-engine-be/internal/service"
	"avatar-engine-be/pkg/database"
	"avatar-engine-be/pkg/events"
	pktNats "avatar-engine-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config

	afterId int64
	batch   int
	publish bool
)

var rootCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Index messages that existed before the indexer was running",
	Long: `Pages through the message table in id order. By default each page is
written straight into the vector store; with --publish every message is
emitted as a message.created event for the running consumers instead.`,
	SilenceUsage: true,
	RunE:         runBackfill,
}

func main() {
	cfg = config.Load()

	rootCmd.Flags().Int64Var(&afterId, "after", 0, "resume after this message id")
	rootCmd.Flags().IntVar(&batch, "batch", cfg.Index.BackfillBatch, "messages per page")
	rootCmd.Flags().BoolVar(&publish, "publish", false, "publish message.created events to NATS instead of indexing directly")

	if err := rootCmd.Execute(); err != nil {
		color.Red("Backfill failed: %v", err)
		os.Exit(1)
	}
}

func runBackfill(cmd *cobra.Command, args []string) error {
	color.Cyan("🚀 Message backfill (after=%d, batch=%d, publish=%v)\n", afterId, batch, publish)

	if cfg.Database.Connection == "" {
		return errors.New("DB_CONNECTION_STRING is not set")
	}
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	// The HTTP and NATS consumers are not started here.
	cfg.Index.NatsEnabled = false
	container, err := bootstrap.NewContainer(db, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := service.BackfillSink(container.IndexService.IndexNow)
	if publish {
		publisher, err := pktNats.NewPublisher(cfg.App.NatsURL, container.Logger)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer publisher.Close()
		sink = publishSink(publisher)
	}

	backfill := service.NewBackfillService(implementation.NewMessageRepository(db), container.Logger)
	progress, err := backfill.Run(ctx, afterId, batch, sink, func(p service.BackfillProgress) {
		fmt.Printf("page %d: %d/%d messages, last id %d\n", p.Page, p.Processed, p.Total, p.LastId)
	})
	if err != nil {
		color.Yellow("Resume with --after=%d", progress.LastId)
		return err
	}

	color.Green("✅ Done: %d messages in %d pages, last id %d", progress.Processed, progress.Page, progress.LastId)
	return nil
}

func publishSink(publisher *pktNats.Publisher) service.BackfillSink {
	m := mapper.NewMessageMapper()
	return func(ctx context.Context, msgs []*entity.Message) error {
		for _, msg := range msgs {
			req, err := m.ToRequest(msg)
			if err != nil {
				return fmt.Errorf("message %d: %w", msg.Id, err)
			}
			event, err := events.NewMessageCreated(req)
			if err != nil {
				return fmt.Errorf("message %d: %w", msg.Id, err)
			}
			if err := publisher.Publish(ctx, event); err != nil {
				return fmt.Errorf("publish message %d: %w", msg.Id, err)
			}
		}
		return nil
	}
}
