package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/supportpilot/internal/config"
	"github.com/spec-kit/supportpilot/internal/events"
	"github.com/spec-kit/supportpilot/internal/observability"
	"github.com/spec-kit/supportpilot/internal/persistence"
	"github.com/spec-kit/supportpilot/internal/repository"
	"github.com/spec-kit/supportpilot/internal/service"
)

// cli carries the output stream and the way commands reach the ticket store.
type cli struct {
	out    io.Writer
	driver string
	open   func(ctx context.Context, driver string) (*service.TicketService, func(), error)
}

func newCLI(out io.Writer) *cli {
	return &cli{out: out, open: openTickets}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "supportpilotctl",
		Short:         "SupportPilot ticket store administration",
		Long:          "Inspect and maintain the ticket collection the SupportPilot API serves, using the same STORE_* configuration.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.driver, "driver", "", "Override STORE_DRIVER (file, redis, postgres, memory)")

	root.AddCommand(
		newListCmd(c),
		newSeedCmd(c),
		newShowCmd(c),
		newStatusCmd(c),
		newRestoreCmd(c),
		newDeleteCmd(c),
		newClearCmd(c),
	)
	return root
}

// withTickets opens the store for the duration of fn.
func (c *cli) withTickets(cmd *cobra.Command, fn func(ctx context.Context, tickets *service.TicketService) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	tickets, closeFn, err := c.open(ctx, c.driver)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, tickets)
}

func openTickets(ctx context.Context, driver string) (*service.TicketService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if driver != "" {
		cfg.Store.Driver = config.StoreDriver(driver)
	}

	cfg.Logger.Output = "stderr"
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	blobs, closeStore, err := persistence.Open(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}

	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repository.NewTicketRepository(blobs, cfg.Store.Key, logger),
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     logger.With(zap.String("component", "supportpilotctl")),
	})
	return tickets, func() {
		closeStore()
		_ = logger.Sync()
	}, nil
}
