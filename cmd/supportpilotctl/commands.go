package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spec-kit/supportpilot/internal/domain"
	"github.com/spec-kit/supportpilot/internal/query"
	"github.com/spec-kit/supportpilot/internal/service"
)

func newListCmd(c *cli) *cobra.Command {
	var (
		status, category, priority, answered string
		search, sortOrder                    string
		page, pageSize                       int
		asJSON                               bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets with the same filters as the workspace URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			values := url.Values{}
			set := func(key, value string) {
				if value != "" {
					values.Set(key, value)
				}
			}
			set(query.ParamStatus, status)
			set(query.ParamCategory, category)
			set(query.ParamPriority, priority)
			set(query.ParamAnswered, answered)
			set(query.ParamSearch, search)
			set(query.ParamSort, sortOrder)
			if page > 0 {
				values.Set(query.ParamPage, strconv.Itoa(page))
			}
			if pageSize > 0 {
				values.Set(query.ParamPageSize, strconv.Itoa(pageSize))
			}
			state := query.Decode(values)

			return c.withTickets(cmd, func(ctx context.Context, tickets *service.TicketService) error {
				res := tickets.List(ctx, state)
				if asJSON {
					return c.printJSON(res.Items)
				}
				return c.printList(res)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&status, "status", "", "all, active, Open, In Progress or Resolved")
	flags.StringVar(&category, "category", "", "Ticket category")
	flags.StringVar(&priority, "priority", "", "Ticket priority")
	flags.StringVar(&answered, "answered", "", "all, answered or pending")
	flags.StringVarP(&search, "query", "q", "", "Case-insensitive search over title and description")
	flags.StringVar(&sortOrder, "sort", "", "newest, oldest, priority or updated")
	flags.IntVar(&page, "page", 0, "Page number")
	flags.IntVar(&pageSize, "page-size", 0, "Page size (10, 20 or 50)")
	flags.BoolVar(&asJSON, "json", false, "Print the visible page as JSON")
	return cmd
}

func newSeedCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the store, injecting the demo ticket when it is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withTickets(cmd, func(ctx context.Context, tickets *service.TicketService) error {
				tickets.Hydrate(ctx)
				res := tickets.List(ctx, query.Default())
				fmt.Fprintf(c.out, "store holds %d ticket(s)\n", res.Total)
				return nil
			})
		},
	}
}

func newShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one ticket as JSON, including its AI output history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withTickets(cmd, func(ctx context.Context, tickets *service.TicketService) error {
				ticket, err := tickets.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return c.printJSON(ticket)
			})
		},
	}
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status <status> <id>...",
		Short: "Set the status of one or more tickets",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := domain.TicketStatus(args[0])
			return c.withTickets(cmd, func(ctx context.Context, tickets *service.TicketService) error {
				res, err := tickets.BulkUpdateStatus(ctx, args[1:], status)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "updated %d ticket(s)\n", res.Updated)
				return notFound(res.NotFound)
			})
		},
	}
}

func newRestoreCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id> <history-index>",
		Short: "Make an earlier AI output version current",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("history index must be a number: %w", err)
			}
			return c.withTickets(cmd, func(ctx context.Context, tickets *service.TicketService) error {
				ticket, err := tickets.RestoreVersion(ctx, args[0], index)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "ticket %s now shows AI output v%d\n", ticket.ID, ticket.AIOutput.Version)
				return nil
			})
		},
	}
}

func newDeleteCmd(c *cli) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete tickets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withTickets(cmd, func(ctx context.Context, tickets *service.TicketService) error {
				res := tickets.BulkDelete(ctx, args, yes)
				if res.ConfirmationRequired {
					return errors.New("refusing to delete without --yes")
				}
				fmt.Fprintf(c.out, "deleted %d ticket(s)\n", res.Deleted)
				return notFound(res.NotFound)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")
	return cmd
}

func newClearCmd(c *cli) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every ticket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear the store without --yes")
			}
			return c.withTickets(cmd, func(ctx context.Context, tickets *service.TicketService) error {
				fmt.Fprintf(c.out, "deleted %d ticket(s)\n", tickets.Clear(ctx))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm clearing the store")
	return cmd
}

func (c *cli) printList(res query.Result) error {
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tCATEGORY\tAI\tTITLE")
	for _, t := range res.Items {
		ai := "-"
		if t.AIOutput != nil {
			ai = fmt.Sprintf("v%d", t.AIOutput.Version)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Status, t.Priority, t.Category, ai, t.Title)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	summary := fmt.Sprintf("page %d/%d, %d ticket(s)", res.Page, res.PageCount, res.Total)
	if len(res.ActiveFilters) > 0 {
		summary += ", filters: " + strings.Join(res.ActiveFilters, ", ")
	}
	_, err := fmt.Fprintln(c.out, summary)
	return err
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func notFound(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return fmt.Errorf("not found: %s", strings.Join(ids, ", "))
}
