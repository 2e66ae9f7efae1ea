package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfserna/taskcycle/internal/cli/formatter"
	"github.com/mfserna/taskcycle/internal/domain"
	"github.com/mfserna/taskcycle/internal/service"
)

func newOccurrencesCmd(app *App) *cobra.Command {
	var from, to, assignee, business, status string
	var expand bool

	cmd := &cobra.Command{
		Use:   "occurrences",
		Short: "Show the occurrence calendar across all tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := service.OccurrenceQuery{
				AssigneeID:     assignee,
				BusinessID:     business,
				Expand:         expand,
				IncludeVirtual: expand,
			}
			if from != "" {
				d, err := parseDateFlag("from", from)
				if err != nil {
					return err
				}
				q.From = &d
			}
			if to != "" {
				d, err := parseDateFlag("to", to)
				if err != nil {
					return err
				}
				q.To = &d
			}
			if status != "" {
				st := domain.TaskStatus(status)
				q.Status = &st
			}

			occs, err := app.Query.Occurrences(context.Background(), q)
			if err != nil {
				return err
			}
			if len(occs) == 0 {
				fmt.Println(formatter.Dim("No occurrences in this window."))
				return nil
			}
			fmt.Print(formatter.OccurrenceTable(occs))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Window end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Filter by assignee")
	cmd.Flags().StringVar(&business, "business", "", "Filter by business")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().BoolVar(&expand, "expand", false, "Include rule-generated occurrences beyond materialized records")

	return cmd
}

func newSeriesCmd(app *App) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "series <master-id>",
		Short: "Show the reconciled occurrence view of one series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := resolveTaskID(ctx, app, args[0])
			if err != nil {
				return err
			}
			lo, err := parseDateFlag("from", from)
			if err != nil {
				return err
			}
			hi, err := parseDateFlag("to", to)
			if err != nil {
				return err
			}

			occs, err := app.Query.SeriesOccurrences(ctx, id, lo, hi)
			if err != nil {
				return err
			}
			if len(occs) == 0 {
				fmt.Println(formatter.Dim("No occurrences in this window."))
				return nil
			}
			fmt.Print(formatter.OccurrenceTable(occs))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Window end (YYYY-MM-DD)")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}
